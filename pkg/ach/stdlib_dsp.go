package ach

import (
	"context"
	"math"
	"math/bits"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// fft transforms a complex sequence. Empty input gives empty output.
func fft(seq []complex128) []complex128 {
	if len(seq) == 0 {
		return nil
	}
	return fourier.NewCmplxFFT(len(seq)).Coefficients(nil, seq)
}

// ifft inverts fft, scaling by 1/n.
func ifft(coeff []complex128) []complex128 {
	if len(coeff) == 0 {
		return nil
	}
	out := fourier.NewCmplxFFT(len(coeff)).Sequence(nil, coeff)
	scale := complex(1/float64(len(out)), 0)
	for k := range out {
		out[k] *= scale
	}
	return out
}

// complexSeq reads a vector of Numbers and Complexes.
func (a Args) complexSeq(k int) ([]complex128, error) {
	if t, ok := a.Values[k].(ComplexTensorValue); ok && t.Rank() == 1 {
		return t.Data, nil
	}
	elems, err := a.Vector(k)
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(elems))
	for j, e := range elems {
		switch e := Deref(e).(type) {
		case NumberValue:
			out[j] = complex(e.Val, 0)
		case ComplexValue:
			out[j] = e.Val
		default:
			return nil, a.mismatch(k, "a Vector of Numbers or Complexes")
		}
	}
	return out, nil
}

// convolve is the full linear convolution, of length n + m - 1.
func convolve(signal, kernel []float64) []float64 {
	if len(signal) == 0 || len(kernel) == 0 {
		return []float64{}
	}
	out := make([]float64, len(signal)+len(kernel)-1)
	for i, s := range signal {
		for j, k := range kernel {
			out[i+j] += s * k
		}
	}
	return out
}

// convolveFFT computes convolve through the frequency domain, padding to
// a power of two.
func convolveFFT(signal, kernel []float64) []float64 {
	if len(signal) == 0 || len(kernel) == 0 {
		return []float64{}
	}
	n := len(signal) + len(kernel) - 1
	size := 1 << bits.Len(uint(n-1))
	a := make([]float64, size)
	b := make([]float64, size)
	copy(a, signal)
	copy(b, kernel)

	t := fourier.NewFFT(size)
	fa := t.Coefficients(nil, a)
	fb := t.Coefficients(nil, b)
	for k := range fa {
		fa[k] *= fb[k]
	}
	out := t.Sequence(nil, fa)
	for k := range out {
		out[k] /= float64(size)
	}
	return out[:n]
}

func registerDSP() {
	spectrum := func(name, doc string, fn func([]complex128) Value) {
		Builtin(name).
			Module("dsp").
			Doc(doc).
			Params("signal").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				seq, err := args.complexSeq(0)
				if err != nil {
					return nil, err
				}
				return fn(fft(seq)), nil
			})
	}
	spectrum("fft", "discrete Fourier transform as a complex vector", func(c []complex128) Value {
		return ComplexTensorValue{Shape: []int{len(c)}, Data: c}
	})
	spectrum("fft_mag", "magnitude of each Fourier coefficient", func(c []complex128) Value {
		out := make([]float64, len(c))
		for k, z := range c {
			out[k] = cmplx.Abs(z)
		}
		return TensorValue{Shape: []int{len(out)}, Data: out}
	})
	spectrum("fft_phase", "phase of each Fourier coefficient", func(c []complex128) Value {
		out := make([]float64, len(c))
		for k, z := range c {
			out[k] = math.Atan2(imag(z), real(z))
		}
		return TensorValue{Shape: []int{len(out)}, Data: out}
	})

	Builtin("ifft").
		Module("dsp").
		Doc("inverse Fourier transform, keeping the real part").
		Params("spectrum").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			coeff, err := args.complexSeq(0)
			if err != nil {
				return nil, err
			}
			seq := ifft(coeff)
			out := make([]float64, len(seq))
			for k, z := range seq {
				out[k] = real(z)
			}
			return TensorValue{Shape: []int{len(out)}, Data: out}, nil
		})

	conv := func(name, doc string, fn func(a, b []float64) []float64) {
		Builtin(name).
			Module("dsp").
			Doc(doc).
			Params("signal", "kernel").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				signal, err := args.Floats(0)
				if err != nil {
					return nil, err
				}
				kernel, err := args.Floats(1)
				if err != nil {
					return nil, err
				}
				out := fn(signal, kernel)
				return TensorValue{Shape: []int{len(out)}, Data: out}, nil
			})
	}
	conv("conv", "linear convolution by direct summation", convolve)
	conv("conv_fft", "linear convolution through the FFT", convolveFFT)

	win := func(name, doc string, fn func([]float64) []float64) {
		Builtin(name).
			Module("dsp").
			Doc(doc).
			Params("n").
			Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
				n, err := args.Int(0)
				if err != nil {
					return nil, err
				}
				if n < 0 {
					return nil, args.mismatch(0, "a non-negative integer")
				}
				seq := make([]float64, n)
				for k := range seq {
					seq[k] = 1
				}
				// A single-point window is just 1; the formulas divide by n-1.
				if n > 1 {
					seq = fn(seq)
				}
				return TensorValue{Shape: []int{n}, Data: seq}, nil
			})
	}
	win("hanning", "symmetric Hann window of n points", window.Hann)
	win("hamming", "symmetric Hamming window of n points", window.Hamming)
	win("blackman", "symmetric Blackman window of n points", window.Blackman)
	win("rectangular", "n ones", window.Rectangular)
}
