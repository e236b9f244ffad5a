package ach

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFT(t *testing.T) {
	spec := eval(t, call("fft", nums(1, 2, 3, 4)))
	ct, ok := spec.(ComplexTensorValue)
	require.True(t, ok, "expected complex tensor, got %s", spec)
	want := []complex128{10, -2 + 2i, -2, -2 - 2i}
	require.Len(t, ct.Data, len(want))
	for k, w := range want {
		assert.InDelta(t, real(w), real(ct.Data[k]), 1e-9)
		assert.InDelta(t, imag(w), imag(ct.Data[k]), 1e-9)
	}

	t.Run("inverse restores the signal", func(t *testing.T) {
		back := floatsOf(t, eval(t, call("ifft", call("fft", nums(1, 2, 3, 4)))))
		assert.InDeltaSlice(t, []float64{1, 2, 3, 4}, back, 1e-9)
	})

	t.Run("magnitude and phase", func(t *testing.T) {
		mag := floatsOf(t, eval(t, call("fft_mag", nums(1, 0, 0, 0))))
		assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, mag, 1e-9)

		phase := floatsOf(t, eval(t, call("fft_phase", nums(1, 2, 3, 4))))
		assert.InDelta(t, 0, phase[0], 1e-9)
		assert.InDelta(t, 3*math.Pi/4, phase[1], 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, floatsOf(t, eval(t, call("fft_mag", array()))))
	})
}

func TestConvolution(t *testing.T) {
	want := []float64{1, 3, 6, 5, 3}
	direct := floatsOf(t, eval(t, call("conv", nums(1, 2, 3), nums(1, 1, 1))))
	assert.InDeltaSlice(t, want, direct, 1e-12)

	viaFFT := floatsOf(t, eval(t, call("conv_fft", nums(1, 2, 3), nums(1, 1, 1))))
	assert.InDeltaSlice(t, want, viaFFT, 1e-9)

	t.Run("impulse", func(t *testing.T) {
		got := floatsOf(t, eval(t, call("conv_fft", nums(4, 5, 6, 7, 8), nums(1))))
		assert.InDeltaSlice(t, []float64{4, 5, 6, 7, 8}, got, 1e-9)
	})
}

func TestWindows(t *testing.T) {
	hann := floatsOf(t, eval(t, call("hanning", num(5))))
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5, 0}, hann, 1e-12)

	hamming := floatsOf(t, eval(t, call("hamming", num(3))))
	assert.InDeltaSlice(t, []float64{0.08, 1, 0.08}, hamming, 1e-12)

	blackman := floatsOf(t, eval(t, call("blackman", num(3))))
	assert.InDeltaSlice(t, []float64{0, 1, 0}, blackman, 1e-12)

	assert.Equal(t, []float64{1, 1, 1}, floatsOf(t, eval(t, call("rectangular", num(3)))))
	assert.Equal(t, []float64{1}, floatsOf(t, eval(t, call("hanning", num(1)))))
	assert.Empty(t, floatsOf(t, eval(t, call("blackman", num(0)))))

	err := runErr(t, NewInterpreter(), call("hamming", num(-1)))
	assert.Equal(t, KindTypeError, ErrorKind(err))
}
