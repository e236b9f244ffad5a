package ach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vito/achronyme/pkg/graph"
	"github.com/vito/achronyme/pkg/lp"
	"github.com/vito/achronyme/pkg/numeric"
	"github.com/vito/achronyme/pkg/persist"
)

// Error kinds observable through an ErrorValue's kind field.
const (
	KindTypeError         = "TypeError"
	KindUndefinedVariable = "UndefinedVariable"
	KindImmutableAssign   = "ImmutableAssign"
	KindArithmeticError   = "ArithmeticError"
	KindDimensionMismatch = "DimensionMismatch"
	KindIndexOutOfBounds  = "IndexOutOfBounds"
	KindInvalidFormat     = "InvalidFormat"
	KindChecksumMismatch  = "ChecksumMismatch"
	KindVersionMismatch   = "VersionMismatch"
	KindInfeasible        = "Infeasible"
	KindUnbounded         = "Unbounded"
	KindMaxIterations     = "MaxIterationsExceeded"
	KindValidationError   = "ValidationError"
	KindRuntimeError      = "RuntimeError"
)

// SourceLocation represents a location in source code
type SourceLocation struct {
	Filename string
	Line     int
	Column   int
	Length   int
}

func (loc *SourceLocation) String() string {
	if loc == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", loc.Filename, loc.Line, loc.Column)
}

type SourceLocatable interface {
	GetSourceLocation() *SourceLocation
}

// SourceError represents an error with source location information
type SourceError struct {
	Inner    error
	Location *SourceLocation
	Source   string // The source code of the file
}

func NewSourceError(inner error, location *SourceLocation, source string) *SourceError {
	return &SourceError{
		Inner:    inner,
		Location: location,
		Source:   source,
	}
}

func (e *SourceError) Unwrap() error {
	return e.Inner
}

func (e *SourceError) Error() string {
	if e.Location == nil {
		return e.Inner.Error()
	}
	return e.Format()
}

// Format renders the error with the offending source line and a caret
// underline when the source is available.
func (e *SourceError) Format() string {
	header := fmt.Sprintf("%s: %s", e.Location, e.Inner)
	lines := strings.Split(e.Source, "\n")
	if e.Source == "" || e.Location.Line < 1 || e.Location.Line > len(lines) {
		return header
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%4d | %s\n", e.Location.Line, lines[e.Location.Line-1])
	padding := strings.Repeat(" ", 7+max(0, e.Location.Column-1))
	b.WriteString(padding + strings.Repeat("^", max(1, e.Location.Length)))
	return b.String()
}

// EvalContext carries the file being evaluated so errors can quote it.
type EvalContext struct {
	Filename string
	Source   string
}

type evalContextKey struct{}

func WithEvalContext(ctx context.Context, evalCtx *EvalContext) context.Context {
	return context.WithValue(ctx, evalContextKey{}, evalCtx)
}

func GetEvalContext(ctx context.Context) *EvalContext {
	if evalCtx, ok := ctx.Value(evalContextKey{}).(*EvalContext); ok {
		return evalCtx
	}
	return nil
}

// CreateEvalError attaches the node's location to err.
func CreateEvalError(ctx context.Context, err error, node SourceLocatable) error {
	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return err
	}
	location := node.GetSourceLocation()
	if location == nil {
		return err
	}
	var source string
	if evalCtx := GetEvalContext(ctx); evalCtx != nil {
		source = evalCtx.Source
	}
	return NewSourceError(err, location, source)
}

// WithEvalErrorHandling wraps an Eval method implementation with automatic error handling
func WithEvalErrorHandling(ctx context.Context, node SourceLocatable, fn func() (Value, error)) (Value, error) {
	val, err := fn()
	if err != nil {
		var sourceErr *SourceError
		var raisedErr *RaisedError
		if errors.As(err, &sourceErr) || errors.As(err, &raisedErr) {
			return nil, err
		}
		return nil, CreateEvalError(ctx, err, node)
	}
	return val, nil
}

// RaisedError carries an ErrorValue through Go's error interface so that
// Eval methods propagate it up the call stack until a TryCatch catches it.
type RaisedError struct {
	Value *ErrorValue
}

func (r *RaisedError) Error() string {
	if r.Value.Kind == "" || r.Value.Kind == KindRuntimeError {
		return r.Value.Message
	}
	return r.Value.Kind + ": " + r.Value.Message
}

// Kind returns the kind of the raised error.
func (r *RaisedError) Kind() string {
	return r.Value.Kind
}

// Raise builds a RaisedError of the given kind.
func Raise(kind string, format string, args ...any) *RaisedError {
	return &RaisedError{
		Value: &ErrorValue{
			Message: fmt.Sprintf(format, args...),
			Kind:    kind,
		},
	}
}

func typeErrorf(format string, args ...any) error {
	return Raise(KindTypeError, format, args...)
}

func runtimeErrorf(format string, args ...any) error {
	return Raise(KindRuntimeError, format, args...)
}

func undefinedf(format string, args ...any) error {
	return Raise(KindUndefinedVariable, format, args...)
}

// sentinelKinds maps package errors to the kind they surface as.
var sentinelKinds = []struct {
	err  error
	kind string
}{
	{lp.ErrInfeasible, KindInfeasible},
	{lp.ErrUnbounded, KindUnbounded},
	{lp.ErrMaxIterations, KindMaxIterations},
	{lp.ErrDimensionMismatch, KindDimensionMismatch},
	{lp.ErrInvalidProblem, KindValidationError},
	{numeric.ErrMaxIterations, KindMaxIterations},
	{numeric.ErrDimensionMismatch, KindDimensionMismatch},
	{numeric.ErrSingular, KindArithmeticError},
	{numeric.ErrInvalidArgument, KindTypeError},
	{graph.ErrValidation, KindValidationError},
	{persist.ErrInvalidFormat, KindInvalidFormat},
	{persist.ErrChecksumMismatch, KindChecksumMismatch},
	{persist.ErrVersionMismatch, KindVersionMismatch},
	{persist.ErrExists, KindRuntimeError},
}

// ErrorKind classifies err. Raised errors keep their own kind; package
// sentinels map to their kind; everything else is a RuntimeError.
func ErrorKind(err error) string {
	var raised *RaisedError
	if errors.As(err, &raised) {
		return raised.Value.Kind
	}
	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindRuntimeError
}

// ToErrorValue converts any error into the value bound by a catch clause.
func ToErrorValue(err error) *ErrorValue {
	var raised *RaisedError
	if errors.As(err, &raised) {
		return raised.Value
	}
	msg := err.Error()
	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		msg = sourceErr.Inner.Error()
	}
	return &ErrorValue{
		Message: msg,
		Kind:    ErrorKind(err),
	}
}

// errorMessage returns the message of err without its kind prefix.
func errorMessage(err error) string {
	return ToErrorValue(err).Message
}
