package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies scan failures so callers can log and display them
// without re-deriving the cause.
type ErrorKind string

const (
	KindConnection         ErrorKind = "CONNECTION_ERROR"
	KindNoContractsInRange ErrorKind = "NO_CONTRACTS_IN_RANGE"
	KindInvalidParameter   ErrorKind = "INVALID_PARAMETER"
	KindComputation        ErrorKind = "COMPUTATION_ERROR"
)

// Sentinels for errors.Is. A *ScanError matches the sentinel of its kind.
var (
	ErrConnection         = &ScanError{Kind: KindConnection}
	ErrNoContractsInRange = &ScanError{Kind: KindNoContractsInRange}
	ErrInvalidParameter   = &ScanError{Kind: KindInvalidParameter}
	ErrComputation        = &ScanError{Kind: KindComputation}
)

// ScanError carries the kind of failure, the operation that raised it and the
// offending input (parameter name and value, ticker, candidate description...).
type ScanError struct {
	Kind  ErrorKind
	Op    string
	Input string
	Err   error
}

func (e *ScanError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Input != "" {
		msg += " (" + e.Input + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScanError) Unwrap() error { return e.Err }

// Is matches any *ScanError of the same kind.
func (e *ScanError) Is(target error) bool {
	t, ok := target.(*ScanError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the ErrorKind of err, or "" if err is not a *ScanError.
func KindOf(err error) ErrorKind {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// ConnectionError wraps a failure of the market-data session.
func ConnectionError(op, ticker string, cause error) *ScanError {
	return &ScanError{Kind: KindConnection, Op: op, Input: "ticker=" + ticker, Err: cause}
}

// NoContractsInRangeError reports an empty filtered chain together with the bounds used.
func NoContractsInRangeError(op, ticker string, strikeMin, strikeMax float64, from, to string) *ScanError {
	return &ScanError{
		Kind:  KindNoContractsInRange,
		Op:    op,
		Input: fmt.Sprintf("ticker=%s strikes=[%.2f, %.2f] expirations=[%s, %s]", ticker, strikeMin, strikeMax, from, to),
	}
}

// InvalidParameterError reports a rejected parameter by name and raw value.
func InvalidParameterError(name string, value any, reason string) *ScanError {
	return &ScanError{
		Kind:  KindInvalidParameter,
		Op:    "params",
		Input: fmt.Sprintf("%s=%v", name, value),
		Err:   errors.New(reason),
	}
}

// ComputationError reports a non-finite result for a single candidate.
func ComputationError(candidate, field string) *ScanError {
	return &ScanError{
		Kind:  KindComputation,
		Op:    "evaluate",
		Input: candidate,
		Err:   fmt.Errorf("non-finite %s", field),
	}
}
