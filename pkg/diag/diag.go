// Package diag defines the diagnostics shared by every pipeline stage:
// blocking structural errors, advisory warnings, and the sentinel used for
// caller contract violations.
package diag

import (
	"errors"
	"fmt"
)

// ErrContract marks a programmer error: a parameter outside its documented
// domain. Stages wrap it with fmt.Errorf and return immediately.
var ErrContract = errors.New("contract violation")

// Contractf returns an error wrapping ErrContract.
func Contractf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContract, fmt.Sprintf(format, args...))
}

// Severity indicates whether a finding blocks the region or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // fatal to the region
	SeverityWarning                 // degraded but usable
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Code identifies the kind of finding.
type Code string

const (
	// Structural errors.
	IslandContainmentViolation Code = "IslandContainmentViolation"
	DegenerateLoop             Code = "DegenerateLoop"
	ToolTooLargeForPocket      Code = "ToolTooLargeForPocket"

	// Warnings.
	OpenPath            Code = "OpenPath"
	DegeneratePrimitive Code = "DegeneratePrimitive"
	StepoverClamped     Code = "StepoverClamped"
	SpacingClamped      Code = "SpacingClamped"
	LobeDiscarded       Code = "LobeDiscarded"
	IslandClearance     Code = "IslandClearance"
	AdaptiveClamped     Code = "AdaptiveClamped"
	UnsafeLink          Code = "UnsafeLink"
	PassLimit           Code = "PassLimit"
	CoverageGap         Code = "CoverageGap"
)

// Diagnostic is a single finding attached to a stage result.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Loop     int      `json:"loop"` // loop or primitive index, -1 if not applicable
}

func (d Diagnostic) String() string {
	if d.Loop < 0 {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s (#%d): %s", d.Severity, d.Code, d.Loop, d.Message)
}

// Warn builds a warning-severity diagnostic with no loop reference.
func Warn(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Loop: -1}
}

// Fail builds an error-severity diagnostic with no loop reference.
func Fail(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Message: fmt.Sprintf(format, args...), Loop: -1}
}

// At returns a copy of d referencing loop or primitive index i.
func (d Diagnostic) At(i int) Diagnostic {
	d.Loop = i
	return d
}

// Error is a structural failure for one region. It carries the findings
// that caused it.
type Error struct {
	Code     Code
	Findings []Diagnostic
}

func (e *Error) Error() string {
	if len(e.Findings) == 0 {
		return string(e.Code)
	}
	if len(e.Findings) == 1 {
		return fmt.Sprintf("%s: %s", e.Code, e.Findings[0].Message)
	}
	return fmt.Sprintf("%s: %s (and %d more)", e.Code, e.Findings[0].Message, len(e.Findings)-1)
}

// NewError wraps error-severity findings into a structural Error. The
// code of the first finding names the error.
func NewError(findings ...Diagnostic) *Error {
	e := &Error{Findings: findings}
	if len(findings) > 0 {
		e.Code = findings[0].Code
	}
	return e
}

// Is reports whether err is a structural Error with the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// List is an ordered collection of findings.
type List []Diagnostic

// Errors returns the error-severity findings.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the warning-severity findings.
func (l List) Warnings() List {
	var out List
	for _, d := range l {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Has reports whether any finding carries code.
func (l List) Has(code Code) bool {
	for _, d := range l {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Count returns the number of findings carrying code.
func (l List) Count(code Code) int {
	n := 0
	for _, d := range l {
		if d.Code == code {
			n++
		}
	}
	return n
}
