// Package errs defines the classification engine's stable integer error
// code enum and the error type that carries it, adapted from the teacher's
// internal/errors.GenomeVedicError (code + cause + metadata) but narrowed
// to a numeric code, per spec's external-interface requirement that error
// codes be a "stable integer enum" usable across language boundaries.
package errs

import "errors"

// Code is the engine's stable error code enum (spec.md section 6).
type Code int

const (
	OK Code = iota
	InvalidArgument
	MismatchingSizes
	BadData
	BadClassificationClusters
	BadGoldenSteps
	BadConfals
	BadAverageNuAngles
	BadClassificationLimits
	MissingAtoms
	MultipleAltIds
	NoFile
	CannotReadFile
	NothingToClassify
	WrongMetrics
	NotImplemented
	BadGeometry
)

var codeNames = map[Code]string{
	OK:                        "OK",
	InvalidArgument:           "InvalidArgument",
	MismatchingSizes:          "MismatchingSizes",
	BadData:                   "BadData",
	BadClassificationClusters: "BadClassificationClusters",
	BadGoldenSteps:            "BadGoldenSteps",
	BadConfals:                "BadConfals",
	BadAverageNuAngles:        "BadAverageNuAngles",
	BadClassificationLimits:   "BadClassificationLimits",
	MissingAtoms:              "MissingAtoms",
	MultipleAltIds:            "MultipleAltIds",
	NoFile:                    "NoFile",
	CannotReadFile:            "CannotReadFile",
	NothingToClassify:         "NothingToClassify",
	WrongMetrics:              "WrongMetrics",
	NotImplemented:            "NotImplemented",
	BadGeometry:               "BadGeometry",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "Unknown"
}

// Error is the classification engine's fatal/procedural error type: it
// carries a stable Code plus a human message, an optional wrapped cause
// and free-form metadata naming which field or row failed.
type Error struct {
	Code     Code
	Message  string
	Cause    error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Code.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Code.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Metadata: map[string]any{}}
}

// Wrap creates an *Error wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause, Metadata: map[string]any{}}
}

// With attaches a metadata key/value and returns the same *Error for
// chaining, mirroring the teacher's WithMetadata.
func (e *Error) With(key string, value any) *Error {
	e.Metadata[key] = value
	return e
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error, else OK.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return OK
}
