package meta

import (
	"errors"
	"strconv"
	"strings"
)

// Code classifies conversion failures.
type Code string

// Error codes.
const (
	CodeSyntaxError          Code = "SyntaxError"
	CodeUnsupportedConstruct Code = "UnsupportedConstruct"
	CodeMalformedNode        Code = "MalformedNode"
	CodeExternalToolFailure  Code = "ExternalToolFailure"
)

// Sentinel errors matched by errors.Is against any *Error of the same code.
var (
	ErrSyntax               = errors.New("syntax error")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrMalformedNode        = errors.New("malformed node")
	ErrExternalToolFailure  = errors.New("external tool failure")
)

// Error is the structured failure returned by adapters, validators, and tools.
type Error struct {
	Err      error
	Code     Code
	Language Language
	Reason   string
	Path     []int
	Kind     Kind
}

func (failure *Error) Error() string {
	var builder strings.Builder

	builder.WriteString(string(failure.Code))

	if failure.Language != "" {
		builder.WriteString(" [")
		builder.WriteString(string(failure.Language))
		builder.WriteString("]")
	}

	if failure.Kind.Valid() {
		builder.WriteString(" ")
		builder.WriteString(failure.Kind.String())
	}

	if len(failure.Path) > 0 {
		builder.WriteString(" at ")
		builder.WriteString(FormatPath(failure.Path))
	}

	if failure.Reason != "" {
		builder.WriteString(": ")
		builder.WriteString(failure.Reason)
	}

	if failure.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(failure.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying cause.
func (failure *Error) Unwrap() error {
	return failure.Err
}

// Is matches the sentinel for the error's code.
func (failure *Error) Is(target error) bool {
	return sentinelFor(failure.Code) == target
}

func sentinelFor(code Code) error {
	switch code {
	case CodeSyntaxError:
		return ErrSyntax
	case CodeUnsupportedConstruct:
		return ErrUnsupportedConstruct
	case CodeMalformedNode:
		return ErrMalformedNode
	case CodeExternalToolFailure:
		return ErrExternalToolFailure
	default:
		return nil
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var failure *Error
	if errors.As(err, &failure) {
		return failure.Code
	}

	return ""
}

// FormatPath renders a child-index path as "/0/2/1"; the root is "/".
func FormatPath(path []int) string {
	if len(path) == 0 {
		return "/"
	}

	var builder strings.Builder

	for _, idx := range path {
		builder.WriteByte('/')
		builder.WriteString(strconv.Itoa(idx))
	}

	return builder.String()
}

// NewSyntaxError reports unparsable source.
func NewSyntaxError(language Language, reason string, cause error) *Error {
	return &Error{Code: CodeSyntaxError, Language: language, Reason: reason, Err: cause}
}

// NewUnsupported reports a kind or construct with no form in language.
func NewUnsupported(language Language, kind Kind, reason string) *Error {
	return &Error{Code: CodeUnsupportedConstruct, Language: language, Kind: kind, Reason: reason}
}

// NewMalformed reports a node that breaks its arity or shape contract.
func NewMalformed(kind Kind, path []int, reason string) *Error {
	return &Error{Code: CodeMalformedNode, Kind: kind, Path: path, Reason: reason}
}

// NewToolFailure reports a failed external parser or printer.
func NewToolFailure(language Language, reason string, cause error) *Error {
	return &Error{Code: CodeExternalToolFailure, Language: language, Reason: reason, Err: cause}
}
