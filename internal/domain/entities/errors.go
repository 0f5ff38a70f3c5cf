package entities

import (
	"errors"
	"fmt"
)

// PackReason identifies a distinct failure condition during firmware
// assembly. Every reason is fatal to the current model build.
type PackReason string

const (
	// Input errors
	ReasonNoImageProvided   PackReason = "no-image-provided"
	ReasonSectionNotFound   PackReason = "section-not-found"
	ReasonToolNotFound      PackReason = "tool-not-found"
	ReasonMissingFirmwareID PackReason = "missing-firmware-id"
	ReasonBadImageRef       PackReason = "bad-image-ref"

	// Invariant violations
	ReasonInvalidSection        PackReason = "invalid-section"
	ReasonSectionSizeMismatch   PackReason = "section-size-mismatch"
	ReasonSectionOffsetMismatch PackReason = "section-offset-mismatch"
	ReasonFlagRead              PackReason = "flag-read"
	ReasonNotReadOnlyFirmware   PackReason = "not-read-only-firmware"
	ReasonNotReadWriteFirmware  PackReason = "not-read-write-firmware"
	ReasonUnexpectedEcHeader    PackReason = "unexpected-ec-header"
	ReasonPayloadTooLarge       PackReason = "payload-too-large"

	// External collaborators
	ReasonToolFailed       PackReason = "tool-failed"
	ReasonSignatureInvalid PackReason = "signature-invalid"
)

// PackError is the single error taxonomy for the assembly engine. The
// Reason code lets callers and tests discriminate conditions without
// matching message text.
type PackError struct {
	Reason PackReason
	Detail string
	Err    error
}

func (e *PackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e *PackError) Unwrap() error {
	return e.Err
}

// NewPackError creates a PackError with a formatted detail message.
func NewPackError(reason PackReason, format string, args ...interface{}) *PackError {
	return &PackError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// WrapPackError wraps an underlying error (typically from an external
// tool) with the invoking context.
func WrapPackError(reason PackReason, err error, format string, args ...interface{}) *PackError {
	return &PackError{Reason: reason, Detail: fmt.Sprintf(format, args...), Err: err}
}

// IsReason reports whether err is (or wraps) a PackError with the given
// reason code.
func IsReason(err error, reason PackReason) bool {
	var pe *PackError
	if errors.As(err, &pe) {
		return pe.Reason == reason
	}
	return false
}
