package studio

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrBusy            = errors.New("operation already in progress")
	ErrNoResult        = errors.New("no generated image yet")
	ErrHistoryIndex    = errors.New("history entry not found")
	ErrUnknownSlot     = errors.New("unknown image slot")
)

// Op names a user-facing operation. Each op has at most one call in flight
// per session.
type Op string

const (
	OpPrompt    Op = "prompt"
	OpTemplate  Op = "template"
	OpGenerate  Op = "generate"
	OpMask      Op = "mask"
	OpEnhance   Op = "enhance"
	OpReiterate Op = "reiterate"
	OpExport    Op = "export"
	OpPreset    Op = "preset"
)

// OpError records which operation failed so the edge can pick a message.
type OpError struct {
	Op  Op
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opErr(op Op, err error) error {
	if err == nil {
		return nil
	}
	var existing *OpError
	if errors.As(err, &existing) {
		return err
	}
	return &OpError{Op: op, Err: err}
}
