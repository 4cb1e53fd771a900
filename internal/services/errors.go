package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIdentityUnresolved = errors.New("browser identity cookie is missing, reload the page to start working")
	ErrIdentityUnbound    = errors.New("no reviewer has been chosen for this browser")
	ErrDuplicateIdentity  = errors.New("reviewer is already bound to another browser")
	ErrUnknownReviewer    = errors.New("reviewer is not in the roster")
	ErrAlreadySubmitted   = errors.New("ratings for this ratee were already submitted")
	ErrRateeNotAssigned   = errors.New("ratee is not assigned to this reviewer")
	ErrStoreUnavailable   = errors.New("rating store is unavailable")
)

// FieldErrorKind classifies a rejected score input.
type FieldErrorKind string

const (
	InvalidFormat FieldErrorKind = "invalid_format"
	OutOfRange    FieldErrorKind = "out_of_range"
)

// FieldError is a validation failure for one metric input.
type FieldError struct {
	Metric  string         `json:"metric"`
	Kind    FieldErrorKind `json:"kind"`
	Input   string         `json:"input"`
	Message string         `json:"message"`
}

func (e *FieldError) Error() string {
	if e.Metric == "" {
		return e.Message
	}
	return e.Metric + ": " + e.Message
}

// FieldErrors is the set of field failures that blocks a batch.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for i := range e {
		parts = append(parts, e[i].Error())
	}
	return "invalid scores: " + strings.Join(parts, "; ")
}

// StoreError wraps a failed store operation. It matches ErrStoreUnavailable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
