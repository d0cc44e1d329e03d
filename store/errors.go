package store

import (
	"fmt"
	"time"
)

// ErrorKind classifies store protocol failures.
type ErrorKind string

const (
	// ErrorNetwork covers connection and transport failures.
	ErrorNetwork ErrorKind = "network"

	// ErrorTimeout covers deadline and cancellation failures.
	ErrorTimeout ErrorKind = "timeout"

	// ErrorMalformedQuery covers store-side rejection of the query text.
	ErrorMalformedQuery ErrorKind = "malformed-query"

	// ErrorBackend covers other store-side failures.
	ErrorBackend ErrorKind = "backend"
)

// StoreError is the single error surface of the store client. Transport
// details stay behind it; callers branch on Kind.
type StoreError struct {
	Kind      ErrorKind
	Operation string
	Elapsed   time.Duration
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Operation, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
