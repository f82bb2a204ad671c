package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/ValentinKolb/kvmodel/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// IStore is the string-keyed, string-valued store a model reads and writes its fields through.
// Write operations return only an error (nil on success),
// while read operations return the requested data along with an error (nil on success).
// Errors returned by implementations are of type *Error.
type IStore interface {
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value string, loaded bool, err error)
	// Set inserts or updates a key–value pair.
	Set(key, value string) (err error)
	// Delete deletes a key–value pair. Deleting a missing key is not an error.
	Delete(key string) (err error)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool, err error)
	// Keys returns every key currently in the store, in no particular order.
	// The result is a copy, so the caller may delete keys while iterating over it.
	Keys() (keys []string, err error)
	// ClearAll removes every key from the store.
	ClearAll() (err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// Snapshotter is implemented by stores that can dump and restore their whole content.
// The format is the binary snapshot format shared by all db engines.
type Snapshotter interface {
	Save(w io.Writer) error
	Load(r io.Reader) error
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The underlying engine error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying engine error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a RetCInternalError for a failed engine call.
func WrapError(op string, err error) *Error {
	return &Error{
		Code: RetCInternalError,
		Msg:  fmt.Sprintf("%s failed: %v", op, err),
		Err:  err,
	}
}

// CodeOf returns the return code carried by err, RetCSuccess for nil
// and RetCInternalError for errors that are not a *Error.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
