package stats

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageRead marks failures to read or decode the durable record.
	ErrStorageRead = errors.New("stats: storage read failed")
	// ErrStorageWrite marks failures to write or delete the durable record.
	ErrStorageWrite = errors.New("stats: storage write failed")
	// ErrUnknownUser is returned when counters are updated for a user that was never ensured.
	ErrUnknownUser = errors.New("stats: unknown user")
)

const (
	opRead   = "read"
	opDecode = "decode"
	opEncode = "encode"
	opWrite  = "write"
	opDelete = "delete"
)

// StorageError describes a failed backend operation.
type StorageError struct {
	Op       string
	Location Location
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("stats: %s %s record: %v", e.Op, e.Location, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is maps the operation onto ErrStorageRead or ErrStorageWrite.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorageRead:
		return e.Op == opRead || e.Op == opDecode
	case ErrStorageWrite:
		return e.Op == opWrite || e.Op == opDelete || e.Op == opEncode
	}
	return false
}

// Code is used by the router summary log as err_code.
func (e *StorageError) Code() string {
	if errors.Is(e, ErrStorageRead) {
		return "stats_read"
	}
	return "stats_write"
}
