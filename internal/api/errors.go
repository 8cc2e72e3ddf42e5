// Package api implements the transfer client for the editor's file endpoints.
package api

import (
	"errors"
	"fmt"
)

// Transfer error operations
const (
	OpRead    = "read"    // local content could not be read
	OpRequest = "request" // network/transport failure
	OpStatus  = "status"  // server answered non-2xx
	OpDecode  = "decode"  // 2xx body malformed or missing filename
)

// TransferError is a failed upload. The selector must be left untouched
// and the error surfaced to the user.
type TransferError struct {
	Op         string
	FileName   string
	StatusCode int    // set for OpStatus
	Message    string // server-provided reason for OpStatus, detail for OpDecode
	Err        error
}

func (e *TransferError) Error() string {
	switch e.Op {
	case OpStatus:
		return fmt.Sprintf("upload failed: status %d: %s", e.StatusCode, e.Message)
	case OpRead:
		return fmt.Sprintf("upload failed: read %s: %v", e.FileName, e.Err)
	case OpDecode:
		if e.Err != nil {
			return fmt.Sprintf("upload failed: invalid server response: %v", e.Err)
		}
		return fmt.Sprintf("upload failed: invalid server response: %s", e.Message)
	default:
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
}

func (e *TransferError) Unwrap() error { return e.Err }

// ListingError is a failed listing. It is never surfaced to the user:
// ListFiles absorbs it and the controller only logs it.
type ListingError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ListingError) Error() string {
	switch e.Op {
	case OpStatus:
		return fmt.Sprintf("list files failed: status %d: %s", e.StatusCode, e.Message)
	case OpDecode:
		return fmt.Sprintf("list files failed: invalid server response: %v", e.Err)
	default:
		return fmt.Sprintf("list files failed: %v", e.Err)
	}
}

func (e *ListingError) Unwrap() error { return e.Err }

// IsTransferError checks if err is or wraps a *TransferError.
func IsTransferError(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}

// IsListingError checks if err is or wraps a *ListingError.
func IsListingError(err error) bool {
	var le *ListingError
	return errors.As(err, &le)
}

// StatusCode returns the HTTP status carried by a transfer or listing
// error, or 0.
func StatusCode(err error) int {
	var te *TransferError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	var le *ListingError
	if errors.As(err, &le) {
		return le.StatusCode
	}
	return 0
}
