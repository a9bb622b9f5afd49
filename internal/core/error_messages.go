package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// # Error Codes Reference
//
// # Input Errors (INP, HDR, ROW, SCH)
//
//	INP001 - Invalid input: the upload is not shaped like a table
//	         Action: Upload a CSV or XLSX file with a header row
//	         Match: *StructuralInputError, "invalid input"
//
//	HDR001 - Missing headers: required columns were not found
//	         Action: Add the missing columns and upload again
//	         Match: *MissingHeadersError, "missing essential headers"
//
//	ROW001 - No valid rows: every row is missing required values
//	         Action: Fill in the required values and upload again
//	         Match: ErrNoValidRows, "no valid rows"
//
//	IMG001 - No images: no row has a usable image reference
//	         Action: Add image URLs or upload image files
//	         Match: ErrNoImages, "no usable images"
//
//	REC001 - Unmatched records: products and images could not all be paired
//	         Action: Review the unmatched list and fix ids or images
//	         Match: ErrUnmatchedRecords, "unmatched records"
//
//	SCH001 - Schema unavailable: the field schema could not be loaded
//	         Action: Check the schema file and try again
//	         Match: "load schema", "schema file"
//
// # Store Errors (STO)
//
//	STO001 - Store read failed
//	         Action: Please try again in a few moments
//	         Match: *store.IOError with Op "read", "store read"
//
//	STO002 - Store write failed
//	         Action: Please try again; the previous data is unchanged or was fully replaced
//	         Match: *store.IOError with Op "write", "store write"
//
//	DB004 / DB005 - Database connection refused or reset
//
// # File Errors (FILE001-FILE005)
//
//	FILE001 file too large, FILE002 invalid csv/xlsx, FILE003 encoding error,
//	FILE004 no file provided, FILE005 empty file
//
// # Run Errors (UPL)
//
//	UPL002 too many concurrent runs, UPL004 request cancelled,
//	UPL005 request timed out
//
// # Rate Limiting (RATE001) and Default (ERR000)
//
// Typed errors are checked first with errors.As/errors.Is. Otherwise the
// error text is matched case-insensitively against the pattern table and the
// first match wins, so specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/smartsync/internal/store"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgInvalidInput = UserMessage{
		Message: "The uploaded file could not be read as a table",
		Action:  "Upload a CSV or XLSX file with a header row",
		Code:    "INP001",
	}
	msgMissingHeaders = UserMessage{
		Message: "Required columns are missing from your file",
		Action:  "Add the missing columns and upload again",
		Code:    "HDR001",
	}
	msgNoValidRows = UserMessage{
		Message: "No rows have all required values",
		Action:  "Fill in the required values and upload again",
		Code:    "ROW001",
	}
	msgNoImages = UserMessage{
		Message: "No usable product images were found",
		Action:  "Add image URLs or upload image files",
		Code:    "IMG001",
	}
	msgUnmatched = UserMessage{
		Message: "Some products and images could not be matched",
		Action:  "Review the unmatched list and fix ids or images",
		Code:    "REC001",
	}
	msgStoreRead = UserMessage{
		Message: "Saved data could not be read",
		Action:  "Please try again in a few moments",
		Code:    "STO001",
	}
	msgStoreWrite = UserMessage{
		Message: "Data could not be saved",
		Action:  "Please try again",
		Code:    "STO002",
	}
	msgTooManyRuns = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimedOut = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Input Errors
	// =========================================================================
	{pattern: "invalid input", msg: msgInvalidInput},
	{pattern: "missing essential headers", msg: msgMissingHeaders},
	{pattern: "no valid rows", msg: msgNoValidRows},
	{pattern: "no usable images", msg: msgNoImages},
	{pattern: "unmatched records", msg: msgUnmatched},
	{
		pattern: "load schema",
		msg: UserMessage{
			Message: "The field schema could not be loaded",
			Action:  "Check the schema file and try again",
			Code:    "SCH001",
		},
	},
	{
		pattern: "schema file",
		msg: UserMessage{
			Message: "The field schema could not be loaded",
			Action:  "Check the schema file and try again",
			Code:    "SCH001",
		},
	},
	{
		pattern: "unknown collection",
		msg: UserMessage{
			Message: "That collection cannot be reset",
			Action:  "Use one of the pipeline collection names",
			Code:    "ADM001",
		},
	},

	// =========================================================================
	// Store Errors
	// =========================================================================
	{pattern: "store read", msg: msgStoreRead},
	{pattern: "store write", msg: msgStoreWrite},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent quoting",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid xlsx",
		msg: UserMessage{
			Message: "File is not a valid Excel workbook",
			Action:  "Re-save the file as .xlsx or export it as CSV",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or XLSX file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row and data rows",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Run Errors
	// =========================================================================
	{pattern: "too many concurrent runs", msg: msgTooManyRuns},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimedOut},
	{pattern: "timeout", msg: msgTimedOut},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(&MissingHeadersError{Fields: []string{"category"}})
//	// msg.Code == "HDR001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var structural *StructuralInputError
	var missing *MissingHeadersError
	var ioErr *store.IOError

	switch {
	case errors.As(err, &structural):
		return msgInvalidInput, true
	case errors.As(err, &missing):
		return msgMissingHeaders, true
	case errors.Is(err, ErrNoValidRows):
		return msgNoValidRows, true
	case errors.Is(err, ErrNoImages):
		return msgNoImages, true
	case errors.Is(err, ErrUnmatchedRecords):
		return msgUnmatched, true
	case errors.Is(err, ErrTooManyRuns):
		return msgTooManyRuns, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, true
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimedOut, true
	case errors.As(err, &ioErr):
		if ioErr.Op == "write" {
			return msgStoreWrite, true
		}
		return msgStoreRead, true
	}
	return UserMessage{}, false
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
