package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/smartsync/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "structural input error",
			err:         &StructuralInputError{Input: "headers", Reason: "no header row"},
			wantCode:    "INP001",
			wantMessage: "The uploaded file could not be read as a table",
		},
		{
			name:        "wrapped missing headers error",
			err:         fmt.Errorf("persist: %w", &MissingHeadersError{Fields: []string{"category"}}),
			wantCode:    "HDR001",
			wantMessage: "Required columns are missing from your file",
		},
		{
			name:        "unknown reset collection",
			err:         errors.New(`reset: unknown collection: "users"`),
			wantCode:    "ADM001",
			wantMessage: "That collection cannot be reset",
		},
		{
			name:        "no valid rows",
			err:         ErrNoValidRows,
			wantCode:    "ROW001",
			wantMessage: "No rows have all required values",
		},
		{
			name:        "no images",
			err:         ErrNoImages,
			wantCode:    "IMG001",
			wantMessage: "No usable product images were found",
		},
		{
			name:        "unmatched reconciliation",
			err:         fmt.Errorf("%w: 1 products, 0 images", ErrUnmatchedRecords),
			wantCode:    "REC001",
			wantMessage: "Some products and images could not be matched",
		},
		{
			name:        "store write error",
			err:         &store.IOError{Collection: "products", Op: "write", Err: errors.New("disk full")},
			wantCode:    "STO002",
			wantMessage: "Data could not be saved",
		},
		{
			name:        "store read error",
			err:         &store.IOError{Collection: "products", Op: "read", Err: errors.New("closed")},
			wantCode:    "STO001",
			wantMessage: "Saved data could not be read",
		},
		{
			name:        "run limiter rejection",
			err:         ErrTooManyRuns,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "deadline exceeded",
			err:         fmt.Errorf("ingest: %w", context.DeadlineExceeded),
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "file too large",
			err:         errors.New("file too large: 200MB exceeds limit"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds maximum size limit",
		},
		{
			name:        "invalid xlsx",
			err:         errors.New("invalid xlsx: zip: not a valid zip file"),
			wantCode:    "FILE002",
			wantMessage: "File is not a valid Excel workbook",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("EMPTY FILE: no header row"),
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &MissingHeadersError{Fields: []string{"category"}}
	result := FormatUserError(err)

	expected := "Required columns are missing from your file (Code: HDR001). Add the missing columns and upload again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("invalid csv: bare quote"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("persist: %w", ErrNoValidRows)
		userErr := NewUserError(techErr)

		if userErr.Error() != "No rows have all required values" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, ErrNoValidRows) {
			t.Error("Unwrap() should return original error")
		}
	})
}
