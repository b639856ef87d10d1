package core

// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes that
// can be quoted in support requests. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Input not found: The input file does not exist
//	          Action: Check INPUT_PATH or the --input flag
//	          Kind: ErrNotFound
//
//	FILE002 - Empty file: The file has no header row
//	          Action: Provide a file whose first line names the columns
//	          Patterns: "empty input"
//
//	FILE003 - Encoding error: The file is not valid UTF-8
//	          Action: Set SOURCE_ENCODING to latin1, windows-1252 or utf-8-lossy
//	          Patterns: "invalid utf-8", "unsupported encoding"
//
//	FILE004 - Malformed file: A row does not match the header
//	          Action: Check the delimiter and quoting on the reported line
//	          Kind: ErrParse
//
//	FILE005 - Write failed: The output file could not be written
//	          Action: Check permissions and free space for OUTPUT_PATH
//	          Kind: ErrWrite
//
//	FILE006 - File too large: Upload exceeds SERVER_MAX_UPLOAD_SIZE
//	          Patterns: "request body too large"
//
//	FILE007 - Unreadable file: The file exists but could not be opened
//	          Action: Check file permissions for INPUT_PATH and OUTPUT_PATH
//	          Patterns: "not readable"
//
// # Catalog Errors (CAT001-CAT099)
//
//	CAT001 - Unknown catalog: The rule catalog is not registered
//	         Kind: ErrUnknownCatalog
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - System busy: Too many conversions in progress (ErrTooManyJobs)
//	JOB002 - Cancelled: "context canceled"
//	JOB003 - Timed out: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: "connection refused"
//	DB002 - Authentication: "password authentication failed"
//	DB003 - No database configured: "database url is not configured"
//	DB004 - Permission denied: "permission denied"
//
// # Default Error (ERR000)
//
// Entries are tried in order and the first match wins, so more specific
// entries come first. Kinds are matched with errors.Is; patterns are matched
// case-insensitively with strings.Contains.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern maps either an error kind or a message fragment to a user message.
type errorPattern struct {
	kind    error
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Specific parse failures first; they also wrap ErrParse.
	{
		pattern: "empty input",
		msg: UserMessage{
			Message: "The file has no header row",
			Action:  "Provide a file whose first line names the columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid utf-8",
		msg: UserMessage{
			Message: "The file is not valid UTF-8",
			Action:  "Set SOURCE_ENCODING to latin1, windows-1252 or utf-8-lossy",
			Code:    "FILE003",
		},
	},
	{
		pattern: "unsupported encoding",
		msg: UserMessage{
			Message: "The requested source encoding is not supported",
			Action:  "Use utf-8, utf-8-lossy, latin1 or windows-1252",
			Code:    "FILE003",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Convert the file with the CLI instead",
			Code:    "FILE006",
		},
	},
	{
		pattern: "not readable",
		msg: UserMessage{
			Message: "The file exists but could not be opened",
			Action:  "Check file permissions for INPUT_PATH and OUTPUT_PATH",
			Code:    "FILE007",
		},
	},
	{
		kind: ErrNotFound,
		msg: UserMessage{
			Message: "The input file does not exist",
			Action:  "Check INPUT_PATH or the --input flag",
			Code:    "FILE001",
		},
	},
	{
		kind: ErrParse,
		msg: UserMessage{
			Message: "A row does not match the header",
			Action:  "Check the delimiter and quoting on the reported line",
			Code:    "FILE004",
		},
	},
	{
		kind: ErrWrite,
		msg: UserMessage{
			Message: "The output file could not be written",
			Action:  "Check permissions and free space for OUTPUT_PATH",
			Code:    "FILE005",
		},
	},
	{
		kind: ErrUnknownCatalog,
		msg: UserMessage{
			Message: "The rule catalog is not registered",
			Action:  "List catalogs with `ratingprep catalogs`",
			Code:    "CAT001",
		},
	},
	{
		kind: ErrTooManyJobs,
		msg: UserMessage{
			Message: "Too many conversions in progress",
			Action:  "Please wait a moment and try again",
			Code:    "JOB001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The operation was cancelled",
			Action:  "Please try again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Use the CLI for large files or raise SERVER_REQUEST_TIMEOUT",
			Code:    "JOB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and that the server is running",
			Code:    "DB001",
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "Database rejected the credentials",
			Action:  "Check the user and password in DATABASE_URL",
			Code:    "DB002",
		},
	},
	{
		pattern: "database url is not configured",
		msg: UserMessage{
			Message: "No database is configured",
			Action:  "Set DATABASE_URL before exporting",
			Code:    "DB003",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Permission denied",
			Action:  "Check file or database privileges",
			Code:    "DB004",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty message for nil and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if ep.kind != nil {
			if errors.Is(err, ep.kind) {
				return ep.msg
			}
			continue
		}
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
type UserError struct {
	Technical error
	User      UserMessage
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
	return &UserError{Technical: err, User: MapError(err)}
}
