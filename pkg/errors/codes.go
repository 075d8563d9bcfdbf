package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_011"
)

// Short aliases used throughout the codebase.
const (
	CodeInternal           = ErrCodeInternal
	CodeInvalidParam       = ErrCodeBadRequest
	CodeNotFound           = ErrCodeNotFound
	CodeConflict           = ErrCodeConflict
	CodeServiceUnavailable = ErrCodeServiceUnavailable
	CodeDatabaseError      = ErrCodeDatabaseError
	CodeCacheError         = ErrCodeCacheError
	CodeMessageQueueError  = ErrCodeMessageQueueError
	CodeOK                 = ErrorCode("OK")
	CodeUnknown            = ErrorCode("UNKNOWN")
)

// Reference Library Error Codes
const (
	// ErrCodeLibraryRecordInvalid marks a symptom master row missing its
	// symptom id or segment text; the row is skipped, never fatal.
	ErrCodeLibraryRecordInvalid ErrorCode = "LIB_001"

	// ErrCodeLibraryUnavailable means the library source of record could not
	// be read at all.  Fatal to any matching run.
	ErrCodeLibraryUnavailable ErrorCode = "LIB_002"

	ErrCodeSymptomNotFound ErrorCode = "LIB_003"
	ErrCodeLibraryEmpty    ErrorCode = "LIB_004"
)

// Clinical Note Error Codes
const (
	// ErrCodeMalformedNote marks a note with empty text; skipped with a
	// warning, never fatal to a batch.
	ErrCodeMalformedNote ErrorCode = "NOTE_001"

	// ErrCodeUnparseableDate marks a note whose date of service cannot be
	// parsed; the note cannot be placed on any pivot column.
	ErrCodeUnparseableDate ErrorCode = "NOTE_002"

	ErrCodeNoteNotFound ErrorCode = "NOTE_003"
)

// Extraction Error Codes
const (
	ErrCodeExtractionFailed   ErrorCode = "EXT_001"
	ErrCodeExtractionCanceled ErrorCode = "EXT_002"
)

// Aggregation Error Codes
const (
	ErrCodeDimensionInvalid ErrorCode = "AGG_001"
	ErrCodeDateRangeInvalid ErrorCode = "AGG_002"
)

// Comparison Harness Error Codes
const (
	ErrCodeComparisonFailed ErrorCode = "CMP_001"
)

// Domain-specific aliases.
const (
	CodeLibraryRecordInvalid = ErrCodeLibraryRecordInvalid
	CodeLibraryUnavailable   = ErrCodeLibraryUnavailable
	CodeSymptomNotFound      = ErrCodeSymptomNotFound
	CodeLibraryEmpty         = ErrCodeLibraryEmpty
	CodeMalformedNote        = ErrCodeMalformedNote
	CodeUnparseableDate      = ErrCodeUnparseableDate
	CodeNoteNotFound         = ErrCodeNoteNotFound
	CodeExtractionFailed     = ErrCodeExtractionFailed
	CodeExtractionCanceled   = ErrCodeExtractionCanceled
	CodeDimensionInvalid     = ErrCodeDimensionInvalid
	CodeDateRangeInvalid     = ErrCodeDateRangeInvalid
	CodeComparisonFailed     = ErrCodeComparisonFailed
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,

	ErrCodeLibraryRecordInvalid: http.StatusUnprocessableEntity,
	ErrCodeLibraryUnavailable:   http.StatusServiceUnavailable,
	ErrCodeSymptomNotFound:      http.StatusNotFound,
	ErrCodeLibraryEmpty:         http.StatusServiceUnavailable,

	ErrCodeMalformedNote:   http.StatusUnprocessableEntity,
	ErrCodeUnparseableDate: http.StatusUnprocessableEntity,
	ErrCodeNoteNotFound:    http.StatusNotFound,

	ErrCodeExtractionFailed:   http.StatusInternalServerError,
	ErrCodeExtractionCanceled: http.StatusInternalServerError,

	ErrCodeDimensionInvalid: http.StatusBadRequest,
	ErrCodeDateRangeInvalid: http.StatusBadRequest,

	ErrCodeComparisonFailed: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessageQueueError:  "message queue error",

	ErrCodeLibraryRecordInvalid: "invalid symptom master record",
	ErrCodeLibraryUnavailable:   "symptom library unavailable",
	ErrCodeSymptomNotFound:      "symptom not found",
	ErrCodeLibraryEmpty:         "symptom library is empty",

	ErrCodeMalformedNote:   "malformed clinical note",
	ErrCodeUnparseableDate: "unparseable date of service",
	ErrCodeNoteNotFound:    "clinical note not found",

	ErrCodeExtractionFailed:   "symptom extraction failed",
	ErrCodeExtractionCanceled: "symptom extraction canceled",

	ErrCodeDimensionInvalid: "invalid pivot dimension",
	ErrCodeDateRangeInvalid: "invalid date range",

	ErrCodeComparisonFailed: "matcher comparison failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
