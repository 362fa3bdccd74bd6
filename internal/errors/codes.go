// Package errors defines the coded errors hexosearch reports to users.
//
// Codes read ERR_<number>_<NAME>; the first digit picks the category:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (cache, watermark, exclude list)
//   - 3XX: Search engine and network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category groups codes by the subsystem that failed.
type Category string

const (
	CategoryConfig Category = "CONFIG"
	CategoryIO Category = "IO"
	CategoryEngine Category = "ENGINE"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal Category = "INTERNAL"
)

// Severity decides whether a run can go on after the error.
type Severity string

const (
	// SeverityFatal aborts the run without touching the watermark.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails one step; the run continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning is reported and otherwise ignored.
	SeverityWarning Severity = "WARNING"
)

const (
	// 1xx
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// 2xx
	ErrCodeFileNotFound       = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission     = "ERR_202_FILE_PERMISSION"
	ErrCodeWatermarkMalformed = "ERR_203_WATERMARK_MALFORMED"
	ErrCodeLocked             = "ERR_204_RUN_LOCKED"
	ErrCodeCacheInvalid       = "ERR_205_CACHE_INVALID"
	ErrCodeCacheCorrupt       = "ERR_206_CACHE_CORRUPT"

	// 3xx
	ErrCodeEngineTimeout     = "ERR_301_ENGINE_TIMEOUT"
	ErrCodeEngineUnavailable = "ERR_302_ENGINE_UNAVAILABLE"
	ErrCodeEngineAuth        = "ERR_303_ENGINE_AUTH"
	ErrCodeBulkRejected      = "ERR_304_BULK_REJECTED"

	// 4xx
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"

	// 5xx
	ErrCodeInternal = "ERR_501_INTERNAL"
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "ERR_301_..." -> '3'
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryEngine
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeWatermarkMalformed:
		return SeverityWarning
	case ErrCodeFileNotFound, ErrCodeConfigNotFound, ErrCodeConfigInvalid,
		ErrCodeCacheInvalid, ErrCodeCacheCorrupt, ErrCodeLocked,
		ErrCodeEngineTimeout, ErrCodeEngineUnavailable, ErrCodeEngineAuth,
		ErrCodeBulkRejected:
		return SeverityFatal
	}
	return SeverityError
}

// isRetryableCode reports whether a later run may succeed without operator action.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEngineTimeout, ErrCodeEngineUnavailable, ErrCodeLocked:
		return true
	default:
		return false
	}
}
