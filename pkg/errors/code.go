package errors

// ErrorCode identifies an error class across logs and API responses.
type ErrorCode int

// Error code ranges:
// 10000-10999: System & common errors
// 11000-11999: Authentication errors
// 12000-12999: Problem & test case errors
// 13000-13999: Submission & judge errors

const (
	Success ErrorCode = 10000

	// Generic (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Cache (10200-10299)
	CacheError     ErrorCode = 10200
	CacheMiss      ErrorCode = 10201
	CacheSetFailed ErrorCode = 10202
	LockFailed     ErrorCode = 10203

	// Validation (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// Authentication (11000-11099)
	TokenExpired ErrorCode = 11003
	TokenInvalid ErrorCode = 11004

	// Problem (12000-12099)
	ProblemNotFound ErrorCode = 12000

	// Test cases (12100-12199)
	TestCaseNotFound ErrorCode = 12100
	TestCaseInvalid  ErrorCode = 12102

	// Submission (13000-13099)
	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	CodeTooLarge           ErrorCode = 13002
	LanguageNotSupported   ErrorCode = 13003
	SubmissionJudged       ErrorCode = 13006

	// Judge (13100-13199)
	JudgeQueueFull      ErrorCode = 13100
	JudgeSystemError    ErrorCode = 13101
	CompilationError    ErrorCode = 13102
	RuntimeError        ErrorCode = 13103
	TimeLimitExceeded   ErrorCode = 13104
	MemoryLimitExceeded ErrorCode = 13105
	JudgeInProgress     ErrorCode = 13107
	JudgeShutdown       ErrorCode = 13108
)

var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Database transaction failed",

	CacheError:     "Cache operation failed",
	CacheMiss:      "Cache miss",
	CacheSetFailed: "Failed to set cache",
	LockFailed:     "Failed to acquire lock",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	TokenExpired: "Token has expired",
	TokenInvalid: "Invalid token",

	ProblemNotFound: "Problem not found",

	TestCaseNotFound: "Test case not found",
	TestCaseInvalid:  "Invalid test case format",

	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	CodeTooLarge:           "Code is too large",
	LanguageNotSupported:   "Programming language not supported",
	SubmissionJudged:       "Submission has already been judged",

	JudgeQueueFull:      "Judge queue is full, please try again later",
	JudgeSystemError:    "Judge system error",
	CompilationError:    "Compilation error",
	RuntimeError:        "Runtime error",
	TimeLimitExceeded:   "Time limit exceeded",
	MemoryLimitExceeded: "Memory limit exceeded",
	JudgeInProgress:     "Submission is being judged",
	JudgeShutdown:       "Judge is shutting down",
}

// Message returns the default message for the code.
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the HTTP status that best represents the code.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == ProblemNotFound, c == SubmissionNotFound, c == TestCaseNotFound:
		return 404
	case c == SubmissionJudged, c == JudgeInProgress:
		return 409
	case c == TooManyRequests, c == JudgeQueueFull:
		return 429
	case c == ServiceUnavailable, c == JudgeShutdown:
		return 503
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge:
		return 400
	default:
		return 500
	}
}
