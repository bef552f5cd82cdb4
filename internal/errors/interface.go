package errors

// ErrorCode identifies a class of failure. Codes are stable and appear in
// logs as error_code.
type ErrorCode string

// Error is an error carrying a code, an optional message override, optional
// data and an optional cause.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors. Components call New() once per function and
// build every error they return from it.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
