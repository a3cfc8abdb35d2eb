package entities

import "errors"

// Error codes consumed verbatim by the presentation layer.
const (
	CodeInvalidMobile         = "INVALID_MOBILE"
	CodeMessageTooLong        = "MESSAGE_TOO_LONG"
	CodeParseError            = "PARSE_ERROR"
	CodeTooManyItems          = "TOO_MANY_ITEMS"
	CodeUnknownItem           = "UNKNOWN_ITEM"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeOrderNotFound         = "ORDER_NOT_FOUND"
	CodeOrderAlreadyFulfilled = "ORDER_ALREADY_FULFILLED"
	CodeDatabaseError         = "DATABASE_ERROR"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Repository sentinels. The service maps them onto the codes above; raw
// driver faults never cross the service boundary.
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadyFulfilled = errors.New("order already fulfilled")
	ErrOrderAlreadyExists    = errors.New("order already exists")
)

// Error is the tagged failure outcome of a service operation. Every error
// returned from the service boundary is one of these.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NewErrorWithDetails(code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// AsError unwraps err into an *Error, reporting whether it is one.
func AsError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
