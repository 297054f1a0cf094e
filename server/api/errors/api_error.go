package errors

import (
	"errors"
	"net/http"
)

const (
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeUserAlreadyExists = "USER_ALREADY_EXISTS"
	ErrCodeStoreUnavailable  = "STORE_UNAVAILABLE"
	ErrCodeInvalidID         = "INVALID_ID"
	ErrCodeInvalidBody       = "INVALID_BODY"
)

// APIError wraps error which is interpreted as in http error
type APIError struct {
	Message    string
	Err        error
	HTTPStatus int
	ErrCode    string
}

func NewAPIError(statusCode int, errCode string, message string, err error) (ae APIError) {
	ae = APIError{
		HTTPStatus: statusCode,
		ErrCode:    errCode,
		Message:    message,
		Err:        err,
	}
	return ae
}

func NewBadRequest(errCode string, message string, err error) APIError {
	return NewAPIError(http.StatusBadRequest, errCode, message, err)
}

// Error interface implementation
func (ae APIError) Error() string {
	if ae.Message != "" {
		return ae.Message
	}
	if ae.Err != nil {
		return ae.Err.Error()
	}
	return http.StatusText(ae.HTTPStatus)
}

func (ae APIError) Unwrap() error {
	return ae.Err
}

// AsAPIError finds the first APIError in err's chain.
func AsAPIError(err error) (APIError, bool) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return APIError{}, false
}
