package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when the email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
	// ErrDisplayNameTooLong is returned for display names over 64 characters.
	ErrDisplayNameTooLong = errors.New("display name must be at most 64 characters")
	// ErrAccountNotFound is returned when an account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when the email is already registered.
	ErrAccountExists = errors.New("account with this email already exists")
	// ErrInvalidToken is returned when a token is malformed, forged or of the wrong type.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Error codes carried in service responses.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidEmail       = "invalid_email"
	CodeWeakPassword       = "weak_password"
	CodePasswordTooLong    = "password_too_long"
	CodeDisplayNameTooLong = "display_name_too_long"
	CodeAccountNotFound    = "account_not_found"
	CodeAccountExists      = "account_exists"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
	CodeInternal           = "internal"
)

var codes = []struct {
	code string
	err  error
}{
	{CodeInvalidCredentials, ErrInvalidCredentials},
	{CodeInvalidEmail, ErrInvalidEmail},
	{CodeWeakPassword, ErrWeakPassword},
	{CodePasswordTooLong, ErrPasswordTooLong},
	{CodeDisplayNameTooLong, ErrDisplayNameTooLong},
	{CodeAccountNotFound, ErrAccountNotFound},
	{CodeAccountExists, ErrAccountExists},
	{CodeExpiredToken, ErrExpiredToken},
	{CodeInvalidToken, ErrInvalidToken},
}

// CodeOf returns the error code for err, "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorForCode returns the sentinel for code, or nil if it has none.
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}

// ServiceError is an auth error after crossing the bus.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return ErrorForCode(e.Code)
}

// NewServiceError converts err for transport. It returns nil for nil.
func NewServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	return &ServiceError{Code: CodeOf(err), Message: err.Error()}
}
