package shared

// DomainError is an error with a stable code that the HTTP layer maps to a
// status. The message is safe to show to shoppers; the cause is not.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.cause }

// Is matches any DomainError with the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// Wrap returns a copy of e carrying cause. The copy still matches e with
// errors.Is and exposes cause to errors.As.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, cause: cause}
}

// WithMessage returns a copy of e with a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, cause: e.cause}
}

var (
	ErrPersistenceFailed = NewDomainError("PERSISTENCE_FAILED", "Collection could not be saved")
	ErrQuotaExceeded     = NewDomainError("STORAGE_QUOTA_EXCEEDED", "Storage quota exceeded")
	ErrUnavailable       = NewDomainError("SERVICE_UNAVAILABLE", "Upstream service unavailable")
)
