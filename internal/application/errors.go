package application

import "errors"

// Category classifies a failure by how the engine reacts to it.
type Category string

const (
	// CategoryConfiguration marks missing or invalid input. Fatal, never retried.
	CategoryConfiguration Category = "configuration"
	// CategoryTransient marks network and navigation failures. Retried up to a bound.
	CategoryTransient Category = "transient"
	// CategoryAuthentication marks rejected credentials. Fatal to the owning account.
	CategoryAuthentication Category = "authentication"
	// CategoryAction marks a control that could not be driven. Recorded per resource.
	CategoryAction Category = "action"
)

// Sentinel errors returned by the workflow.
var (
	ErrNoAccounts           = errors.New("no accounts configured")
	ErrNoResources          = errors.New("no resources discovered")
	ErrStillOnLogin         = errors.New("still on login page")
	ErrSessionExpired       = errors.New("session expired: redirected to login")
	ErrNoActionableControl  = errors.New("no actionable start or restart control")
	ErrConfirmationNotFound = errors.New("confirmation control not found")
	ErrAllAccountsFailed    = errors.New("every account failed")
)

// CategorizedError attaches a Category to an underlying error.
type CategorizedError struct {
	Category Category
	Err      error
}

// Error returns the underlying message; the category is for callers, not users.
func (e *CategorizedError) Error() string {
	return e.Err.Error()
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Categorize wraps err with category. A nil err stays nil.
func Categorize(category Category, err error) error {
	if err == nil {
		return nil
	}
	return &CategorizedError{Category: category, Err: err}
}

// CategoryOf returns the outermost category attached to err, or "" when none.
func CategoryOf(err error) Category {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// IsConfiguration reports whether err is a configuration failure.
func IsConfiguration(err error) bool { return CategoryOf(err) == CategoryConfiguration }

// IsTransient reports whether err is a retryable navigation failure.
func IsTransient(err error) bool { return CategoryOf(err) == CategoryTransient }

// IsAuthentication reports whether err is a rejected-credentials failure.
func IsAuthentication(err error) bool { return CategoryOf(err) == CategoryAuthentication }
