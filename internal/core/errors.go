package core

import "errors"

var (
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrNegativeAmount           = errors.New("amount cannot be negative")
	ErrInvalidDate              = errors.New("invalid date")
	ErrInvalidMonth             = errors.New("invalid month")
	ErrEmptyName                = errors.New("empty name")
	ErrNameTooLong              = errors.New("name too long (max 200 characters)")
	ErrInvalidCategory          = errors.New("invalid category")
	ErrInvalidShares            = errors.New("number of shares must be at least 1")
	ErrInvalidRecurrence        = errors.New("invalid recurrence")
	ErrInvalidFrequency         = errors.New("invalid frequency")
	ErrInvalidInterval          = errors.New("custom interval must be at least 1 day")
	ErrInvalidTiming            = errors.New("invalid payment timing")
	ErrInvalidMethod            = errors.New("invalid budgeting method")
	ErrInvalidBucket            = errors.New("invalid bucket")
	ErrInvalidPercentages       = errors.New("percentages must be between 0 and 1 and sum to at most 1")
	ErrMissingCustomPercentages = errors.New("budgeting method requires custom percentages")
	ErrInvalidExpenseType       = errors.New("invalid expense type")
	ErrInvalidContext           = errors.New("invalid classification context")
	ErrTargetDateBeforeStart    = errors.New("target date must be after start date")
	ErrMissingUser              = errors.New("missing user")
)

// ValidationError reports a rejected field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
