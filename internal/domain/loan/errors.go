package loan

import "errors"

var (
	ErrNotFound        = errors.New("loan not found")
	ErrAlreadySettled  = errors.New("loan already settled")
	ErrInvalidLoan     = errors.New("invalid loan record")
	ErrActiveLoanLimit = errors.New("active loan limit reached for current plan")
	ErrPremiumRequired = errors.New("feature requires the premium plan")
)
