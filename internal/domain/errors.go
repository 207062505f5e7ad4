package domain

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrPrimaryEmailMissing    = errors.New("primary email address not found in event")
	ErrInvalidSignature       = errors.New("webhook signature verification failed")
	ErrMalformedEvent         = errors.New("malformed webhook event")
	ErrInvalidTransition      = errors.New("invalid signup state transition")
	ErrVerificationIncomplete = errors.New("email verification incomplete")
	ErrSignupNotFound         = errors.New("signup attempt not found or expired")
)
