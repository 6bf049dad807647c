package models

import "errors"

var (
	ErrOwnerNotFound = errors.New("owner not found")

	ErrPageviewNotFound = errors.New("pageview not found")

	ErrNoVerificationPending = errors.New("no verification pending")

	ErrVerificationExpired = errors.New("verification code expired")

	ErrVerificationMismatch = errors.New("verification code mismatch")
)
