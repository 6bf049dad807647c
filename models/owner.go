package models

import "time"

type RegisterRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// Owner is a registered site operator. Token is the public tracking
// identity embedded in customer pages; it never changes once issued.
type Owner struct {
	ID                     int        `db:"id" json:"id"`
	Email                  string     `db:"email" json:"email"`
	Token                  string     `db:"token" json:"token"`
	VerificationCode       *string    `db:"verification_code" json:"-"`
	VerificationCodeExpiry *time.Time `db:"verification_code_expiry" json:"-"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
}
