// Package verification issues and checks the one-time email codes used
// during owner registration.
package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"modestanalytics/api/models"
)

// TTL is how long an issued code stays valid.
const TTL = 10 * time.Minute

var codeSpace = big.NewInt(1_000_000)

// NewCode returns a 6-digit zero-padded code and its expiry.
func NewCode(now time.Time) (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), now.Add(TTL), nil
}

// Check validates a submitted code against the owner's pending one.
// An expired pending code is reported but deliberately not cleared;
// only a successful verify clears state.
func Check(owner *models.Owner, code string, now time.Time) error {
	if owner == nil || owner.VerificationCode == nil {
		return models.ErrNoVerificationPending
	}
	if owner.VerificationCodeExpiry == nil || now.After(owner.VerificationCodeExpiry.UTC()) {
		return models.ErrVerificationExpired
	}
	if strings.TrimSpace(code) != *owner.VerificationCode {
		return models.ErrVerificationMismatch
	}
	return nil
}
