package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"modestanalytics/api/mail"
	"modestanalytics/api/models"
	"modestanalytics/api/utils"
	"modestanalytics/api/verification"
)

// OwnerStore is the owner persistence needed by the registration flow.
type OwnerStore interface {
	Create(ctx context.Context, email, token string) (*models.Owner, error)
	FindByEmail(ctx context.Context, email string) (*models.Owner, error)
	SetVerification(ctx context.Context, ownerID int, code string, expiry time.Time) error
	ClearVerification(ctx context.Context, ownerID int) error
}

type OwnerHandlers struct {
	Owners    OwnerStore
	Mailer    mail.Mailer
	PublicURL string
	logger    *zap.Logger
}

func NewOwnerHandlers(owners OwnerStore, mailer mail.Mailer, publicURL string, logger *zap.Logger) *OwnerHandlers {
	return &OwnerHandlers{
		Owners:    owners,
		Mailer:    mailer,
		PublicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Register finds or creates the owner for an email address and mails a
// fresh verification code. The tracking token is minted once, on first
// registration, and survives re-verification.
func (h *OwnerHandlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	owner, err := h.Owners.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrOwnerNotFound) {
		token, tokenErr := utils.GenerateToken()
		if tokenErr != nil {
			h.logger.Error("Failed to generate tracking token", zap.Error(tokenErr))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
			return
		}
		owner, err = h.Owners.Create(ctx, email, token)
	}
	if err != nil {
		h.logger.Error("Failed to look up or create owner", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	code, expiry, err := verification.NewCode(time.Now().UTC())
	if err != nil {
		h.logger.Error("Failed to issue verification code", zap.Int("owner_id", owner.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}
	if err := h.Owners.SetVerification(ctx, owner.ID, code, expiry); err != nil {
		h.logger.Error("Failed to store verification code", zap.Int("owner_id", owner.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	textBody := fmt.Sprintf("Your verification code is: %s\nIt expires in 10 minutes.", code)
	htmlBody := fmt.Sprintf("<p>Your verification code is: <strong>%s</strong></p><p>This code expires in 10 minutes.</p>", code)

	// The user is blocked without this mail, so a transport failure is
	// surfaced, unlike digest sends.
	if err := h.Mailer.Send(ctx, email, "Your Modest Analytics verification code", textBody, htmlBody); err != nil {
		h.logger.Error("Failed to send verification email", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send verification email."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent."})
}

// Verify checks the submitted code and, on success, clears the pending
// state and hands back the embed snippet with the owner's token.
func (h *OwnerHandlers) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	owner, err := h.Owners.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrOwnerNotFound) {
		h.logger.Error("Failed to look up owner for verify", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify"})
		return
	}

	switch checkErr := verification.Check(owner, req.Code, time.Now().UTC()); {
	case errors.Is(checkErr, models.ErrNoVerificationPending):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No verification pending for this email."})
		return
	case errors.Is(checkErr, models.ErrVerificationExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification code expired. Please request a new one."})
		return
	case errors.Is(checkErr, models.ErrVerificationMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code."})
		return
	}

	if err := h.Owners.ClearVerification(ctx, owner.ID); err != nil {
		h.logger.Error("Failed to clear verification code", zap.Int("owner_id", owner.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify"})
		return
	}

	snippet := fmt.Sprintf(`<script src="%s/embed.js" data-token="%s"></script>`, h.PublicURL, owner.Token)
	c.JSON(http.StatusOK, gin.H{"snippet": snippet, "token": owner.Token})
}
