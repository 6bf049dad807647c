package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"modestanalytics/api/models"
	"modestanalytics/api/utils"
)

// TokenResolver maps a public tracking token back to its owner.
type TokenResolver interface {
	FindByToken(ctx context.Context, token string) (*models.Owner, error)
}

// PageviewStore is the event persistence needed by the tracking flow.
type PageviewStore interface {
	Record(ctx context.Context, ownerID int, domain, path, referrer, token string) (*models.Pageview, error)
	UpdateDwell(ctx context.Context, token string, dwellSeconds int) error
}

type TrackHandlers struct {
	Owners    TokenResolver
	Pageviews PageviewStore
	logger    *zap.Logger
}

func NewTrackHandlers(owners TokenResolver, pageviews PageviewStore, logger *zap.Logger) *TrackHandlers {
	return &TrackHandlers{Owners: owners, Pageviews: pageviews, logger: logger}
}

type pageviewForm struct {
	Token    string `form:"token" binding:"required"`
	Domain   string `form:"domain" binding:"required"`
	Path     string `form:"path" binding:"required"`
	Referrer string `form:"referrer"`
}

type heartbeatForm struct {
	Token           string `form:"token" binding:"required"`
	TimeSpentOnPage int    `form:"time_spent_on_page"`
}

// Pageview records one page load posted by the embed script and returns
// the correlation token for later heartbeat updates.
func (h *TrackHandlers) Pageview(c *gin.Context) {
	var form pageviewForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	owner, err := h.Owners.FindByToken(ctx, form.Token)
	if err != nil {
		if errors.Is(err, models.ErrOwnerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown token."})
			return
		}
		h.logger.Error("Failed to resolve tracking token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record pageview"})
		return
	}

	correlationToken, err := utils.GenerateToken()
	if err != nil {
		h.logger.Error("Failed to generate correlation token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record pageview"})
		return
	}

	_, err = h.Pageviews.Record(ctx, owner.ID,
		truncate(strings.TrimSpace(form.Domain), 255),
		truncate(strings.TrimSpace(form.Path), 512),
		truncate(strings.TrimSpace(form.Referrer), 1024),
		correlationToken,
	)
	if err != nil {
		h.logger.Error("Failed to record pageview", zap.Int("owner_id", owner.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record pageview"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": correlationToken})
}

// Heartbeat rewrites the dwell time of a previously recorded pageview.
func (h *TrackHandlers) Heartbeat(c *gin.Context) {
	var form heartbeatForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if form.TimeSpentOnPage < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_spent_on_page must not be negative"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.Pageviews.UpdateDwell(ctx, form.Token, form.TimeSpentOnPage); err != nil {
		if errors.Is(err, models.ErrPageviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pageview not found."})
			return
		}
		h.logger.Error("Failed to update dwell time", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pageview"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
