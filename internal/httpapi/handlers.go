package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"checkin-calls/internal/auth"
	"checkin-calls/internal/calls"
	"checkin-calls/internal/observability"
	"checkin-calls/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Calls   *calls.Service
	Metrics *observability.Metrics
}

// --- Auth ---

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new token pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	now := time.Now()
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	pair, err := h.Auth.IssuePair(now, claims.UserID)
	if err != nil {
		logger.FromGin(c).Error("token issuance failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

// TriggerCall starts a check-in call for one of the caller's patients.
func (h Handlers) TriggerCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}

	var req calls.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Metrics.ObserveTrigger("bad_request")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.UserID = userID

	res, err := h.Calls.Trigger(c.Request.Context(), req)
	if err != nil {
		status, msg, outcome := triggerError(err)
		if status == http.StatusInternalServerError {
			logger.FromGin(c).Error("trigger call failed", "err", err, "patient_id", req.PatientID)
		}
		h.Metrics.ObserveTrigger(outcome)
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}

	h.Metrics.ObserveTrigger("ok")
	c.JSON(http.StatusOK, res)
}

func triggerError(err error) (int, string, string) {
	switch {
	case errors.Is(err, calls.ErrInvalidArgument):
		return http.StatusBadRequest, "patient_id required", "bad_request"
	case errors.Is(err, calls.ErrPatientNotFound):
		return http.StatusNotFound, "patient not found", "not_found"
	case errors.Is(err, calls.ErrInvalidPhone):
		return http.StatusBadRequest, "invalid phone number format", "invalid_phone"
	default:
		return http.StatusInternalServerError, "failed to initiate call", "error"
	}
}
