package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ykvlv/deadman/internal/account"
	"github.com/ykvlv/deadman/internal/domain"
	"github.com/ykvlv/deadman/internal/lock"
	"github.com/ykvlv/deadman/internal/watchdog"
)

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// triggerRun runs one batch synchronously and returns its report.
// A client disconnect does not abort the batch.
func (h *handlers) triggerRun(c *gin.Context) {
	report, err := h.runner.RunOnce(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, lock.ErrHeld) {
		c.JSON(http.StatusConflict, watchdog.NewFailureReport(err, time.Now()))
		return
	}
	if err != nil {
		h.log.Error("manual run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, watchdog.NewFailureReport(err, time.Now()))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handlers) status(c *gin.Context) {
	view, err := h.accounts.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		h.fail(c, err)
		return
	}
	if upd.Empty() {
		h.fail(c, domain.Invalid("settings", "no settings to update"))
		return
	}
	p, err := h.accounts.UpdateSettings(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}

func (h *handlers) checkIn(c *gin.Context) {
	ci, err := h.accounts.CheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkinResponse{ID: ci.ID, CheckinAt: ci.CheckinAt})
}

func (h *handlers) history(c *gin.Context) {
	list, err := h.accounts.History(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkins": toCheckinResponses(list)})
}

func (h *handlers) listContacts(c *gin.Context) {
	list, err := h.accounts.ListContacts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": toContactResponses(list)})
}

func (h *handlers) addContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact, err := h.accounts.AddContact(c.Request.Context(), c.Param("id"), domain.NewContact{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Priority: req.Priority,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toContactResponse(contact))
}

func (h *handlers) deleteContact(c *gin.Context) {
	if err := h.accounts.DeleteContact(c.Request.Context(), c.Param("id"), c.Param("contactId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) alerts(c *gin.Context) {
	list, err := h.accounts.Alerts(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": toAlertResponses(list)})
}

// fail maps service errors to HTTP statuses.
func (h *handlers) fail(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Message, "field": ve.Field})
	case account.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		return 0
	}
	return n
}
