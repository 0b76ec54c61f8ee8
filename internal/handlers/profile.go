package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dermalab/dermacare-backend/internal/middleware"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/services"
)

type ProfileHandler struct {
	log        *logger.Logger
	profileSvc services.ProfileService
}

func NewProfileHandler(log *logger.Logger, profileSvc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		log:        log.With("handler", "ProfileHandler"),
		profileSvc: profileSvc,
	}
}

// POST /api/profile
// Submit (or resubmit) the skin quiz; every submission appends a new
// profile version.
func (h *ProfileHandler) Submit(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	profile, err := h.profileSvc.Submit(c.Request.Context(), userID, in)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "profile_rejected", err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// GET /api/profile
// Current (latest-version) profile.
func (h *ProfileHandler) Current(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	profile, err := h.profileSvc.Current(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_load_failed", err)
		return
	}
	if profile == nil {
		RespondError(c, http.StatusNotFound, "no_profile", fmt.Errorf("no skin profile found"))
		return
	}
	RespondOK(c, profile)
}
