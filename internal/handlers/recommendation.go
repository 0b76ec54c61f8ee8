package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dermalab/dermacare-backend/internal/middleware"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/services"
)

type RecommendationHandler struct {
	log    *logger.Logger
	recSvc services.RecommendationService
}

func NewRecommendationHandler(log *logger.Logger, recSvc services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		log:    log.With("handler", "RecommendationHandler"),
		recSvc: recSvc,
	}
}

// GET /api/recommendations
// Resolved routine for the caller's current profile version.
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	result, err := h.recSvc.ResolveRecommendations(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("recommendation resolution failed", "user_id", userID, "error", err)
		RespondError(c, http.StatusInternalServerError, "resolution_failed", fmt.Errorf("could not resolve recommendations"))
		return
	}
	if result == nil {
		RespondError(c, http.StatusNotFound, "no_profile", fmt.Errorf("complete the skin quiz first"))
		return
	}
	RespondOK(c, result)
}
