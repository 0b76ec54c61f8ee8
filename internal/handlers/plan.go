package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dermalab/dermacare-backend/internal/middleware"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/services"
)

type PlanHandler struct {
	log     *logger.Logger
	planSvc services.PlanService
}

func NewPlanHandler(log *logger.Logger, planSvc services.PlanService) *PlanHandler {
	return &PlanHandler{
		log:     log.With("handler", "PlanHandler"),
		planSvc: planSvc,
	}
}

// profile_id lets a client that just submitted the quiz read back the
// plan for that exact version without racing latest-version
// resolution.
func explicitProfileID(c *gin.Context) *uuid.UUID {
	raw := c.Query("profile_id")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// GET /api/plan
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	result, err := h.planSvc.GetPlan(c.Request.Context(), userID, explicitProfileID(c))
	if err != nil {
		h.log.Error("plan lookup failed", "user_id", userID, "error", err)
		RespondError(c, http.StatusInternalServerError, "plan_load_failed", fmt.Errorf("could not load plan"))
		return
	}
	RespondOK(c, result)
}

// POST /api/plan
// Generate a fresh schedule from the current resolution.
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	plan, err := h.planSvc.GeneratePlan(c.Request.Context(), userID, explicitProfileID(c))
	if err != nil {
		if errors.Is(err, services.ErrNoProfile) {
			RespondError(c, http.StatusNotFound, "no_profile", err)
			return
		}
		h.log.Error("plan generation failed", "user_id", userID, "error", err)
		RespondError(c, http.StatusInternalServerError, "plan_generation_failed", fmt.Errorf("could not generate plan"))
		return
	}
	c.JSON(http.StatusCreated, plan)
}
