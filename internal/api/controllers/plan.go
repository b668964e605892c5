package controllers

import (
	"net/http"

	"vm-rental/internal/models"
	planservice "vm-rental/internal/services/plan_service"

	"github.com/gin-gonic/gin"
)

type PlanController struct {
	plans *planservice.PlanService
}

func NewPlanController(plans *planservice.PlanService) *PlanController {
	return &PlanController{plans: plans}
}

func (pC *PlanController) RegisterRoutes(r *gin.RouterGroup) {
	p := r.Group("/plans")
	p.POST("", pC.Create)
	p.POST("/:id/cancel", pC.Cancel)
	p.GET("", pC.ListByUser)
}

type CreatePlanParams struct {
	UserID   string `json:"user_id"`
	PlanID   string `json:"plan_id"`
	PlanName string `json:"plan_name"`
	PlanType string `json:"plan_type"`
	Days     int    `json:"days"`
}

// Create is called by the payment-confirmation flow once a purchase has
// settled.
func (pC *PlanController) Create(c *gin.Context) {
	var params CreatePlanParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	plan, err := pC.plans.Create(c.Request.Context(), planservice.CreatePlanParams{
		UserID:   params.UserID,
		PlanID:   params.PlanID,
		PlanName: params.PlanName,
		PlanType: models.EnumPlanType(params.PlanType),
		Days:     params.Days,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": plan})
}

type CancelPlanParams struct {
	Reason string `json:"reason"`
}

func (pC *PlanController) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var params CancelPlanParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := pC.plans.Cancel(c.Request.Context(), id, params.Reason); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan cancelled"})
}

func (pC *PlanController) ListByUser(c *gin.Context) {
	userID := c.Query("user_id")
	plans, err := pC.plans.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
