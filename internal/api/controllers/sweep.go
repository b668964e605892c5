package controllers

import (
	"net/http"

	sweepservice "vm-rental/internal/services/sweep_service"

	"github.com/gin-gonic/gin"
)

// SweepController exposes the idempotent reclaim passes. An external
// scheduler hits these on a fixed interval; operators may also trigger
// them by hand, repeats are harmless.
type SweepController struct {
	sweep *sweepservice.SweepService
}

func NewSweepController(sweep *sweepservice.SweepService) *SweepController {
	return &SweepController{sweep: sweep}
}

func (sC *SweepController) RegisterRoutes(r *gin.RouterGroup) {
	s := r.Group("/sweeps")
	s.POST("/expired-plans", sC.ExpiredPlans)
	s.POST("/release-rentals", sC.ReleaseRentals)
	s.POST("/session-warnings", sC.SessionWarnings)
	s.POST("/expired-sessions", sC.ExpiredSessions)
}

func (sC *SweepController) ExpiredPlans(c *gin.Context) {
	report, err := sC.sweep.SweepExpiredPlans(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (sC *SweepController) ReleaseRentals(c *gin.Context) {
	report, err := sC.sweep.ReleaseExpiredRentals(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (sC *SweepController) SessionWarnings(c *gin.Context) {
	report, err := sC.sweep.SweepSessionWarnings(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (sC *SweepController) ExpiredSessions(c *gin.Context) {
	report, err := sC.sweep.SweepExpiredSessions(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
