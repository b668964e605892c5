package controllers

import (
	"net/http"
	"time"

	diskservice "vm-rental/internal/services/disk_service"

	"github.com/gin-gonic/gin"
)

type DiskController struct {
	disks *diskservice.DiskService
}

func NewDiskController(disks *diskservice.DiskService) *DiskController {
	return &DiskController{disks: disks}
}

func (dC *DiskController) RegisterRoutes(r *gin.RouterGroup) {
	d := r.Group("/disk-sessions")
	d.GET("", dC.ListActive)
	d.POST("", dC.Start)
	d.POST("/:id/complete", dC.Complete)
	d.POST("/:id/terminate", dC.Terminate)
}

type StartSessionParams struct {
	UserDiskID      uint   `json:"user_disk_id"`
	DiskVMID        uint   `json:"disk_vm_id"`
	UserID          string `json:"user_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (dC *DiskController) Start(c *gin.Context) {
	var params StartSessionParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := dC.disks.StartSession(c.Request.Context(),
		params.UserDiskID, params.DiskVMID, params.UserID,
		time.Duration(params.DurationMinutes)*time.Minute)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (dC *DiskController) Complete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := dC.disks.CompleteSession(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session completed"})
}

type TerminateSessionParams struct {
	Reason string `json:"reason"`
}

func (dC *DiskController) Terminate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var params TerminateSessionParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := dC.disks.TerminateSession(c.Request.Context(), id, params.Reason); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session terminated"})
}

func (dC *DiskController) ListActive(c *gin.Context) {
	sessions, err := dC.disks.ActiveSessions(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
