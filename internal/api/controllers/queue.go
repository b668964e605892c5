package controllers

import (
	"net/http"

	queueservice "vm-rental/internal/services/queue_service"

	"github.com/gin-gonic/gin"
)

type QueueController struct {
	queue *queueservice.QueueService
}

func NewQueueController(queue *queueservice.QueueService) *QueueController {
	return &QueueController{queue: queue}
}

func (qC *QueueController) RegisterRoutes(r *gin.RouterGroup) {
	q := r.Group("/queue")
	q.POST("/join", qC.Join)
	q.POST("/activate", qC.Activate)
	q.POST("/complete", qC.Complete)
	q.POST("/renumber", qC.Renumber)
	q.GET("/stats", qC.Stats)
}

type JoinQueueParams struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

func (qC *QueueController) Join(c *gin.Context) {
	var params JoinQueueParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := qC.queue.Join(c.Request.Context(), params.UserID, params.PlanID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

type ActivateQueueParams struct {
	UserID    string `json:"user_id"`
	MachineID uint   `json:"machine_id"`
}

func (qC *QueueController) Activate(c *gin.Context) {
	var params ActivateQueueParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := qC.queue.Activate(c.Request.Context(), params.UserID, params.MachineID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

type CompleteQueueParams struct {
	UserID string `json:"user_id"`
}

func (qC *QueueController) Complete(c *gin.Context) {
	var params CompleteQueueParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := qC.queue.Complete(c.Request.Context(), params.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "queue entry completed"})
}

func (qC *QueueController) Renumber(c *gin.Context) {
	if err := qC.queue.RenumberPositions(c.Request.Context()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "positions renumbered"})
}

func (qC *QueueController) Stats(c *gin.Context) {
	stats, err := qC.queue.Stats(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
