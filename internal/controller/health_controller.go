package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthController 健康检查
type HealthController struct {
	startTime time.Time
}

func NewHealthController() *HealthController {
	return &HealthController{startTime: time.Now()}
}

// Health 存活探针
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (ctl *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(ctl.startTime).String(),
		"timestamp": time.Now(),
	})
}
