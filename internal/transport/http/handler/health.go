package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"userapi/internal/platform/database"
)

type HealthHandler struct {
	db     *gorm.DB
	mqConn *amqp.Connection
	info   ServiceInfo
}

type ServiceInfo struct {
	Name          string
	Env           string
	StartedAt     time.Time
	EventsEnabled bool
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// NewHealthHandler takes the broker connection separately; it is nil when
// events are disabled or the broker was unreachable at startup.
func NewHealthHandler(db *gorm.DB, mqConn *amqp.Connection, info ServiceInfo) *HealthHandler {
	return &HealthHandler{db: db, mqConn: mqConn, info: info}
}

// Test always answers 200 and reports whether the store answers a ping.
func (h *HealthHandler) Test(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "connected"
	if !h.checkDatabase(ctx).OK {
		dbStatus = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "test route",
		"db_status": dbStatus,
	})
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := h.checkDatabase(ctx)
	rmqStatus := h.checkRabbitMQ()

	statusCode := http.StatusOK
	if !dbStatus.OK || !rmqStatus.OK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.info.Name,
		"env":        h.info.Env,
		"uptime_sec": int(time.Since(h.info.StartedAt).Seconds()),
		"dependencies": gin.H{
			"database": dbStatus,
			"rabbitmq": rmqStatus,
		},
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) dependencyStatus {
	if h.db == nil {
		return dependencyStatus{OK: false, Message: "no database handle"}
	}
	if err := database.Ping(ctx, h.db); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if !h.info.EventsEnabled {
		return dependencyStatus{OK: true, Message: "disabled"}
	}
	if h.mqConn == nil || h.mqConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}
