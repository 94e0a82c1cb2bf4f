package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger 상태 확인 가능한 컴포넌트
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 헬스체크 핸들러
type HealthHandler struct {
	store    Pinger
	presence Pinger // nil 이면 로컬 presence
	hub      *CanvasHub
}

// NewHealthHandler HealthHandler 생성
func NewHealthHandler(store Pinger, presence Pinger, hub *CanvasHub) *HealthHandler {
	return &HealthHandler{store: store, presence: presence, hub: hub}
}

// ComponentCheck 컴포넌트 상태
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse 헬스체크 응답
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Sessions  int                       `json:"sessions"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check 전체 상태 확인 (Store 백엔드 + Presence)
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}
	if h.hub != nil {
		response.Sessions = h.hub.SessionCount()
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	// 1. Store 백엔드 체크 (실패하면 unhealthy)
	storeStart := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Checks["store"] = ComponentCheck{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		response.Checks["store"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(storeStart).String(),
		}
	}

	// 2. Presence 체크 (실패해도 로컬 카운트로 동작하므로 degraded)
	if h.presence != nil {
		presenceStart := time.Now()
		if err := h.presence.Ping(ctx); err != nil {
			if response.Status == "healthy" {
				response.Status = "degraded"
			}
			response.Checks["presence"] = ComponentCheck{
				Status: "degraded",
				Error:  err.Error(),
			}
		} else {
			response.Checks["presence"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(presenceStart).String(),
			}
		}
	} else {
		response.Checks["presence"] = ComponentCheck{
			Status: "local",
		}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness K8s liveness probe용 (단순 체크)
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness K8s readiness probe용 (Store 백엔드 체크)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}
