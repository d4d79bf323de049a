package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// ReadinessChecker reports whether models are prepared for inference
type ReadinessChecker interface {
	Ready() bool
}

type HealthHandler struct {
	checker ReadinessChecker
}

func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.checker == nil || !h.checker.Ready() {
		return domain.ErrNotReady
	}
	return c.JSON(HealthResponse{
		Status: "ready",
	})
}
