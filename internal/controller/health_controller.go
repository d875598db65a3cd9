package controller

import (
	"support-flow-be/internal/dto"
	"support-flow-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

// ReadinessChecker is satisfied by the feature flag service.
type ReadinessChecker interface {
	Ready() bool
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	flags ReadinessChecker
}

func NewHealthController(flags ReadinessChecker) IHealthController {
	return &healthController{flags: flags}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := dto.HealthResponse{Status: "ok", FlagsReady: c.flags.Ready()}
	if !res.FlagsReady {
		res.Status = "degraded"
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponseWithData(fiber.StatusServiceUnavailable, "Feature flags not ready", res))
	}
	return ctx.JSON(serverutils.SuccessResponse("Healthy", res))
}
