package controller

import (
	"errors"

	"support-flow-be/internal/dto"
	"support-flow-be/internal/pkg/serverutils"
	"support-flow-be/internal/service"
	"support-flow-be/pkg/featureflag"

	"github.com/gofiber/fiber/v2"
)

type IFlagController interface {
	RegisterRoutes(r fiber.Router)
	Preview(ctx *fiber.Ctx) error
}

type flagController struct {
	service service.IFeatureFlagService
}

func NewFlagController(service service.IFeatureFlagService) IFlagController {
	return &flagController{service: service}
}

func (c *flagController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/flags")
	h.Get("/preview", c.Preview)
}

// Preview shows the combo and stage configs a user would get.
func (c *flagController) Preview(ctx *fiber.Ctx) error {
	var req dto.FlagPreviewRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Preview(ctx.UserContext(), &req)
	if errors.Is(err, featureflag.ErrNotInitialized) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Feature flags not ready")
	}
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success preview flags", res))
}
