package controller

import (
	"errors"

	"support-flow-be/internal/mapper"
	"support-flow-be/internal/pkg/serverutils"
	"support-flow-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRunController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
}

type runController struct {
	service service.IInquiryService
	mapper  *mapper.InquiryMapper
}

func NewRunController(service service.IInquiryService) IRunController {
	return &runController{service: service, mapper: mapper.NewInquiryMapper()}
}

func (c *runController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/runs")
	h.Get(":id", c.Show)
}

func (c *runController) Show(ctx *fiber.Ctx) error {
	run, err := c.service.GetRun(ctx.UserContext(), ctx.Params("id"))
	if errors.Is(err, service.ErrRunNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Run not found")
	}
	if err != nil {
		return err
	}
	// Runs owned by another user are reported as missing.
	if userID, ok := ctx.Locals("user_id").(string); ok && userID != "" && userID != run.Inquiry.UserId {
		return fiber.NewError(fiber.StatusNotFound, "Run not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show run", c.mapper.ToRunResponse(run)))
}
