package controller

import (
	"support-flow-be/internal/dto"
	"support-flow-be/internal/mapper"
	"support-flow-be/internal/pkg/serverutils"
	"support-flow-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IInquiryController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	SubmitAsync(ctx *fiber.Ctx) error
}

type inquiryController struct {
	service service.IInquiryService
	mapper  *mapper.InquiryMapper
}

func NewInquiryController(service service.IInquiryService) IInquiryController {
	return &inquiryController{service: service, mapper: mapper.NewInquiryMapper()}
}

func (c *inquiryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/inquiries")
	h.Post("", c.Submit)
	h.Post("/async", c.SubmitAsync)
}

func (c *inquiryController) parse(ctx *fiber.Ctx) (*dto.SubmitInquiryRequest, error) {
	var req dto.SubmitInquiryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	// The token identity wins over any userId in the body.
	if userID, ok := ctx.Locals("user_id").(string); ok && userID != "" {
		req.UserId = userID
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Submit runs the workflow synchronously. A failed run is a 502 carrying the
// inquiry id and the failing stage.
func (c *inquiryController) Submit(ctx *fiber.Ctx) error {
	req, err := c.parse(ctx)
	if err != nil {
		return err
	}

	inquiry := c.mapper.ToEntity(req)
	out := c.service.Run(ctx.UserContext(), inquiry)
	if !out.Success() {
		info := out.Error()
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponseWithData(
			fiber.StatusBadGateway,
			"Workflow failed",
			dto.WorkflowFailureResponse{InquiryId: inquiry.Id, Stage: info.Stage, Error: info.Message},
		))
	}

	return ctx.JSON(serverutils.SuccessResponse("Success run workflow", out.Value()))
}

func (c *inquiryController) SubmitAsync(ctx *fiber.Ctx) error {
	req, err := c.parse(ctx)
	if err != nil {
		return err
	}

	run, err := c.service.Submit(ctx.UserContext(), c.mapper.ToEntity(req))
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Run queued", dto.SubmitAsyncResponse{
		RunId:  run.Id,
		Status: run.Status,
	}))
}
