package mapper

import (
	"support-flow-be/internal/dto"
	"support-flow-be/internal/entity"

	"github.com/google/uuid"
)

type InquiryMapper struct{}

func NewInquiryMapper() *InquiryMapper {
	return &InquiryMapper{}
}

// ToEntity assumes req has passed validation. A missing id is generated.
func (m *InquiryMapper) ToEntity(req *dto.SubmitInquiryRequest) entity.Inquiry {
	id := req.Id
	if id == "" {
		id = uuid.NewString()
	}
	inquiryType, err := entity.ParseInquiryType(req.Type)
	if err != nil {
		inquiryType = entity.InquiryType(req.Type)
	}

	return entity.Inquiry{
		Id:        id,
		UserId:    req.UserId,
		Type:      inquiryType,
		Message:   req.Message,
		Timestamp: req.Timestamp,
	}
}

func (m *InquiryMapper) ToResponse(inquiry entity.Inquiry) dto.InquiryResponse {
	return dto.InquiryResponse{
		Id:        inquiry.Id,
		UserId:    inquiry.UserId,
		Type:      string(inquiry.Type),
		Message:   inquiry.Message,
		Timestamp: inquiry.Timestamp,
	}
}

func (m *InquiryMapper) ToRunResponse(run entity.RunRecord) dto.RunResponse {
	return dto.RunResponse{
		RunId:     run.Id,
		Inquiry:   m.ToResponse(run.Inquiry),
		Status:    run.Status,
		Result:    run.Result,
		Error:     run.Error,
		Attempts:  run.Attempts,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
	}
}
