package dto

import (
	"time"

	"support-flow-be/internal/entity"
)

type SubmitInquiryRequest struct {
	Id        string     `json:"id" validate:"omitempty,max=64"`
	UserId    string     `json:"userId" validate:"required,max=128"`
	Type      string     `json:"type" validate:"required,oneof=critical feature integration quick"`
	Message   string     `json:"message" validate:"required,max=4000"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type WorkflowFailureResponse struct {
	InquiryId string `json:"inquiryId"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error"`
}

type SubmitAsyncResponse struct {
	RunId  string           `json:"runId"`
	Status entity.RunStatus `json:"status"`
}

type InquiryResponse struct {
	Id        string     `json:"id"`
	UserId    string     `json:"userId"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type RunResponse struct {
	RunId     string                 `json:"runId"`
	Inquiry   InquiryResponse        `json:"inquiry"`
	Status    entity.RunStatus       `json:"status"`
	Result    *entity.WorkflowResult `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Attempts  int                    `json:"attempts"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

type FlagPreviewRequest struct {
	UserId      string `query:"userId" validate:"required"`
	InquiryType string `query:"inquiryType" validate:"required,oneof=critical feature integration quick"`
}

type FlagPreviewResponse struct {
	UserId      string              `json:"userId"`
	InquiryType string              `json:"inquiryType"`
	Combo       string              `json:"combo"`
	Configs     entity.StageConfigs `json:"configs"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	FlagsReady bool   `json:"flagsReady"`
}
