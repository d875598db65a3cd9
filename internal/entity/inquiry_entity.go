package entity

import (
	"fmt"
	"strings"
	"time"
)

type InquiryType string

const (
	InquiryTypeCritical    InquiryType = "critical"
	InquiryTypeFeature     InquiryType = "feature"
	InquiryTypeIntegration InquiryType = "integration"
	InquiryTypeQuick       InquiryType = "quick"
)

var inquiryTypes = []InquiryType{
	InquiryTypeCritical,
	InquiryTypeFeature,
	InquiryTypeIntegration,
	InquiryTypeQuick,
}

func ParseInquiryType(s string) (InquiryType, error) {
	t := InquiryType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range inquiryTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown inquiry type %q", s)
}

// Inquiry is a single customer support request. It is treated as immutable
// once handed to the pipeline.
type Inquiry struct {
	Id        string
	UserId    string
	Type      InquiryType
	Message   string
	Timestamp *time.Time
}
