// Package combo builds the evaluation contexts used to pick a request's
// configuration set.
package combo

import (
	"support-flow-be/internal/entity"
	"support-flow-be/pkg/featureflag"
)

const (
	AttributeInquiryType = "inquiryType"
	AttributeCombo       = "combo"
)

// BuildBaseContext keys the context on the user and annotates the inquiry
// type.
func BuildBaseContext(inquiry entity.Inquiry) featureflag.EvaluationContext {
	return featureflag.NewEvaluationContext(inquiry.UserId, map[string]string{
		AttributeInquiryType: string(inquiry.Type),
	})
}

// BuildComboContext returns base plus the chosen combo. base is not modified.
func BuildComboContext(base featureflag.EvaluationContext, combo string) featureflag.EvaluationContext {
	return base.With(AttributeCombo, combo)
}
