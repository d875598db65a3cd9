package main

import (
	"fmt"
	"strings"

	"support-flow-be/internal/entity"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sampleInquiries = []entity.Inquiry{
	{Id: "INQ-001", UserId: "user-123", Type: entity.InquiryTypeCritical, Message: "Our production API is down and returning 500 errors for all requests!"},
	{Id: "INQ-002", UserId: "user-456", Type: entity.InquiryTypeFeature, Message: "How do I configure custom authentication in your SDK?"},
	{Id: "INQ-003", UserId: "user-789", Type: entity.InquiryTypeIntegration, Message: "Getting CORS errors when integrating your API with our React app"},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the bundled sample inquiries",
	RunE:  runBatch,
}

func runBatch(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	color.New(color.FgCyan).Fprintf(out, "🎯 Support workflow demo (%d inquiries)\n", len(sampleInquiries))

	failed := 0
	for _, inquiry := range sampleInquiries {
		fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 60))
		result := p.inquiries.Run(cmd.Context(), inquiry)
		printOutcome(out, inquiry, result)
		if !result.Success() {
			failed++
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 60))
	if failed > 0 {
		color.New(color.FgRed).Fprintf(out, "%d of %d inquiries failed\n", failed, len(sampleInquiries))
		return fmt.Errorf("%d inquiries failed", failed)
	}
	color.New(color.FgGreen).Fprintln(out, "✅ Demo completed")
	return nil
}
