package main

import (
	"fmt"

	"support-flow-be/internal/dto"
	"support-flow-be/internal/mapper"
	"support-flow-be/internal/pkg/serverutils"

	"github.com/spf13/cobra"
)

var runFlags dto.SubmitInquiryRequest

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single inquiry",
	RunE:  runInquiry,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.Id, "id", "", "Inquiry id (generated when empty)")
	f.StringVar(&runFlags.UserId, "user", "", "User id (required)")
	f.StringVar(&runFlags.Type, "type", "", "Inquiry type: critical, feature, integration or quick (required)")
	f.StringVar(&runFlags.Message, "message", "", "Inquiry text (required)")

	_ = runCmd.MarkFlagRequired("user")
	_ = runCmd.MarkFlagRequired("type")
	_ = runCmd.MarkFlagRequired("message")
}

func runInquiry(cmd *cobra.Command, _ []string) error {
	if err := serverutils.ValidateRequest(runFlags); err != nil {
		return err
	}

	p, err := newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer p.Close()

	inquiry := mapper.NewInquiryMapper().ToEntity(&runFlags)
	out := p.inquiries.Run(cmd.Context(), inquiry)
	printOutcome(cmd.OutOrStdout(), inquiry, out)
	if !out.Success() {
		return fmt.Errorf("workflow failed: %s", out.Error().Error())
	}
	return nil
}
