package main

import (
	"fmt"

	"support-flow-be/internal/dto"
	"support-flow-be/internal/pkg/serverutils"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var flagsFlags dto.FlagPreviewRequest

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Show the combo and stage configs a user would get",
	RunE:  runFlagsPreview,
}

func init() {
	f := flagsCmd.Flags()
	f.StringVar(&flagsFlags.UserId, "user", "", "User id (required)")
	f.StringVar(&flagsFlags.InquiryType, "type", "", "Inquiry type (required)")

	_ = flagsCmd.MarkFlagRequired("user")
	_ = flagsCmd.MarkFlagRequired("type")
}

func runFlagsPreview(cmd *cobra.Command, _ []string) error {
	if err := serverutils.ValidateRequest(flagsFlags); err != nil {
		return err
	}

	p, err := newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer p.Close()

	preview, err := p.flags.Preview(cmd.Context(), &flagsFlags)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:   %s\n", preview.UserId)
	fmt.Fprintf(out, "Type:   %s\n", preview.InquiryType)
	color.New(color.FgYellow).Fprintf(out, "Combo:  %s\n", preview.Combo)
	printConfig(out, "intent", preview.Configs.Intent)
	printConfig(out, "retrieval", preview.Configs.Retrieval)
	printConfig(out, "response", preview.Configs.Response)
	return nil
}
