package main

import (
	"fmt"
	"io"

	"support-flow-be/internal/entity"
	"support-flow-be/pkg/outcome"

	"github.com/fatih/color"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	muted   = color.New(color.FgHiBlack)
)

func printOutcome(out io.Writer, inquiry entity.Inquiry, result outcome.Outcome[entity.WorkflowResult]) {
	heading.Fprintf(out, "📨 %s [%s] %s\n", inquiry.Id, inquiry.Type, inquiry.UserId)
	fmt.Fprintf(out, "   %q\n", inquiry.Message)

	res, ok := result.Get()
	if !ok {
		bad.Fprintf(out, "❌ %s\n", result.Error().Error())
		return
	}

	good.Fprintf(out, "✅ Completed with %s in %dms\n", res.Combo, res.ElapsedMs)
	fmt.Fprintf(out, "   Intent:    %s / %s (%.2f)\n", res.Intent.Category, res.Intent.Urgency, res.Intent.Confidence)
	fmt.Fprintf(out, "   Documents: %v\n", res.Retrieval.Documents)
	fmt.Fprintf(out, "   Sources:   %v\n", res.Retrieval.Sources)
	fmt.Fprintf(out, "   Response (%s):\n   %s\n", res.Response.Format, res.Response.Message)
	muted.Fprintf(out, "   Timings: intent %dms, retrieval %dms, response %dms\n",
		res.Timings.IntentMs, res.Timings.RetrievalMs, res.Timings.ResponseMs)
}

func printConfig(out io.Writer, stage string, cfg entity.PromptConfig) {
	fmt.Fprintf(out, "%-10s model=%s temperature=%.2f", stage, cfg.Model, cfg.TemperatureValue())
	if cfg.Strategy != "" {
		fmt.Fprintf(out, " strategy=%s", cfg.Strategy)
	}
	if cfg.Version != "" {
		fmt.Fprintf(out, " version=%s", cfg.Version)
	}
	if cfg.MaxTokens > 0 {
		fmt.Fprintf(out, " maxTokens=%d", cfg.MaxTokens)
	}
	fmt.Fprintln(out)
}
