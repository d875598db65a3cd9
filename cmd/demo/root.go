package main

import (
	"context"
	"fmt"

	"support-flow-be/internal/config"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/internal/repository/memory"
	"support-flow-be/internal/service"
	"support-flow-be/pkg/featureflag"
	"support-flow-be/pkg/llm/factory"
	"support-flow-be/pkg/support/executor"
	"support-flow-be/pkg/support/intent"
	"support-flow-be/pkg/support/response"
	"support-flow-be/pkg/support/retrieval"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootFlags struct {
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:           "demo",
	Short:         "Run customer support inquiries through the flag-driven workflow",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Log pipeline phases to the console")
	rootCmd.AddCommand(runCmd, batchCmd, flagsCmd)
}

// pipeline is the in-process slice of the server container: flags, stages and
// the executor, without HTTP or messaging.
type pipeline struct {
	flags     service.IFeatureFlagService
	inquiries service.IInquiryService
}

func newPipeline(ctx context.Context) (*pipeline, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := zap.WarnLevel
	if rootFlags.verbose {
		level = zap.DebugLevel
	}
	log := logger.NewZapLoggerWithLevel(cfg.App.LogFilePath, false, level)
	recorder := metrics.Nop()

	var source featureflag.Source
	if cfg.Flags.Source == "http" {
		source = featureflag.NewHTTPSource(cfg.Flags.HTTPURL, cfg.Flags.SdkKey, cfg.Flags.InitTimeout)
	} else {
		source = featureflag.NewFileSource(cfg.Flags.File)
	}
	provider := featureflag.NewDocumentProvider(source, 0, cfg.Flags.InitTimeout, log)
	flags := service.NewFeatureFlagService(featureflag.NewOpenFeatureClient(provider), cfg.Flags, log, recorder)
	if err := flags.Initialize(ctx); err != nil {
		_ = flags.Close()
		return nil, fmt.Errorf("feature flags: %w", err)
	}

	generator := factory.NewGenerator(ctx, cfg.LLM, log, recorder)
	workflow := executor.NewWorkflowExecutor(flags, flags.StageKeys(), executor.Stages{
		Intent:    intent.NewClassifier(generator, log, recorder),
		Retrieval: retrieval.NewRetriever(generator, log, recorder),
		Response:  response.NewGenerator(generator, log, recorder),
	}, log, recorder)

	return &pipeline{
		flags:     flags,
		inquiries: service.NewInquiryService(workflow, memory.NewRunRepository(cfg.Worker.RunTTL), nil, nil, nil, cfg.Worker, log),
	}, nil
}

func (p *pipeline) Close() {
	_ = p.flags.Close()
}
