package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"support-flow-be/internal/config"
	"support-flow-be/internal/dto"
	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/featureflag"
	"support-flow-be/pkg/support/combo"
	"support-flow-be/pkg/support/executor"
	"support-flow-be/pkg/support/promptconfig"
)

const flagModule = "FeatureFlag"

// Flag evaluation results, as recorded in metrics.
const (
	flagResultOK      = "ok"
	flagResultDefault = "default"
)

type IFeatureFlagService interface {
	executor.FlagResolver

	// Initialize blocks until the flag client is ready. Failure is fatal.
	Initialize(ctx context.Context) error
	Ready() bool
	StageKeys() executor.StageKeys
	Preview(ctx context.Context, req *dto.FlagPreviewRequest) (*dto.FlagPreviewResponse, error)
	// Close is idempotent and safe before Initialize.
	Close() error
}

type featureFlagService struct {
	client   featureflag.Client
	cfg      config.FlagConfig
	defaults *promptconfig.Defaults
	logger   logger.ILogger
	recorder metrics.Recorder

	mu     sync.RWMutex
	ready  bool
	closed bool
}

func NewFeatureFlagService(client featureflag.Client, cfg config.FlagConfig, log logger.ILogger, recorder metrics.Recorder) IFeatureFlagService {
	return &featureFlagService{
		client:   client,
		cfg:      cfg,
		defaults: promptconfig.NewDefaults(cfg.IntentKey, cfg.RetrievalKey, cfg.ResponseKey),
		logger:   log,
		recorder: recorder,
	}
}

func (s *featureFlagService) Initialize(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return fmt.Errorf("%w: service closed", featureflag.ErrNotInitialized)
	}

	if s.cfg.InitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.InitTimeout)
		defer cancel()
	}

	if err := s.client.WaitForInitialization(ctx); err != nil {
		s.logger.Error(flagModule, "Flag client failed to initialize", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("feature flags: %w", err)
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	s.logger.Info(flagModule, "Flag client ready", map[string]interface{}{
		"source":      s.cfg.Source,
		"combo_flag":  s.cfg.WorkflowCombo,
		"stage_flags": []string{s.cfg.IntentKey, s.cfg.RetrievalKey, s.cfg.ResponseKey},
	})
	return nil
}

func (s *featureFlagService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && !s.closed
}

func (s *featureFlagService) usable() error {
	if !s.Ready() {
		return featureflag.ErrNotInitialized
	}
	return nil
}

func (s *featureFlagService) StageKeys() executor.StageKeys {
	return executor.StageKeys{
		Intent:    s.cfg.IntentKey,
		Retrieval: s.cfg.RetrievalKey,
		Response:  s.cfg.ResponseKey,
	}
}

// ResolveCombo returns the combo for evalCtx, or the baseline when the flag
// cannot be evaluated. The flag may serve a plain string or an object with a
// "combo" field.
func (s *featureFlagService) ResolveCombo(ctx context.Context, evalCtx featureflag.EvaluationContext) (string, error) {
	if err := s.usable(); err != nil {
		return "", err
	}

	key := s.cfg.WorkflowCombo
	baseline := s.cfg.ComboBaseline

	value, err := s.client.StringVariation(ctx, key, evalCtx, baseline)
	if errors.Is(err, featureflag.ErrTypeMismatch) {
		value, err = s.comboFromObject(ctx, key, evalCtx)
	}
	if errors.Is(err, featureflag.ErrNotInitialized) && !s.Ready() {
		return "", err
	}
	if err != nil || value == "" {
		s.useDefault(key, evalCtx, err)
		return baseline, nil
	}

	s.recorder.ObserveFlagEvaluation(key, flagResultOK)
	s.logger.Debug(flagModule, "Combo resolved", map[string]interface{}{
		"user_id": evalCtx.UserID(),
		"combo":   value,
	})
	return value, nil
}

func (s *featureFlagService) comboFromObject(ctx context.Context, key string, evalCtx featureflag.EvaluationContext) (string, error) {
	raw, err := s.client.JSONVariation(ctx, key, evalCtx, nil)
	if err != nil {
		return "", err
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", featureflag.ErrTypeMismatch, key, raw)
	}
	value, ok := obj["combo"].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s has no combo field", featureflag.ErrTypeMismatch, key)
	}
	return value, nil
}

// ResolveStageConfig returns the flag's config for evalCtx. Any evaluation or
// decoding failure yields the whole default for flagKey.
func (s *featureFlagService) ResolveStageConfig(ctx context.Context, flagKey string, evalCtx featureflag.EvaluationContext) (entity.PromptConfig, error) {
	if err := s.usable(); err != nil {
		return entity.PromptConfig{}, err
	}

	raw, err := s.client.JSONVariation(ctx, flagKey, evalCtx, nil)
	if errors.Is(err, featureflag.ErrNotInitialized) && !s.Ready() {
		return entity.PromptConfig{}, err
	}
	if err != nil {
		s.useDefault(flagKey, evalCtx, err)
		return s.defaults.For(flagKey), nil
	}

	cfg, err := promptconfig.Decode(raw)
	if err != nil {
		s.useDefault(flagKey, evalCtx, err)
		return s.defaults.For(flagKey), nil
	}

	s.recorder.ObserveFlagEvaluation(flagKey, flagResultOK)
	s.logger.Debug(flagModule, "Stage config resolved", map[string]interface{}{
		"flag":     flagKey,
		"model":    cfg.Model,
		"strategy": cfg.Strategy,
		"version":  cfg.Version,
	})
	return cfg, nil
}

func (s *featureFlagService) useDefault(flagKey string, evalCtx featureflag.EvaluationContext, err error) {
	details := map[string]interface{}{
		"flag":    flagKey,
		"user_id": evalCtx.UserID(),
	}
	if err != nil {
		details["error"] = err.Error()
	}
	s.logger.Warn(flagModule, "Flag evaluation failed, using default", details)
	s.recorder.ObserveFlagEvaluation(flagKey, flagResultDefault)
}

// Preview resolves what a request would run with, without executing it.
func (s *featureFlagService) Preview(ctx context.Context, req *dto.FlagPreviewRequest) (*dto.FlagPreviewResponse, error) {
	inquiryType, err := entity.ParseInquiryType(req.InquiryType)
	if err != nil {
		return nil, err
	}

	base := combo.BuildBaseContext(entity.Inquiry{UserId: req.UserId, Type: inquiryType})
	selected, err := s.ResolveCombo(ctx, base)
	if err != nil {
		return nil, err
	}
	comboCtx := combo.BuildComboContext(base, selected)

	keys := s.StageKeys()
	var configs entity.StageConfigs
	for _, lookup := range []struct {
		key string
		dst *entity.PromptConfig
	}{
		{keys.Intent, &configs.Intent},
		{keys.Retrieval, &configs.Retrieval},
		{keys.Response, &configs.Response},
	} {
		cfg, err := s.ResolveStageConfig(ctx, lookup.key, comboCtx)
		if err != nil {
			return nil, err
		}
		*lookup.dst = cfg
	}

	return &dto.FlagPreviewResponse{
		UserId:      req.UserId,
		InquiryType: string(inquiryType),
		Combo:       selected,
		Configs:     configs,
	}, nil
}

func (s *featureFlagService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.ready = false
	s.mu.Unlock()

	if err := s.client.Close(); err != nil {
		s.logger.Warn(flagModule, "Flag client close failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info(flagModule, "Flag client closed", nil)
	return nil
}
