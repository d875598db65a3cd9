package featureflag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"support-flow-be/internal/pkg/logger"

	"github.com/open-feature/go-sdk/openfeature"
)

const providerName = "support-flow-document"

// DocumentProvider is an OpenFeature provider that evaluates a flag Document
// loaded from a Source and refreshed on an interval.
type DocumentProvider struct {
	source       Source
	pollInterval time.Duration
	initTimeout  time.Duration
	logger       logger.ILogger

	mu  sync.RWMutex
	doc *Document

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var (
	_ openfeature.FeatureProvider = (*DocumentProvider)(nil)
	_ openfeature.StateHandler    = (*DocumentProvider)(nil)
)

// NewDocumentProvider creates a provider. A pollInterval of zero disables refresh.
func NewDocumentProvider(source Source, pollInterval, initTimeout time.Duration, log logger.ILogger) *DocumentProvider {
	if initTimeout <= 0 {
		initTimeout = 10 * time.Second
	}
	return &DocumentProvider{
		source:       source,
		pollInterval: pollInterval,
		initTimeout:  initTimeout,
		logger:       log,
		stop:         make(chan struct{}),
	}
}

func (p *DocumentProvider) Metadata() openfeature.Metadata {
	return openfeature.Metadata{Name: providerName}
}

func (p *DocumentProvider) Hooks() []openfeature.Hook {
	return nil
}

// Init loads the first document. OpenFeature calls it when the provider is
// registered; a failure keeps the provider out of the ready state.
func (p *DocumentProvider) Init(_ openfeature.EvaluationContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.initTimeout)
	defer cancel()

	doc, err := p.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load flags from %s: %w", p.source, err)
	}
	p.setDocument(doc)
	p.logger.Info("FeatureFlag", "Flag document loaded", map[string]interface{}{
		"source": p.source.String(),
		"flags":  doc.Len(),
	})

	if p.pollInterval > 0 {
		p.wg.Add(1)
		go p.poll()
	}
	return nil
}

// Shutdown stops the refresh loop. Safe to call more than once.
func (p *DocumentProvider) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	p.wg.Wait()
}

func (p *DocumentProvider) poll() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.Refresh(context.Background())
		}
	}
}

// Refresh reloads the document. On failure the previous document stays active.
func (p *DocumentProvider) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.initTimeout)
	defer cancel()

	doc, err := p.source.Load(ctx)
	if err != nil {
		p.logger.Warn("FeatureFlag", "Flag refresh failed, keeping last document", map[string]interface{}{
			"source": p.source.String(),
			"error":  err.Error(),
		})
		return
	}
	p.setDocument(doc)
	p.logger.Debug("FeatureFlag", "Flag document refreshed", map[string]interface{}{"flags": doc.Len()})
}

func (p *DocumentProvider) setDocument(doc *Document) {
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
}

func (p *DocumentProvider) document() *Document {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc
}

func (p *DocumentProvider) evaluate(flag string, evalCtx openfeature.FlattenedContext) (Evaluation, *openfeature.ResolutionError) {
	doc := p.document()
	if doc == nil {
		e := openfeature.NewProviderNotReadyResolutionError("flag document not loaded")
		return Evaluation{}, &e
	}

	targetingKey, _ := evalCtx[openfeature.TargetingKey].(string)
	ev, err := doc.Evaluate(flag, targetingKey, evalCtx)
	if err != nil {
		var e openfeature.ResolutionError
		if errors.Is(err, ErrFlagNotFound) {
			e = openfeature.NewFlagNotFoundResolutionError(err.Error())
		} else {
			e = openfeature.NewGeneralResolutionError(err.Error())
		}
		return Evaluation{}, &e
	}
	return ev, nil
}

func detail(ev Evaluation) openfeature.ProviderResolutionDetail {
	return openfeature.ProviderResolutionDetail{
		Reason:  openfeature.Reason(ev.Reason),
		Variant: ev.Variant,
	}
}

func failed(e openfeature.ResolutionError) openfeature.ProviderResolutionDetail {
	return openfeature.ProviderResolutionDetail{
		ResolutionError: e,
		Reason:          openfeature.ErrorReason,
	}
}

func mismatch(flag string, value interface{}, want string) openfeature.ProviderResolutionDetail {
	return failed(openfeature.NewTypeMismatchResolutionError(
		fmt.Sprintf("flag %q is %T, want %s", flag, value, want),
	))
}

func (p *DocumentProvider) BooleanEvaluation(_ context.Context, flag string, defaultValue bool, evalCtx openfeature.FlattenedContext) openfeature.BoolResolutionDetail {
	ev, rerr := p.evaluate(flag, evalCtx)
	if rerr != nil {
		return openfeature.BoolResolutionDetail{Value: defaultValue, ProviderResolutionDetail: failed(*rerr)}
	}
	v, ok := ev.Value.(bool)
	if !ok {
		return openfeature.BoolResolutionDetail{Value: defaultValue, ProviderResolutionDetail: mismatch(flag, ev.Value, "bool")}
	}
	return openfeature.BoolResolutionDetail{Value: v, ProviderResolutionDetail: detail(ev)}
}

func (p *DocumentProvider) StringEvaluation(_ context.Context, flag string, defaultValue string, evalCtx openfeature.FlattenedContext) openfeature.StringResolutionDetail {
	ev, rerr := p.evaluate(flag, evalCtx)
	if rerr != nil {
		return openfeature.StringResolutionDetail{Value: defaultValue, ProviderResolutionDetail: failed(*rerr)}
	}
	v, ok := ev.Value.(string)
	if !ok {
		return openfeature.StringResolutionDetail{Value: defaultValue, ProviderResolutionDetail: mismatch(flag, ev.Value, "string")}
	}
	return openfeature.StringResolutionDetail{Value: v, ProviderResolutionDetail: detail(ev)}
}

func (p *DocumentProvider) FloatEvaluation(_ context.Context, flag string, defaultValue float64, evalCtx openfeature.FlattenedContext) openfeature.FloatResolutionDetail {
	ev, rerr := p.evaluate(flag, evalCtx)
	if rerr != nil {
		return openfeature.FloatResolutionDetail{Value: defaultValue, ProviderResolutionDetail: failed(*rerr)}
	}
	switch v := ev.Value.(type) {
	case float64:
		return openfeature.FloatResolutionDetail{Value: v, ProviderResolutionDetail: detail(ev)}
	case int:
		return openfeature.FloatResolutionDetail{Value: float64(v), ProviderResolutionDetail: detail(ev)}
	default:
		return openfeature.FloatResolutionDetail{Value: defaultValue, ProviderResolutionDetail: mismatch(flag, ev.Value, "float")}
	}
}

func (p *DocumentProvider) IntEvaluation(_ context.Context, flag string, defaultValue int64, evalCtx openfeature.FlattenedContext) openfeature.IntResolutionDetail {
	ev, rerr := p.evaluate(flag, evalCtx)
	if rerr != nil {
		return openfeature.IntResolutionDetail{Value: defaultValue, ProviderResolutionDetail: failed(*rerr)}
	}
	switch v := ev.Value.(type) {
	case int:
		return openfeature.IntResolutionDetail{Value: int64(v), ProviderResolutionDetail: detail(ev)}
	case int64:
		return openfeature.IntResolutionDetail{Value: v, ProviderResolutionDetail: detail(ev)}
	default:
		return openfeature.IntResolutionDetail{Value: defaultValue, ProviderResolutionDetail: mismatch(flag, ev.Value, "int")}
	}
}

func (p *DocumentProvider) ObjectEvaluation(_ context.Context, flag string, defaultValue interface{}, evalCtx openfeature.FlattenedContext) openfeature.InterfaceResolutionDetail {
	ev, rerr := p.evaluate(flag, evalCtx)
	if rerr != nil {
		return openfeature.InterfaceResolutionDetail{Value: defaultValue, ProviderResolutionDetail: failed(*rerr)}
	}
	return openfeature.InterfaceResolutionDetail{Value: ev.Value, ProviderResolutionDetail: detail(ev)}
}
