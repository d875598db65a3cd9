package stage

import (
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
)

// FallbackReporter logs and counts fallbacks for one stage.
type FallbackReporter struct {
	Stage    string
	Module   string
	Logger   logger.ILogger
	Recorder metrics.Recorder
}

func (r FallbackReporter) Report(inquiryID, reason string, err error, result interface{}) {
	details := map[string]interface{}{
		"inquiry_id": inquiryID,
		"reason":     reason,
		"fallback":   result,
	}
	if err != nil {
		details["error"] = err.Error()
	}
	r.Logger.Warn(r.Module, "Using fallback "+r.Stage+" result", details)
	r.Recorder.IncStageFallback(r.Stage)
}
