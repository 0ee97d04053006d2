package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level. It implements
// SchedulerHooks, CacheHooks and HTTPHooks.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks that log to logger. A nil logger uses
// log.Default().
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{Logger: logger.WithPrefix("hooks")}
}

func (h *LogHooks) OnScheduleStart(_ context.Context, dataset string, requests int, algorithm string) {
	h.Logger.Debug("schedule start", "dataset", dataset, "requests", requests, "algorithm", algorithm)
}

func (h *LogHooks) OnScheduleComplete(_ context.Context, dataset string, cost float64, duration time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("schedule failed", "dataset", dataset, "duration", duration, "err", err)
		return
	}
	h.Logger.Debug("schedule complete", "dataset", dataset, "cost", cost, "duration", duration)
}

func (h *LogHooks) OnRefineImproved(_ context.Context, algorithm string, iteration int, bestCost float64) {
	h.Logger.Debug("improved", "algorithm", algorithm, "iteration", iteration, "cost", bestCost)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.Logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, duration time.Duration) {
	h.Logger.Debug("response", "method", method, "path", path, "status", status, "duration", duration)
}

var (
	_ SchedulerHooks = (*LogHooks)(nil)
	_ CacheHooks     = (*LogHooks)(nil)
	_ HTTPHooks      = (*LogHooks)(nil)
)
