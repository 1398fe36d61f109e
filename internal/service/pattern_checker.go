package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/metrics"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Pass outcomes
const (
	PassCompleted = "completed"
	PassSkipped   = "skipped"
	PassFailed    = "failed"
)

// HistorySource provides the full migraine and day history
type HistorySource interface {
	GetHistory(ctx context.Context) (*History, error)
}

// CheckResult summarizes one check-patterns pass
type CheckResult struct {
	Status     string                     `json:"status"`
	Reason     string                     `json:"reason,omitempty"`
	Patterns   int                        `json:"patterns"`
	Dispatched []model.NotificationRecord `json:"dispatched"`
}

// PatternChecker runs the check-patterns pass. Concurrent triggers share a
// single in-flight pass, so at most one pass touches the notification store.
type PatternChecker struct {
	history     HistorySource
	detector    *PatternDetectionService
	metrics     *metrics.Metrics
	checkInHour int
	loc         *time.Location
	now         func() time.Time
	group       singleflight.Group
	logger      *zap.Logger
}

// NewPatternChecker creates a new PatternChecker. Positive reinforcement is
// evaluated only during checkInHour.
func NewPatternChecker(history HistorySource, detector *PatternDetectionService, m *metrics.Metrics, checkInHour int, loc *time.Location, logger *zap.Logger) *PatternChecker {
	if loc == nil {
		loc = time.Local
	}
	return &PatternChecker{
		history:     history,
		detector:    detector,
		metrics:     m,
		checkInHour: checkInHour,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// Check runs one pass, or joins the pass already running. It never panics
// and never returns an error; failures are logged and reported in the result.
func (c *PatternChecker) Check(ctx context.Context) CheckResult {
	passCtx := context.WithoutCancel(ctx)
	v, _, shared := c.group.Do("check-patterns", func() (interface{}, error) {
		return c.pass(passCtx), nil
	})

	result := v.(CheckResult)
	if shared {
		c.logger.Debug("joined in-flight pattern check")
	}
	return result
}

// Run checks patterns every interval until ctx is done
func (c *PatternChecker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("pattern checker started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("pattern checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

func (c *PatternChecker) pass(ctx context.Context) (result CheckResult) {
	startTime := time.Now()
	result = CheckResult{Dispatched: []model.NotificationRecord{}}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("pattern check panicked",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			result = CheckResult{
				Status:     PassFailed,
				Reason:     fmt.Sprintf("panic: %v", r),
				Dispatched: []model.NotificationRecord{},
			}
		}
		if c.metrics != nil {
			c.metrics.PatternPasses.WithLabelValues(result.Status).Inc()
		}
		c.logger.Info("pattern check finished",
			zap.String("status", result.Status),
			zap.String("reason", result.Reason),
			zap.Int("patterns", result.Patterns),
			zap.Int("dispatched", len(result.Dispatched)),
			zap.Duration("duration", time.Since(startTime)),
		)
	}()

	history, err := c.history.GetHistory(ctx)
	if err != nil {
		c.logger.Error("failed to load history for pattern check", zap.Error(err))
		result.Status, result.Reason = PassFailed, err.Error()
		return result
	}

	if len(history.Migraines) == 0 || len(history.Days) == 0 {
		result.Status, result.Reason = PassSkipped, "no history"
		return result
	}

	patterns := c.detector.AnalyzePatterns(history.Migraines, history.Days)
	result.Patterns = len(patterns)
	if c.metrics != nil {
		c.metrics.PatternsMined.Set(float64(len(patterns)))
	}
	if len(patterns) == 0 {
		result.Status, result.Reason = PassSkipped, "no patterns found yet"
		return result
	}

	now := c.now().In(c.loc)
	today, ok := history.Today(now)
	if !ok {
		result.Status, result.Reason = PassSkipped, "no data for today yet"
		return result
	}

	result.Status = PassCompleted

	record, err := c.detector.CheckForPatterns(ctx, today, patterns, history.Migraines)
	if err != nil {
		c.logger.Error("failed to check for patterns", zap.Error(err))
		result.Status, result.Reason = PassFailed, err.Error()
	}
	if record != nil {
		result.Dispatched = append(result.Dispatched, *record)
	}

	if now.Hour() == c.checkInHour {
		record, err := c.detector.CheckForPositiveReinforcement(ctx, today, patterns, history.Migraines)
		if err != nil {
			c.logger.Error("failed to check for positive reinforcement", zap.Error(err))
			result.Status, result.Reason = PassFailed, err.Error()
		}
		if record != nil {
			result.Dispatched = append(result.Dispatched, *record)
		}
	}

	return result
}
