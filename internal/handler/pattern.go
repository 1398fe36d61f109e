package handler

import (
	"net/http"

	"github.com/boswellbenjamin/migrainauts/internal/service"
	"github.com/boswellbenjamin/migrainauts/pkg/api"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PatternHandler implements pattern analysis endpoints
type PatternHandler struct {
	history  service.HistorySource
	detector *service.PatternDetectionService
	checker  *service.PatternChecker
	logger   *zap.Logger
}

// NewPatternHandler creates a new PatternHandler
func NewPatternHandler(history service.HistorySource, detector *service.PatternDetectionService, checker *service.PatternChecker, logger *zap.Logger) *PatternHandler {
	return &PatternHandler{
		history:  history,
		detector: detector,
		checker:  checker,
		logger:   logger,
	}
}

// GetApiV1Patterns mines patterns from the current history
func (h *PatternHandler) GetApiV1Patterns(c *gin.Context) {
	history, err := h.history.GetHistory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to load history")
		return
	}

	patterns := h.detector.AnalyzePatterns(history.Migraines, history.Days)

	h.logger.Info("patterns analyzed", zap.Int("count", len(patterns)))

	c.JSON(http.StatusOK, api.PatternsResponse{
		Patterns: patterns,
		Count:    len(patterns),
	})
}

// PostApiV1PatternsCheck runs the check-patterns pass in the foreground.
// It joins a pass already in flight instead of starting a second one.
func (h *PatternHandler) PostApiV1PatternsCheck(c *gin.Context) {
	result := h.checker.Check(c.Request.Context())
	c.JSON(http.StatusOK, result)
}
