package automation

import (
	"context"
	"log/slog"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// ActionExecutor performs the side effect configured on an AutomationConfig
// once its trigger fires. Implementations must not block the caller's
// event-handling loop for long; a slow side effect (printing, network I/O)
// should hand off to its own goroutine/queue.
type ActionExecutor interface {
	// Execute runs action for tagID, given the raw value that caused the
	// trigger to fire.
	Execute(ctx context.Context, action domain.ActionConfig, tagID domain.TagID, value any)

	// ExecuteManualBatch runs an operator-initiated AccumulateData/PrintBatch
	// flush for a session, independent of any trigger evaluation.
	ExecuteManualBatch(ctx context.Context, sessionID string, items []domain.ReportItem)
}

// LoggingActionExecutor logs the action it would have performed instead of
// performing it. It has no dependency on the print/batch subsystem, so it's
// usable wherever only visibility into firing automations is needed (tests,
// a minimal agent build without a printer attached).
type LoggingActionExecutor struct {
	logger *slog.Logger
}

// NewLoggingActionExecutor constructs a LoggingActionExecutor.
func NewLoggingActionExecutor(logger *slog.Logger) *LoggingActionExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingActionExecutor{logger: logger}
}

func (e *LoggingActionExecutor) Execute(ctx context.Context, action domain.ActionConfig, tagID domain.TagID, value any) {
	e.logger.Info("automation triggered",
		"tag_id", tagID,
		"action_type", action.Type,
		"value", value,
	)

	switch action.Type {
	case domain.ActionPrintTicket:
		e.logger.Info("would print ticket", "tag_id", tagID, "template", action.Template)
	case domain.ActionPublishMqtt:
		e.logger.Info("would publish mqtt", "tag_id", tagID, "topic", action.Topic)
	case domain.ActionAccumulateData:
		e.logger.Info("would accumulate data", "tag_id", tagID, "session_id", action.SessionID)
	case domain.ActionPrintBatch:
		e.logger.Info("would print batch", "tag_id", tagID, "session_id", action.SessionID)
	default:
		e.logger.Warn("unrecognized action type", "tag_id", tagID, "action_type", action.Type)
	}
}

func (e *LoggingActionExecutor) ExecuteManualBatch(ctx context.Context, sessionID string, items []domain.ReportItem) {
	e.logger.Info("would flush manual batch", "session_id", sessionID, "item_count", len(items))
}
