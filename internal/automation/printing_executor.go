package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifa-automation/scada-edge-agent/internal/batch"
	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/printer"
)

// PrintJobQueue is the narrow interface PrintingActionExecutor needs from a
// printer.Manager: enqueue a receipt's bytes without blocking on printer
// I/O. Satisfied by (*printer.Manager).Enqueue.
type PrintJobQueue interface {
	Enqueue(job []byte)
}

// PrintingActionExecutor performs the real side effects an AutomationConfig
// can trigger: printing a single-tag ticket, accumulating a reading into a
// named batch session, or printing (and publishing) that session's batch.
// Ported from executor.rs's PrintingActionExecutor.
type PrintingActionExecutor struct {
	queue     PrintJobQueue
	agentID   string
	publisher domain.EventPublisher
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*batch.Manager
}

// NewPrintingActionExecutor constructs a PrintingActionExecutor. queue is
// typically a *printer.Manager; publisher is the composite event bus the
// agent reports completed batches through.
func NewPrintingActionExecutor(queue PrintJobQueue, agentID string, publisher domain.EventPublisher, logger *slog.Logger) *PrintingActionExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrintingActionExecutor{
		queue:     queue,
		agentID:   agentID,
		publisher: publisher,
		logger:    logger,
		sessions:  make(map[string]*batch.Manager),
	}
}

func (e *PrintingActionExecutor) Execute(ctx context.Context, action domain.ActionConfig, tagID domain.TagID, value any) {
	switch action.Type {
	case domain.ActionPrintTicket:
		e.printTicket(tagID, action.Template, value)
	case domain.ActionAccumulateData:
		sessionID := strings.TrimSpace(action.SessionID)
		e.logger.Info("accumulating data into batch session", "session_id", sessionID)
		e.sessionFor(sessionID).AddItem(value, nil)
	case domain.ActionPrintBatch:
		sessionID := strings.TrimSpace(action.SessionID)
		e.logger.Info("printing batch", "session_id", sessionID)
		e.mu.Lock()
		mgr, ok := e.sessions[sessionID]
		e.mu.Unlock()
		if !ok {
			e.logger.Warn("no batch session found", "session_id", sessionID)
			return
		}
		items := toReportItems(mgr.TakeBatch())
		e.processBatchPrint(ctx, tagID, items, action.HeaderTemplate)
	case domain.ActionPublishMqtt:
		e.logger.Warn("mqtt action not yet implemented in printing executor", "tag_id", tagID)
	default:
		e.logger.Warn("unrecognized action type", "tag_id", tagID, "action_type", action.Type)
	}
}

func (e *PrintingActionExecutor) ExecuteManualBatch(ctx context.Context, sessionID string, items []domain.ReportItem) {
	e.logger.Info("generating manual batch ticket", "session_id", sessionID, "count", len(items))
	tagID := domain.TagID(sessionID)
	e.processBatchPrint(ctx, tagID, items, "REPORTE MANUAL DE PESAJES")
}

func (e *PrintingActionExecutor) sessionFor(sessionID string) *batch.Manager {
	e.mu.Lock()
	defer e.mu.Unlock()
	mgr, ok := e.sessions[sessionID]
	if !ok {
		mgr = batch.NewManager(e.logger)
		e.sessions[sessionID] = mgr
	}
	return mgr
}

func (e *PrintingActionExecutor) printTicket(tagID domain.TagID, template string, value any) {
	e.logger.Info("generating unit ticket", "tag_id", tagID, "template", template)

	receipt := printer.NewReceiptBuilder().
		Initialize().
		AlignCenter().
		TextLine("LABORATORIOS IFA S.A.").
		Separator().
		AlignLeft().
		KV("Tag:", tagID.String()).
		KV("Valor:", extractValueString(value)).
		KV("Fecha:", time.Now().Format("2006-01-02 15:04:05")).
		Separator().
		Feed(2).
		Cut().
		Build()

	e.queue.Enqueue(receipt)
}

func (e *PrintingActionExecutor) processBatchPrint(ctx context.Context, tagID domain.TagID, items []domain.ReportItem, header string) {
	if len(items) == 0 {
		e.logger.Warn("batch items empty, skipping print", "tag_id", tagID)
		return
	}

	reportID := fmt.Sprintf("man_%s_%s", tagID, uuid.NewString())
	event := domain.NewReportCompletedEvent(reportID, e.agentID, items)
	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.Error("failed to publish report event", "report_id", reportID, "tag_id", tagID, "error", err)
		} else {
			e.logger.Info("report event published", "report_id", reportID, "tag_id", tagID)
		}
	}

	builder := printer.NewReceiptBuilder().
		Initialize().
		AlignCenter().
		TextLine(header).
		Separator().
		AlignLeft()

	for i, item := range items {
		line := fmt.Sprintf("%d. %8s", i+1, extractValueString(item.Value))
		builder = builder.TextLine(line)
	}

	receipt := builder.
		Separator().
		AlignCenter().
		TextLine("FIN DEL REPORTE").
		Feed(2).
		Cut().
		Build()

	e.queue.Enqueue(receipt)
}

func toReportItems(items []batch.Item) []domain.ReportItem {
	out := make([]domain.ReportItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.ReportItem{Value: it.Value, Timestamp: it.Timestamp, Metadata: it.Metadata})
	}
	return out
}

func extractValueString(value any) string {
	switch v := value.(type) {
	case map[string]any:
		if inner, ok := v["value"]; ok {
			return formatValue(inner)
		}
		return formatValue(v)
	default:
		return formatValue(v)
	}
}

// formatValue renders value the way serde_json::Value::to_string() does
// for the original Rust receipt body: a whole-number float still prints
// its trailing ".0" (Go's "%v"/strconv shortest-form would otherwise
// print "10" for 10.0, diverging from the original printed receipts).
func formatValue(value any) string {
	f, ok := value.(float64)
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
