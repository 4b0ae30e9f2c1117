package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AutomationEvaluator runs workspace automation rules for a dispatched
// event. Implemented by the automations rule engine; declared here so the
// dispatcher does not depend on that package.
type AutomationEvaluator interface {
	Evaluate(ctx context.Context, workspaceID uuid.UUID, eventType string, triggerData map[string]any) error
}

// handlerResult captures one handler invocation. Handler failures are
// values, never propagated errors, so one handler cannot block siblings.
type handlerResult struct {
	handler string
	err     error
}

// Dispatcher delivers committed event log entries to registered handlers
// and then to the automation rule engine.
type Dispatcher struct {
	repo      Repository
	registry  *Registry
	evaluator AutomationEvaluator
	publisher Publisher
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. The publisher may be nil when no
// broker bridge is configured.
func NewDispatcher(repo Repository, registry *Registry, evaluator AutomationEvaluator, publisher Publisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:      repo,
		registry:  registry,
		evaluator: evaluator,
		publisher: publisher,
		logger:    logger,
	}
}

// Dispatch runs every handler registered for the entry's type in
// registration order, finalizes the entry's status, and evaluates
// automation rules. It must be called after the transaction that appended
// the entry has committed.
//
// Dispatch is idempotent: an entry whose status is already final is left
// untouched, and the pending→final transition is a compare-and-set, so a
// concurrent or repeated dispatch runs automation at most once.
func (d *Dispatcher) Dispatch(ctx context.Context, entry *Entry) error {
	if entry.IsFinal() {
		d.logger.Debug("entry already dispatched",
			"event_id", entry.ID,
			"status", entry.Status,
		)
		return nil
	}

	handlers := d.registry.HandlersFor(entry.Type)
	results := make([]handlerResult, 0, len(handlers))
	for _, h := range handlers {
		results = append(results, handlerResult{
			handler: h.Name(),
			err:     d.invoke(ctx, h, entry),
		})
	}

	status := StatusProcessed
	var failures []string
	for _, res := range results {
		if res.err != nil {
			status = StatusFailed
			failures = append(failures, res.handler+": "+res.err.Error())
		}
	}
	errorMessage := strings.Join(failures, "; ")

	processedAt := time.Now().UTC()
	claimed, err := d.repo.FinishDispatch(ctx, entry.ID, status, errorMessage, processedAt)
	if err != nil {
		return err
	}
	if !claimed {
		d.logger.Warn("entry dispatched elsewhere, skipping automation",
			"event_id", entry.ID,
		)
		entry.Status = status
		return nil
	}

	entry.Status = status
	entry.ErrorMessage = errorMessage
	entry.ProcessedAt = &processedAt

	d.logger.Info("event dispatched",
		"event_type", entry.Type,
		"event_id", entry.ID,
		"handlers", len(handlers),
		"status", status,
	)

	// Automation is independent of the logging-only handlers: it runs even
	// when a handler failed.
	if d.evaluator != nil {
		if err := d.evaluator.Evaluate(ctx, entry.WorkspaceID, string(entry.Type), entry.TriggerData()); err != nil {
			d.logger.Error("automation evaluation failed",
				"event_type", entry.Type,
				"event_id", entry.ID,
				"error", err,
			)
		}
	}

	d.bridge(ctx, entry)

	return nil
}

// invoke runs one handler, converting a panic into a handler error so a
// misbehaving handler cannot take down the dispatch loop.
func (d *Dispatcher) invoke(ctx context.Context, h Handler, entry *Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &handlerPanicError{handler: h.Name(), value: r}
		}
	}()

	if err := h.Handle(ctx, entry); err != nil {
		d.logger.Error("event handler failed",
			"event_type", entry.Type,
			"event_id", entry.ID,
			"handler", h.Name(),
			"error", err,
		)
		return err
	}
	return nil
}

// bridge publishes the finalized entry to the external broker, if one is
// configured. Failures are logged and never affect the entry's status.
func (d *Dispatcher) bridge(ctx context.Context, entry *Entry) {
	if d.publisher == nil {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		d.logger.Error("failed to marshal entry for broker",
			"event_id", entry.ID,
			"error", err,
		)
		return
	}

	if err := d.publisher.Publish(ctx, string(entry.Type), payload); err != nil {
		d.logger.Error("failed to publish entry to broker",
			"event_id", entry.ID,
			"routing_key", entry.Type,
			"error", err,
		)
	}
}

type handlerPanicError struct {
	handler string
	value   any
}

func (e *handlerPanicError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.handler, e.value)
}
