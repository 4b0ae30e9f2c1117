package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainRedCodes/CareOps/internal/automations/application/services"
	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	"github.com/CaptainRedCodes/CareOps/internal/delivery"
	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// memRules is an in-memory rule repository preserving insertion order.
type memRules struct {
	mu    sync.Mutex
	rules []*domain.Rule
}

func (r *memRules) Create(ctx context.Context, rule *domain.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	return nil
}

func (r *memRules) Update(ctx context.Context, rule *domain.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rules {
		if existing.ID == rule.ID {
			r.rules[i] = rule
			return nil
		}
	}
	return domain.ErrRuleNotFound
}

func (r *memRules) Delete(ctx context.Context, workspaceID, ruleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rules {
		if existing.ID == ruleID && existing.WorkspaceID == workspaceID {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memRules) GetByID(ctx context.Context, workspaceID, ruleID uuid.UUID) (*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == ruleID && rule.WorkspaceID == workspaceID {
			return rule, nil
		}
	}
	return nil, domain.ErrRuleNotFound
}

func (r *memRules) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Rule
	for _, rule := range r.rules {
		if rule.WorkspaceID == workspaceID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRules) ListActiveForEvent(ctx context.Context, workspaceID uuid.UUID, eventType events.Type) ([]*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Rule
	for _, rule := range r.rules {
		if rule.WorkspaceID == workspaceID && rule.EventType == eventType && rule.IsActive {
			out = append(out, rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

// memLogs collects written audit rows.
type memLogs struct {
	mu   sync.Mutex
	rows []*domain.Log
}

func (l *memLogs) Create(ctx context.Context, log *domain.Log) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, log)
	return nil
}

func (l *memLogs) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*domain.Log, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.Log
	for _, row := range l.rows {
		if row.WorkspaceID == workspaceID && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

// memPause is an in-memory pause registry.
type memPause struct {
	mu     sync.Mutex
	paused map[string]bool
}

func newMemPause() *memPause {
	return &memPause{paused: make(map[string]bool)}
}

func pauseKey(workspaceID, contactID uuid.UUID) string {
	return workspaceID.String() + "/" + contactID.String()
}

func (p *memPause) Pause(ctx context.Context, workspaceID, contactID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused[pauseKey(workspaceID, contactID)] = true
	return nil
}

func (p *memPause) Resume(ctx context.Context, workspaceID, contactID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.paused, pauseKey(workspaceID, contactID))
	return nil
}

func (p *memPause) IsPaused(ctx context.Context, workspaceID, contactID uuid.UUID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused[pauseKey(workspaceID, contactID)], nil
}

// recordingSender captures sent messages, optionally failing.
type recordingSender struct {
	mu   sync.Mutex
	sent []delivery.Message
	fail error
}

func (s *recordingSender) Send(ctx context.Context, msg delivery.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, msg)
	return nil
}

type engineFixture struct {
	engine *services.Engine
	rules  *memRules
	logs   *memLogs
	pause  *memPause
	sender *recordingSender
}

func newEngineFixture() *engineFixture {
	rules := &memRules{}
	logs := &memLogs{}
	pause := newMemPause()
	sender := &recordingSender{}
	return &engineFixture{
		engine: services.NewEngine(rules, logs, pause, sender, nil),
		rules:  rules,
		logs:   logs,
		pause:  pause,
		sender: sender,
	}
}

func addRule(t *testing.T, f *engineFixture, workspaceID uuid.UUID, name string, priority int, actionType domain.ActionType, conditions map[string]any) *domain.Rule {
	t.Helper()
	rule, err := domain.NewRule(workspaceID, name, events.TypeBookingCreated, actionType, domain.ActionConfig{
		Subject: "Booking confirmed",
		Message: "Hi {{name}}, see you at {{time}}.",
	})
	require.NoError(t, err)
	rule.Priority = priority
	if conditions != nil {
		rule.Conditions = conditions
	}
	require.NoError(t, f.rules.Create(context.Background(), rule))
	return rule
}

func bookingTrigger(contactID uuid.UUID) map[string]any {
	return map[string]any{
		"event_type":    string(events.TypeBookingCreated),
		"contact_id":    contactID.String(),
		"contact_name":  "Jamie Soto",
		"contact_email": "jamie@example.com",
		"contact_phone": "+15550100",
		"booking_time":  "09:00 AM",
	}
}

func TestEvaluatePausedContactShortCircuits(t *testing.T) {
	f := newEngineFixture()
	workspaceID := uuid.New()
	contactID := uuid.New()
	addRule(t, f, workspaceID, "Confirmation", 0, domain.ActionSendEmail, nil)

	require.NoError(t, f.pause.Pause(context.Background(), workspaceID, contactID))
	require.NoError(t, f.engine.Evaluate(context.Background(), workspaceID, string(events.TypeBookingCreated), bookingTrigger(contactID)))

	// Zero deliveries, exactly one skipped row with no rule attached.
	assert.Empty(t, f.sender.sent)
	require.Len(t, f.logs.rows, 1)
	row := f.logs.rows[0]
	assert.Equal(t, domain.LogStatusSkipped, row.Status)
	assert.True(t, row.Stopped)
	assert.Nil(t, row.RuleID)
}

func TestEvaluateRunsRulesByPriority(t *testing.T) {
	f := newEngineFixture()
	workspaceID := uuid.New()
	low := addRule(t, f, workspaceID, "Second", 10, domain.ActionSendEmail, nil)
	high := addRule(t, f, workspaceID, "First", 1, domain.ActionSendEmail, nil)

	require.NoError(t, f.engine.Evaluate(context.Background(), workspaceID, string(events.TypeBookingCreated), bookingTrigger(uuid.New())))

	// Both fired, higher priority (lower number) first.
	require.Len(t, f.logs.rows, 2)
	assert.Equal(t, high.ID, *f.logs.rows[0].RuleID)
	assert.Equal(t, low.ID, *f.logs.rows[1].RuleID)
	assert.Len(t, f.sender.sent, 2)
}

func TestEvaluateConditionMismatchIsSilent(t *testing.T) {
	f := newEngineFixture()
	workspaceID := uuid.New()
	addRule(t, f, workspaceID, "VIP only", 0, domain.ActionSendEmail, map[string]any{"service_name": "VIP Package"})
	matched := addRule(t, f, workspaceID, "Everyone", 1, domain.ActionSendEmail, nil)

	require.NoError(t, f.engine.Evaluate(context.Background(), workspaceID, string(events.TypeBookingCreated), bookingTrigger(uuid.New())))

	// The mismatched rule left no log row at all.
	require.Len(t, f.logs.rows, 1)
	assert.Equal(t, matched.ID, *f.logs.rows[0].RuleID)
	assert.Equal(t, domain.LogStatusSuccess, f.logs.rows[0].Status)
}

func TestEvaluateMissingRecipientFailsRuleAndContinues(t *testing.T) {
	f := newEngineFixture()
	workspaceID := uuid.New()
	sms := addRule(t, f, workspaceID, "Text", 0, domain.ActionSendSMS, nil)
	email := addRule(t, f, workspaceID, "Mail", 1, domain.ActionSendEmail, nil)

	trigger := bookingTrigger(uuid.New())
	delete(trigger, "contact_phone")

	require.NoError(t, f.engine.Evaluate(context.Background(), workspaceID, string(events.TypeBookingCreated), trigger))

	require.Len(t, f.logs.rows, 2)
	assert.Equal(t, sms.ID, *f.logs.rows[0].RuleID)
	assert.Equal(t, domain.LogStatusFailed, f.logs.rows[0].Status)
	assert.Contains(t, f.logs.rows[0].ErrorMessage, "contact_phone")

	// The email sibling still fired.
	assert.Equal(t, email.ID, *f.logs.rows[1].RuleID)
	assert.Equal(t, domain.LogStatusSuccess, f.logs.rows[1].Status)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, delivery.ChannelEmail, f.sender.sent[0].Channel)
}

func TestEvaluateRendersTemplatesBeforeSending(t *testing.T) {
	f := newEngineFixture()
	workspaceID := uuid.New()
	addRule(t, f, workspaceID, "Confirmation", 0, domain.ActionSendEmail, nil)

	require.NoError(t, f.engine.Evaluate(context.Background(), workspaceID, string(events.TypeBookingCreated), bookingTrigger(uuid.New())))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "jamie@example.com", f.sender.sent[0].Recipient)
	assert.Equal(t, "Hi Jamie Soto, see you at 09:00 AM.", f.sender.sent[0].Body)

	require.Len(t, f.logs.rows, 1)
	assert.Equal(t, "Hi Jamie Soto, see you at 09:00 AM.", f.logs.rows[0].Message)
}

func TestEvaluateDeliveryFailureWritesFailedRow(t *testing.T) {
	f := newEngineFixture()
	f.sender.fail = errors.New("provider down")
	workspaceID := uuid.New()
	addRule(t, f, workspaceID, "Confirmation", 0, domain.ActionSendEmail, nil)

	require.NoError(t, f.engine.Evaluate(context.Background(), workspaceID, string(events.TypeBookingCreated), bookingTrigger(uuid.New())))

	require.Len(t, f.logs.rows, 1)
	assert.Equal(t, domain.LogStatusFailed, f.logs.rows[0].Status)
	assert.Contains(t, f.logs.rows[0].ErrorMessage, "provider down")
}

func TestEvaluateInactiveRulesDoNotRun(t *testing.T) {
	f := newEngineFixture()
	workspaceID := uuid.New()
	rule := addRule(t, f, workspaceID, "Disabled", 0, domain.ActionSendEmail, nil)
	rule.IsActive = false

	require.NoError(t, f.engine.Evaluate(context.Background(), workspaceID, string(events.TypeBookingCreated), bookingTrigger(uuid.New())))
	assert.Empty(t, f.logs.rows)
	assert.Empty(t, f.sender.sent)
}

func TestEvaluateRejectsUnknownEventType(t *testing.T) {
	f := newEngineFixture()
	err := f.engine.Evaluate(context.Background(), uuid.New(), "meeting.scheduled", map[string]any{})
	assert.Error(t, err)
}
