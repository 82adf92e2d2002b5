package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/internal/repository"
	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/nimasrn/lead-crm/pkg/prom"
)

const maxTransitionAttempts = 3

type LeadRepository interface {
	Create(ctx context.Context, lead *model.Lead) (*model.Lead, error)
	GetByID(ctx context.Context, id string, historyLimit int) (*model.Lead, error)
	GetLatest(ctx context.Context, id string, historyLimit int) (*model.Lead, error)
	FindByHandleAndChannel(ctx context.Context, handle string, channel model.Channel, historyLimit int) (*model.Lead, error)
	FindByHandle(ctx context.Context, substr string) ([]*model.Lead, error)
	FindByState(ctx context.Context, state model.LeadState) ([]*model.Lead, error)
	List(ctx context.Context, f model.LeadFilter) ([]*model.Lead, int64, error) // results, totalCount
	Update(ctx context.Context, id string, u model.LeadUpdate, now time.Time) error
	SetHumanFlag(ctx context.Context, id string, value *bool, now time.Time) error
	TransitionState(ctx context.Context, id string, from model.LeadState, change model.StateChange) error
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, id string, page, limit int) ([]model.StateChange, int64, error)
}

// EventPublisher receives lifecycle events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, event model.LeadEvent) error
}

// SummaryInvalidator drops every cached statistics summary.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context) error
}

type LeadServiceConfig struct {
	PageSize     int
	MaxPageSize  int
	HistoryLimit int
}

func DefaultLeadServiceConfig() LeadServiceConfig {
	return LeadServiceConfig{
		PageSize:     10,
		MaxPageSize:  100,
		HistoryLimit: 50,
	}
}

type LeadService struct {
	repo   LeadRepository
	events EventPublisher
	stats  SummaryInvalidator
	config LeadServiceConfig
	now    func() time.Time
}

// NewLeadService wires the registry and transition engine. events and stats
// may be nil when redis is not configured.
func NewLeadService(repo LeadRepository, events EventPublisher, stats SummaryInvalidator, config LeadServiceConfig) *LeadService {
	return &LeadService{
		repo:   repo,
		events: events,
		stats:  stats,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *LeadService) Create(ctx context.Context, p model.LeadCreateRequest) (*model.Lead, error) {
	p.Normalize()
	if fe := p.Validate(); fe != nil {
		return nil, fromFieldError(fe)
	}

	existing, err := s.repo.FindByHandleAndChannel(ctx, p.Handle, p.Channel, s.config.HistoryLimit)
	switch {
	case err == nil:
		return nil, &ConflictError{Existing: existing}
	case !errors.Is(err, repository.ErrLeadNotFound):
		return nil, s.storageError("find lead by handle", err)
	}

	now := s.now()
	lead := &model.Lead{
		ID:              uuid.NewString(),
		Handle:          p.Handle,
		Channel:         p.Channel,
		ExternalID:      p.ExternalID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Phone:           p.Phone,
		Email:           p.Email,
		State:           model.StateNewLead,
		Interests:       p.Interests,
		Notes:           p.Notes,
		LastContactedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
		StateHistory: []model.StateChange{
			{State: model.StateNewLead, Note: model.InitialHistoryNote, Timestamp: now},
		},
	}

	created, err := s.repo.Create(ctx, lead)
	if errors.Is(err, repository.ErrDuplicateLead) {
		// another request registered the same pair in between
		return nil, s.conflict(ctx, p.Handle, p.Channel)
	}
	if err != nil {
		return nil, s.storageError("create lead", err)
	}

	prom.IncLeadsCreated()
	logger.Info("[lead-service] lead created", "lead_id", created.ID, "handle", created.Handle, "channel", created.Channel)
	s.afterWrite(ctx, model.LeadEvent{Type: model.EventLeadCreated, LeadID: created.ID, Lead: created})
	return created, nil
}

// Edit applies a partial update. State, history and creation time are not
// reachable from here.
func (s *LeadService) Edit(ctx context.Context, id string, u model.LeadUpdate) (*model.Lead, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	u.Normalize()
	if fe := u.Validate(); fe != nil {
		return nil, fromFieldError(fe)
	}

	lead, err := s.latest(ctx, id)
	if err != nil {
		return nil, err
	}
	handle, channel := lead.Handle, lead.Channel

	u.Apply(lead)
	now := s.now()
	if u.LastContactedAt == nil {
		lead.LastContactedAt = now
	} else {
		lead.LastContactedAt = lead.LastContactedAt.UTC()
	}
	lead.UpdatedAt = now

	if lead.Handle != handle || lead.Channel != channel {
		other, err := s.repo.FindByHandleAndChannel(ctx, lead.Handle, lead.Channel, s.config.HistoryLimit)
		switch {
		case err == nil && other.ID != lead.ID:
			return nil, &ConflictError{Existing: other}
		case err != nil && !errors.Is(err, repository.ErrLeadNotFound):
			return nil, s.storageError("find lead by handle", err)
		}
	}

	err = s.repo.Update(ctx, id, u, now)
	switch {
	case errors.Is(err, repository.ErrLeadNotFound):
		return nil, notFound(id)
	case errors.Is(err, repository.ErrDuplicateLead):
		return nil, s.conflict(ctx, lead.Handle, lead.Channel)
	case err != nil:
		return nil, s.storageError("update lead", err)
	}

	logger.Info("[lead-service] lead updated", "lead_id", lead.ID)
	s.afterWrite(ctx, model.LeadEvent{Type: model.EventLeadUpdated, LeadID: lead.ID, Lead: lead})
	return lead, nil
}

// latest reads a lead from the write side. Used wherever the result decides
// what gets written next.
func (s *LeadService) latest(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := s.repo.GetLatest(ctx, id, s.config.HistoryLimit)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.storageError("get lead", err)
	}
	return lead, nil
}

func (s *LeadService) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	lead, err := s.repo.GetByID(ctx, id, s.config.HistoryLimit)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.storageError("get lead", err)
	}
	return lead, nil
}

func (s *LeadService) FindByHandle(ctx context.Context, substr string) ([]*model.Lead, error) {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return nil, invalid("handle", "handle is required")
	}
	leads, err := s.repo.FindByHandle(ctx, substr)
	if err != nil {
		return nil, s.storageError("find leads by handle", err)
	}
	return leads, nil
}

func (s *LeadService) FindByState(ctx context.Context, state model.LeadState) ([]*model.Lead, error) {
	if !state.Valid() {
		return nil, invalid("state", "unknown state %q", state)
	}
	leads, err := s.repo.FindByState(ctx, state)
	if err != nil {
		return nil, s.storageError("find leads by state", err)
	}
	return leads, nil
}

func (s *LeadService) List(ctx context.Context, f model.LeadFilter) (model.Page[*model.Lead], error) {
	if err := s.normalizeFilter(&f); err != nil {
		return model.Page[*model.Lead]{}, err
	}
	leads, total, err := s.repo.List(ctx, f)
	if err != nil {
		return model.Page[*model.Lead]{}, s.storageError("list leads", err)
	}
	return model.NewPage(leads, total, f.Page, f.Limit), nil
}

func (s *LeadService) normalizeFilter(f *model.LeadFilter) error {
	if f.State != nil && !f.State.Valid() {
		return invalid("state", "unknown state %q", *f.State)
	}
	if f.Channel != nil && !f.Channel.Valid() {
		return invalid("channel", "unknown channel %q", *f.Channel)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return invalid("from", "from must not be after to")
	}
	if f.SortBy == "" {
		f.SortBy = model.DefaultSortBy
	}
	if _, ok := model.SortColumn(f.SortBy); !ok {
		return invalid("sortBy", "cannot sort by %q", f.SortBy)
	}
	switch f.SortOrder {
	case "":
		f.SortOrder = model.SortDesc
	case model.SortAsc, model.SortDesc:
	default:
		return invalid("sortOrder", "sort order must be asc or desc")
	}
	page, limit, err := s.pagination(f.Page, f.Limit)
	if err != nil {
		return err
	}
	f.Page, f.Limit = page, limit
	return nil
}

func (s *LeadService) pagination(page, limit int) (int, int, error) {
	if page < 1 {
		return 0, 0, invalid("page", "page must be 1 or greater")
	}
	switch {
	case limit < 0:
		return 0, 0, invalid("limit", "limit must be positive")
	case limit == 0:
		limit = s.config.PageSize
	case limit > s.config.MaxPageSize:
		limit = s.config.MaxPageSize
	}
	return page, limit, nil
}

func (s *LeadService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return notFound(id)
	}
	if err != nil {
		return s.storageError("delete lead", err)
	}

	logger.Info("[lead-service] lead deleted", "lead_id", id)
	s.afterWrite(ctx, model.LeadEvent{Type: model.EventLeadDeleted, LeadID: id})
	return nil
}

// ToggleHumanFlag sets needsHumanAttention to *value, or flips it when value is nil.
func (s *LeadService) ToggleHumanFlag(ctx context.Context, id string, value *bool) (*model.Lead, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	err := s.repo.SetHumanFlag(ctx, id, value, s.now())
	if errors.Is(err, repository.ErrLeadNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.storageError("set human flag", err)
	}

	lead, err := s.latest(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info("[lead-service] human flag changed", "lead_id", id, "needs_human_attention", lead.NeedsHumanAttention)
	s.afterWrite(ctx, model.LeadEvent{Type: model.EventLeadHumanFlagChanged, LeadID: id, Lead: lead})
	return lead, nil
}

// Transition moves a lead to target if the transition table allows it. The
// write is conditioned on the state that was validated, and is retried
// against a fresh read when another writer got there first.
func (s *LeadService) Transition(ctx context.Context, id string, target model.LeadState, note string) (*model.Lead, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)

	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		lead, err := s.latest(ctx, id)
		if err != nil {
			return nil, err
		}
		// a missing lead is reported before an unknown target
		if !target.Valid() {
			return nil, invalid("state", "unknown state %q", target)
		}

		from := lead.State
		next, rejection := model.ValidateTransition(from, target)
		if rejection != nil {
			prom.IncStateTransition(string(from), string(target), CodeIllegalTransition)
			return nil, &TransitionError{From: from, To: target, Allowed: rejection.Allowed}
		}

		change := model.StateChange{State: next, Note: note, Timestamp: s.now()}
		if change.Note == "" {
			change.Note = model.DefaultTransitionNote(from, next)
		}

		err = s.repo.TransitionState(ctx, id, from, change)
		switch {
		case errors.Is(err, repository.ErrStateChanged):
			logger.Warn("[lead-service] lead state moved during transition, retrying", "lead_id", id, "attempt", attempt)
			continue
		case errors.Is(err, repository.ErrLeadNotFound):
			return nil, notFound(id)
		case err != nil:
			prom.IncStateTransition(string(from), string(target), CodeStorage)
			return nil, s.storageError("transition lead", err)
		}

		applyChange(lead, change, s.config.HistoryLimit)
		prom.IncStateTransition(string(from), string(next), "ok")
		logger.Info("[lead-service] lead state changed", "lead_id", id, "from", from, "to", next)
		s.afterWrite(ctx, model.LeadEvent{
			Type:      model.EventLeadStateChanged,
			LeadID:    id,
			FromState: from,
			ToState:   next,
			Lead:      lead,
		})
		return lead, nil
	}

	prom.IncStateTransition("", string(target), CodeStorage)
	return nil, s.storageError("transition lead", ErrConcurrentUpdate)
}

// BulkTransition applies Transition to every id in request order. Failures
// are collected per id; nothing is rolled back.
func (s *LeadService) BulkTransition(ctx context.Context, req model.BulkTransitionRequest) (*model.BulkTransitionResult, error) {
	if len(req.IDs) == 0 {
		return nil, invalid("ids", "at least one id is required")
	}
	if !req.Target.Valid() {
		return nil, invalid("targetState", "unknown state %q", req.Target)
	}

	result := &model.BulkTransitionResult{
		Requested: len(req.IDs),
		Succeeded: make([]string, 0, len(req.IDs)),
		Failed:    make([]model.BulkFailure, 0),
	}
	for _, id := range req.IDs {
		_, err := s.Transition(ctx, id, req.Target, req.Note)
		if err == nil {
			result.Succeeded = append(result.Succeeded, id)
			continue
		}
		failure := model.BulkFailure{ID: id, Code: Code(err), Reason: err.Error()}
		var te *TransitionError
		if errors.As(err, &te) {
			failure.AllowedStates = te.Allowed
		}
		result.Failed = append(result.Failed, failure)
	}
	result.SucceededCount = len(result.Succeeded)
	result.FailedCount = len(result.Failed)

	prom.AddBulkTransitionItems("ok", result.SucceededCount)
	prom.AddBulkTransitionItems("failed", result.FailedCount)
	logger.Info("[lead-service] bulk transition finished",
		"target", req.Target,
		"requested", result.Requested,
		"succeeded", result.SucceededCount,
		"failed", result.FailedCount)
	return result, nil
}

func (s *LeadService) History(ctx context.Context, id string, page, limit int) (model.Page[model.StateChange], error) {
	if err := validateID(id); err != nil {
		return model.Page[model.StateChange]{}, err
	}
	page, limit, err := s.pagination(page, limit)
	if err != nil {
		return model.Page[model.StateChange]{}, err
	}
	items, total, err := s.repo.History(ctx, id, page, limit)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return model.Page[model.StateChange]{}, notFound(id)
	}
	if err != nil {
		return model.Page[model.StateChange]{}, s.storageError("lead history", err)
	}
	return model.NewPage(items, total, page, limit), nil
}

// Options returns the static enumerations for UI dropdowns.
func (s *LeadService) Options() model.Options {
	return model.BuildOptions()
}

func (s *LeadService) afterWrite(ctx context.Context, event model.LeadEvent) {
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx); err != nil {
			logger.Warn("[lead-service] failed to invalidate statistics cache", "error", err)
		}
	}
	if s.events != nil {
		event.OccurredAt = s.now()
		if err := s.events.Publish(ctx, event); err != nil {
			logger.Warn("[lead-service] failed to publish lead event", "type", event.Type, "lead_id", event.LeadID, "error", err)
		}
	}
}

func (s *LeadService) conflict(ctx context.Context, handle string, channel model.Channel) error {
	existing, err := s.repo.FindByHandleAndChannel(ctx, handle, channel, s.config.HistoryLimit)
	if err != nil {
		logger.Warn("[lead-service] failed to load conflicting lead", "handle", handle, "channel", channel, "error", err)
		existing = nil
	}
	return &ConflictError{Existing: existing}
}

func (s *LeadService) storageError(op string, err error) error {
	logger.Error("[lead-service] storage failure", "op", op, "error", err)
	return &StorageError{Op: op, Err: err}
}

// applyChange mirrors a persisted transition on the in-memory lead.
func applyChange(lead *model.Lead, change model.StateChange, historyLimit int) {
	lead.State = change.State
	lead.LastContactedAt = change.Timestamp
	lead.UpdatedAt = change.Timestamp
	lead.StateHistory = append(lead.StateHistory, change)
	if historyLimit > 0 && len(lead.StateHistory) > historyLimit {
		lead.StateHistory = lead.StateHistory[len(lead.StateHistory)-historyLimit:]
	}
	lead.HistoryCount++
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("malformed id %q", id)}
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
