package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id string, historyLimit int) (*model.Lead, error) {
	args := m.Called(ctx, id, historyLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadRepository) GetLatest(ctx context.Context, id string, historyLimit int) (*model.Lead, error) {
	args := m.Called(ctx, id, historyLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByHandleAndChannel(ctx context.Context, handle string, channel model.Channel, historyLimit int) (*model.Lead, error) {
	args := m.Called(ctx, handle, channel, historyLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByHandle(ctx context.Context, substr string) ([]*model.Lead, error) {
	args := m.Called(ctx, substr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByState(ctx context.Context, state model.LeadState) ([]*model.Lead, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Lead), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, f model.LeadFilter) ([]*model.Lead, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Lead), args.Get(1).(int64), args.Error(2)
}

func (m *MockLeadRepository) Update(ctx context.Context, id string, u model.LeadUpdate, now time.Time) error {
	return m.Called(ctx, id, u, now).Error(0)
}

func (m *MockLeadRepository) SetHumanFlag(ctx context.Context, id string, value *bool, now time.Time) error {
	return m.Called(ctx, id, value, now).Error(0)
}

func (m *MockLeadRepository) TransitionState(ctx context.Context, id string, from model.LeadState, change model.StateChange) error {
	return m.Called(ctx, id, from, change).Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLeadRepository) History(ctx context.Context, id string, page, limit int) ([]model.StateChange, int64, error) {
	args := m.Called(ctx, id, page, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.StateChange), args.Get(1).(int64), args.Error(2)
}

func leadIn(id string, state model.LeadState) *model.Lead {
	return &model.Lead{ID: id, Handle: "h", Channel: model.ChannelWeb, State: state, HistoryCount: 1,
		StateHistory: []model.StateChange{{State: model.StateNewLead, Note: model.InitialHistoryNote}}}
}

func TestLeadService_Transition_RetriesAfterConcurrentChange(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, nil, DefaultLeadServiceConfig())
	svc.now = func() time.Time { return fixedNow }
	ctx := context.Background()
	id := uuid.NewString()

	// first read sees NewLead, but someone moves it to Interested before the write
	repo.On("GetLatest", ctx, id, 50).Return(leadIn(id, model.StateNewLead), nil).Once()
	repo.On("TransitionState", ctx, id, model.StateNewLead, mock.Anything).Return(repository.ErrStateChanged).Once()
	repo.On("GetLatest", ctx, id, 50).Return(leadIn(id, model.StateInterested), nil).Once()
	repo.On("TransitionState", ctx, id, model.StateInterested, mock.MatchedBy(func(c model.StateChange) bool {
		return c.State == model.StateUnderEvaluation && c.Note == "state changed: Interested → UnderEvaluation"
	})).Return(nil).Once()

	lead, err := svc.Transition(ctx, id, model.StateUnderEvaluation, "")
	require.NoError(t, err)
	assert.Equal(t, model.StateUnderEvaluation, lead.State)
	assert.Equal(t, int64(2), lead.HistoryCount)
	repo.AssertExpectations(t)
}

func TestLeadService_Transition_RevalidatesAfterConcurrentChange(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, nil, DefaultLeadServiceConfig())
	ctx := context.Background()
	id := uuid.NewString()

	repo.On("GetLatest", ctx, id, 50).Return(leadIn(id, model.StateNewLead), nil).Once()
	repo.On("TransitionState", ctx, id, model.StateNewLead, mock.Anything).Return(repository.ErrStateChanged).Once()
	repo.On("GetLatest", ctx, id, 50).Return(leadIn(id, model.StateSold), nil).Once()

	_, err := svc.Transition(ctx, id, model.StateCold, "")
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StateSold, te.From)
	repo.AssertExpectations(t)
}

func TestLeadService_Transition_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, nil, DefaultLeadServiceConfig())
	ctx := context.Background()
	id := uuid.NewString()

	repo.On("GetLatest", ctx, id, 50).Return(leadIn(id, model.StateNewLead), nil).Times(maxTransitionAttempts)
	repo.On("TransitionState", ctx, id, model.StateNewLead, mock.Anything).Return(repository.ErrStateChanged).Times(maxTransitionAttempts)

	_, err := svc.Transition(ctx, id, model.StateCold, "")
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, CodeStorage, Code(err))
	repo.AssertExpectations(t)
}

func TestLeadService_Transition_MissingLeadBeforeUnknownTarget(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, nil, DefaultLeadServiceConfig())
	ctx := context.Background()
	id := uuid.NewString()

	repo.On("GetLatest", ctx, id, 50).Return(nil, repository.ErrLeadNotFound).Once()

	_, err := svc.Transition(ctx, id, model.LeadState("Won"), "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, CodeNotFound, Code(err))
	repo.AssertExpectations(t)
}

func TestLeadService_Edit_WritesOnlySuppliedFields(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, nil, DefaultLeadServiceConfig())
	svc.now = func() time.Time { return fixedNow }
	ctx := context.Background()
	id := uuid.NewString()
	notes := "call back"

	repo.On("GetLatest", ctx, id, 50).Return(leadIn(id, model.StateInterested), nil).Once()
	repo.On("Update", ctx, id, model.LeadUpdate{Notes: &notes}, fixedNow).Return(nil).Once()

	lead, err := svc.Edit(ctx, id, model.LeadUpdate{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, lead.Notes)
	assert.Equal(t, fixedNow, lead.LastContactedAt)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeadService_StorageErrorsAreWrapped(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, nil, DefaultLeadServiceConfig())
	ctx := context.Background()
	boom := errors.New("connection reset")

	repo.On("FindByState", ctx, model.StateCold).Return(nil, boom)
	_, err := svc.FindByState(ctx, model.StateCold)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "find leads by state", se.Op)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, CodeStorage, Code(err))
}

func TestLeadService_Create_LosesRaceToDuplicate(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, nil, DefaultLeadServiceConfig())
	ctx := context.Background()
	existing := leadIn(uuid.NewString(), model.StateNewLead)

	repo.On("FindByHandleAndChannel", ctx, "h", model.ChannelWeb, 50).Return(nil, repository.ErrLeadNotFound).Once()
	repo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicateLead).Once()
	repo.On("FindByHandleAndChannel", ctx, "h", model.ChannelWeb, 50).Return(existing, nil).Once()

	_, err := svc.Create(ctx, model.LeadCreateRequest{Handle: "h", Channel: model.ChannelWeb})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, existing, ce.Existing)
	repo.AssertExpectations(t)
}
