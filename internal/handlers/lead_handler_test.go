package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/internal/services"
	xhttp "github.com/nimasrn/lead-crm/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const leadID = "6f1c2a7e-3b1d-4c55-9a0e-0d5b2f8f9a11"

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) Create(ctx context.Context, p model.LeadCreateRequest) (*model.Lead, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) Edit(ctx context.Context, id string, u model.LeadUpdate) (*model.Lead, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) FindByHandle(ctx context.Context, substr string) ([]*model.Lead, error) {
	args := m.Called(ctx, substr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Lead), args.Error(1)
}

func (m *MockLeadService) FindByState(ctx context.Context, state model.LeadState) ([]*model.Lead, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Lead), args.Error(1)
}

func (m *MockLeadService) List(ctx context.Context, f model.LeadFilter) (model.Page[*model.Lead], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.Page[*model.Lead]), args.Error(1)
}

func (m *MockLeadService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLeadService) ToggleHumanFlag(ctx context.Context, id string, value *bool) (*model.Lead, error) {
	args := m.Called(ctx, id, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) Transition(ctx context.Context, id string, target model.LeadState, note string) (*model.Lead, error) {
	args := m.Called(ctx, id, target, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) BulkTransition(ctx context.Context, req model.BulkTransitionRequest) (*model.BulkTransitionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BulkTransitionResult), args.Error(1)
}

func (m *MockLeadService) History(ctx context.Context, id string, page, limit int) (model.Page[model.StateChange], error) {
	args := m.Called(ctx, id, page, limit)
	return args.Get(0).(model.Page[model.StateChange]), args.Error(1)
}

func (m *MockLeadService) Options() model.Options {
	return model.BuildOptions()
}

type MockStatisticsService struct {
	mock.Mock
}

func (m *MockStatisticsService) Summary(ctx context.Context, rng model.DateRange) (*model.Summary, error) {
	args := m.Called(ctx, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Summary), args.Error(1)
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code          string             `json:"code"`
		Field         string             `json:"field"`
		CurrentState  model.LeadState    `json:"currentState"`
		TargetState   model.LeadState    `json:"targetState"`
		AllowedStates *[]model.LeadState `json:"allowedStates"`
	} `json:"error"`
	Total      *int64 `json:"total"`
	Page       *int   `json:"page"`
	TotalPages *int   `json:"totalPages"`
}

// setupTestContext builds a context bound to fasthttp's fake server so it
// can be used as a context.Context.
func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if body != nil {
		req.SetBody(body)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

// serve routes a request through the real route table with no auth guard.
func serve(svc *MockLeadService, stats *MockStatisticsService, method, path string, body []byte) (*xhttp.RequestCtx, testResponse) {
	r := xhttp.CreateDefaultRouter()
	RegisterLeadRoutes(r.Group("/api/v1"), NewLeadHandler(svc, stats), nil)

	ctx := setupTestContext(method, path, body)
	r.Handler(ctx)

	var resp testResponse
	_ = json.Unmarshal(ctx.Response.Body(), &resp)
	return ctx, resp
}

func sampleLead() *model.Lead {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &model.Lead{
		ID:      leadID,
		Handle:  "juanp",
		Channel: model.ChannelInstagram,
		State:   model.StateNewLead,
		StateHistory: []model.StateChange{
			{State: model.StateNewLead, Note: model.InitialHistoryNote, Timestamp: at},
		},
		HistoryCount:    1,
		LastContactedAt: at,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

func TestLeadHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(p model.LeadCreateRequest) bool {
			return p.Handle == "juanp" && p.Channel == model.ChannelInstagram && p.ExternalID == "ig-1"
		})).Return(sampleLead(), nil)

		ctx, resp := serve(svc, nil, "POST", "/api/v1/crm", []byte(`{"handle":"juanp","channel":"Instagram","externalId":"ig-1"}`))

		assert.Equal(t, 201, ctx.Response.StatusCode())
		assert.True(t, resp.Success)
		var lead model.Lead
		require.NoError(t, json.Unmarshal(resp.Data, &lead))
		assert.Equal(t, leadID, lead.ID)
		assert.Equal(t, model.StateNewLead, lead.State)
		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockLeadService)
		ctx, resp := serve(svc, nil, "POST", "/api/v1/crm", []byte("invalid json"))

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Message, "invalid JSON")
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("validation error carries field", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrInvalidChannel)

		ctx, resp := serve(svc, nil, "POST", "/api/v1/crm", []byte(`{"handle":"x","channel":"Fax"}`))

		assert.Equal(t, 400, ctx.Response.StatusCode())
		require.NotNil(t, resp.Error)
		assert.Equal(t, services.CodeValidation, resp.Error.Code)
		assert.Equal(t, "channel", resp.Error.Field)
	})

	t.Run("conflict returns existing lead", func(t *testing.T) {
		svc := new(MockLeadService)
		existing := sampleLead()
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, &services.ConflictError{Existing: existing})

		ctx, resp := serve(svc, nil, "POST", "/api/v1/crm", []byte(`{"handle":"juanp","channel":"Instagram"}`))

		assert.Equal(t, 409, ctx.Response.StatusCode())
		require.NotNil(t, resp.Error)
		assert.Equal(t, services.CodeConflict, resp.Error.Code)
		var lead model.Lead
		require.NoError(t, json.Unmarshal(resp.Data, &lead))
		assert.Equal(t, existing.ID, lead.ID)
	})

	t.Run("storage error hides cause", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Create", mock.Anything, mock.Anything).
			Return(nil, &services.StorageError{Op: "create lead", Err: errors.New("dial tcp 10.0.0.1: refused")})

		ctx, resp := serve(svc, nil, "POST", "/api/v1/crm", []byte(`{"handle":"juanp","channel":"Instagram"}`))

		assert.Equal(t, 500, ctx.Response.StatusCode())
		require.NotNil(t, resp.Error)
		assert.Equal(t, services.CodeStorage, resp.Error.Code)
		assert.NotContains(t, resp.Message, "10.0.0.1")
	})
}

func TestLeadHandler_Edit(t *testing.T) {
	t.Run("drops state and history fields", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Edit", mock.Anything, leadID, mock.MatchedBy(func(u model.LeadUpdate) bool {
			return u.Notes != nil && *u.Notes == "called back" && u.Handle == nil && u.LastContactedAt == nil
		})).Return(sampleLead(), nil)

		body := []byte(`{"notes":"called back","state":"Sold","stateHistory":[],"createdAt":"2020-01-01T00:00:00Z"}`)
		ctx, resp := serve(svc, nil, "PUT", "/api/v1/crm/"+leadID, body)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.True(t, resp.Success)
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Edit", mock.Anything, leadID, mock.Anything).
			Return(nil, fmt.Errorf("%w: %s", services.ErrNotFound, leadID))

		ctx, resp := serve(svc, nil, "PUT", "/api/v1/crm/"+leadID, []byte(`{"notes":"x"}`))

		assert.Equal(t, 404, ctx.Response.StatusCode())
		require.NotNil(t, resp.Error)
		assert.Equal(t, services.CodeNotFound, resp.Error.Code)
	})
}

func TestLeadHandler_Get(t *testing.T) {
	svc := new(MockLeadService)
	svc.On("GetByID", mock.Anything, leadID).Return(sampleLead(), nil)

	ctx, resp := serve(svc, nil, "GET", "/api/v1/crm/"+leadID, nil)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var lead model.Lead
	require.NoError(t, json.Unmarshal(resp.Data, &lead))
	assert.Len(t, lead.StateHistory, 1)
	assert.Equal(t, int64(1), lead.HistoryCount)
}

func TestLeadHandler_List(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		svc := new(MockLeadService)
		page := model.NewPage([]*model.Lead{sampleLead()}, 11, 2, 5)
		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.LeadFilter) bool {
			return f.State != nil && *f.State == model.StateInterested &&
				f.Channel != nil && *f.Channel == model.ChannelWhatsApp &&
				f.NeedsHuman != nil && *f.NeedsHuman &&
				f.Handle == "jua" &&
				f.Page == 2 && f.Limit == 5 &&
				f.SortBy == "createdAt" && f.SortOrder == model.SortAsc &&
				f.From != nil && f.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) &&
				f.To != nil && f.To.Equal(time.Date(2025, 1, 31, 23, 59, 59, 999999999, time.UTC))
		})).Return(page, nil)

		path := "/api/v1/crm?state=Interested&channel=WhatsApp&needsHuman=true&handle=jua&page=2&limit=5" +
			"&sortBy=createdAt&sortOrder=ASC&from=2025-01-01&to=2025-01-31"
		ctx, resp := serve(svc, nil, "GET", path, nil)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		require.NotNil(t, resp.Total)
		assert.Equal(t, int64(11), *resp.Total)
		assert.Equal(t, 2, *resp.Page)
		assert.Equal(t, 3, *resp.TotalPages)
		var leads []model.Lead
		require.NoError(t, json.Unmarshal(resp.Data, &leads))
		assert.Len(t, leads, 1)
		svc.AssertExpectations(t)
	})

	t.Run("defaults", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("List", mock.Anything, model.LeadFilter{Page: 1}).
			Return(model.NewPage([]*model.Lead{}, 0, 1, 10), nil)

		ctx, resp := serve(svc, nil, "GET", "/api/v1/crm", nil)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, "[]", string(resp.Data))
		assert.Equal(t, 0, *resp.TotalPages)
	})

	t.Run("bad query values", func(t *testing.T) {
		for _, path := range []string{
			"/api/v1/crm?needsHuman=maybe",
			"/api/v1/crm?page=two",
			"/api/v1/crm?limit=x",
			"/api/v1/crm?from=yesterday",
			"/api/v1/crm?to=2025-13-40",
		} {
			svc := new(MockLeadService)
			ctx, resp := serve(svc, nil, "GET", path, nil)
			assert.Equal(t, 400, ctx.Response.StatusCode(), path)
			require.NotNil(t, resp.Error, path)
			assert.Equal(t, services.CodeValidation, resp.Error.Code, path)
			svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		}
	})
}

func TestLeadHandler_FindRoutes(t *testing.T) {
	svc := new(MockLeadService)
	svc.On("FindByHandle", mock.Anything, "juan").Return([]*model.Lead{sampleLead()}, nil)
	svc.On("FindByState", mock.Anything, model.StateNewLead).Return([]*model.Lead{}, nil)

	ctx, resp := serve(svc, nil, "GET", "/api/v1/crm/handle/juan", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	var leads []model.Lead
	require.NoError(t, json.Unmarshal(resp.Data, &leads))
	assert.Len(t, leads, 1)

	ctx, resp = serve(svc, nil, "GET", "/api/v1/crm/state/NewLead", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "[]", string(resp.Data))

	svc.AssertExpectations(t)
}

func TestLeadHandler_Transition(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockLeadService)
		moved := sampleLead()
		moved.State = model.StateInterested
		svc.On("Transition", mock.Anything, leadID, model.StateInterested, "replied to DM").Return(moved, nil)

		ctx, resp := serve(svc, nil, "PUT", "/api/v1/crm/"+leadID+"/state/Interested", []byte(`{"note":"replied to DM"}`))

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.True(t, resp.Success)
		svc.AssertExpectations(t)
	})

	t.Run("no body", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Transition", mock.Anything, leadID, model.StateLost, "").Return(sampleLead(), nil)

		ctx, _ := serve(svc, nil, "PUT", "/api/v1/crm/"+leadID+"/state/Lost", nil)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("illegal transition lists allowed states", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Transition", mock.Anything, leadID, model.StateCold, "").Return(nil, &services.TransitionError{
			From:    model.StateUnderEvaluation,
			To:      model.StateCold,
			Allowed: model.AllowedFrom(model.StateUnderEvaluation),
		})

		ctx, resp := serve(svc, nil, "PUT", "/api/v1/crm/"+leadID+"/state/Cold", nil)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		require.NotNil(t, resp.Error)
		assert.Equal(t, services.CodeIllegalTransition, resp.Error.Code)
		assert.Equal(t, model.StateUnderEvaluation, resp.Error.CurrentState)
		assert.Equal(t, model.StateCold, resp.Error.TargetState)
		require.NotNil(t, resp.Error.AllowedStates)
		assert.Equal(t, model.AllowedFrom(model.StateUnderEvaluation), *resp.Error.AllowedStates)
	})

	t.Run("terminal state reports empty allowed list", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("Transition", mock.Anything, leadID, model.StateInterested, "").Return(nil, &services.TransitionError{
			From: model.StateLost,
			To:   model.StateInterested,
		})

		ctx, _ := serve(svc, nil, "PUT", "/api/v1/crm/"+leadID+"/state/Interested", nil)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), `"allowedStates":[]`)
	})
}

func TestLeadHandler_BulkTransition(t *testing.T) {
	svc := new(MockLeadService)
	result := &model.BulkTransitionResult{
		Requested:      2,
		SucceededCount: 1,
		FailedCount:    1,
		Succeeded:      []string{leadID},
		Failed:         []model.BulkFailure{{ID: "missing", Code: services.CodeNotFound, Reason: "lead not found"}},
	}
	svc.On("BulkTransition", mock.Anything, model.BulkTransitionRequest{
		IDs:    []string{leadID, "missing"},
		Target: model.StateCold,
		Note:   "quarterly cleanup",
	}).Return(result, nil)

	body := []byte(`{"ids":["` + leadID + `","missing"],"targetState":"Cold","note":"quarterly cleanup"}`)
	ctx, resp := serve(svc, nil, "PUT", "/api/v1/crm/bulk-state", body)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "1 succeeded, 1 failed", resp.Message)
	var got model.BulkTransitionResult
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, *result, got)
	svc.AssertExpectations(t)
}

func TestLeadHandler_ToggleHumanFlag(t *testing.T) {
	svc := new(MockLeadService)
	svc.On("ToggleHumanFlag", mock.Anything, leadID, (*bool)(nil)).Return(sampleLead(), nil).Once()
	svc.On("ToggleHumanFlag", mock.Anything, leadID, mock.MatchedBy(func(v *bool) bool {
		return v != nil && !*v
	})).Return(sampleLead(), nil).Once()

	ctx, _ := serve(svc, nil, "PUT", "/api/v1/crm/"+leadID+"/human-flag", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx, _ = serve(svc, nil, "PUT", "/api/v1/crm/"+leadID+"/human-flag", []byte(`{"value":false}`))
	assert.Equal(t, 200, ctx.Response.StatusCode())

	svc.AssertExpectations(t)
}

func TestLeadHandler_Delete(t *testing.T) {
	svc := new(MockLeadService)
	svc.On("Delete", mock.Anything, leadID).Return(nil)

	ctx, resp := serve(svc, nil, "DELETE", "/api/v1/crm/"+leadID, nil)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.True(t, resp.Success)
	assert.Equal(t, "lead deleted", resp.Message)
}

func TestLeadHandler_History(t *testing.T) {
	svc := new(MockLeadService)
	items := []model.StateChange{{State: model.StateNewLead, Note: model.InitialHistoryNote}}
	svc.On("History", mock.Anything, leadID, 1, 0).Return(model.NewPage(items, 1, 1, 10), nil)

	ctx, resp := serve(svc, nil, "GET", "/api/v1/crm/"+leadID+"/history", nil)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, int64(1), *resp.Total)
	svc.AssertExpectations(t)
}

func TestLeadHandler_Statistics(t *testing.T) {
	t.Run("inclusive date-only upper bound", func(t *testing.T) {
		stats := new(MockStatisticsService)
		summary := &model.Summary{Total: 3, ConversionRate: "33.33%"}
		stats.On("Summary", mock.Anything, mock.MatchedBy(func(rng model.DateRange) bool {
			return rng.From != nil && rng.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) &&
				rng.To != nil && rng.To.Equal(time.Date(2025, 2, 1, 23, 59, 59, 999999999, time.UTC))
		})).Return(summary, nil)

		ctx, resp := serve(new(MockLeadService), stats, "GET", "/api/v1/crm/statistics?from=2025-01-01&to=2025-02-01", nil)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var got model.Summary
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "33.33%", got.ConversionRate)
		stats.AssertExpectations(t)
	})

	t.Run("no range", func(t *testing.T) {
		stats := new(MockStatisticsService)
		stats.On("Summary", mock.Anything, model.DateRange{}).Return(&model.Summary{ConversionRate: "0%"}, nil)

		ctx, _ := serve(new(MockLeadService), stats, "GET", "/api/v1/crm/statistics", nil)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		stats.AssertExpectations(t)
	})

	t.Run("from after to", func(t *testing.T) {
		stats := new(MockStatisticsService)
		stats.On("Summary", mock.Anything, mock.Anything).Return(nil, &services.ValidationError{Field: "from", Message: "from must not be after to"})

		ctx, resp := serve(new(MockLeadService), stats, "GET", "/api/v1/crm/statistics?from=2025-03-01&to=2025-01-01", nil)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Equal(t, "from", resp.Error.Field)
	})
}

func TestLeadHandler_Options(t *testing.T) {
	ctx, resp := serve(new(MockLeadService), nil, "GET", "/api/v1/crm/options", nil)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var opts model.Options
	require.NoError(t, json.Unmarshal(resp.Data, &opts))
	assert.Len(t, opts.States, len(model.States))
	assert.Len(t, opts.Channels, len(model.Channels))
	assert.Empty(t, opts.Transitions[model.StateSold])
}

func TestRegisterLeadRoutes_GuardsAllButOptions(t *testing.T) {
	denied := 0
	guard := func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			denied++
			ctx.SetStatusCode(401)
		}
	}
	r := xhttp.CreateDefaultRouter()
	RegisterLeadRoutes(r.Group("/api/v1"), NewLeadHandler(new(MockLeadService), new(MockStatisticsService)), guard)

	routes := []struct{ method, path string }{
		{"GET", "/api/v1/crm"},
		{"POST", "/api/v1/crm"},
		{"GET", "/api/v1/crm/statistics"},
		{"PUT", "/api/v1/crm/bulk-state"},
		{"GET", "/api/v1/crm/handle/juan"},
		{"GET", "/api/v1/crm/state/Sold"},
		{"GET", "/api/v1/crm/" + leadID},
		{"PUT", "/api/v1/crm/" + leadID},
		{"DELETE", "/api/v1/crm/" + leadID},
		{"GET", "/api/v1/crm/" + leadID + "/history"},
		{"PUT", "/api/v1/crm/" + leadID + "/state/Sold"},
		{"PUT", "/api/v1/crm/" + leadID + "/human-flag"},
	}
	for _, rt := range routes {
		ctx := setupTestContext(rt.method, rt.path, nil)
		r.Handler(ctx)
		assert.Equal(t, 401, ctx.Response.StatusCode(), rt.method+" "+rt.path)
	}
	assert.Equal(t, len(routes), denied)

	ctx := setupTestContext("GET", "/api/v1/crm/options", nil)
	r.Handler(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
}
