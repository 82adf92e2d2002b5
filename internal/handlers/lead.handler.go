package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	xhttp "github.com/nimasrn/lead-crm/pkg/http"
)

type LeadService interface {
	Create(ctx context.Context, p model.LeadCreateRequest) (*model.Lead, error)
	Edit(ctx context.Context, id string, u model.LeadUpdate) (*model.Lead, error)
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	FindByHandle(ctx context.Context, substr string) ([]*model.Lead, error)
	FindByState(ctx context.Context, state model.LeadState) ([]*model.Lead, error)
	List(ctx context.Context, f model.LeadFilter) (model.Page[*model.Lead], error)
	Delete(ctx context.Context, id string) error
	ToggleHumanFlag(ctx context.Context, id string, value *bool) (*model.Lead, error)
	Transition(ctx context.Context, id string, target model.LeadState, note string) (*model.Lead, error)
	BulkTransition(ctx context.Context, req model.BulkTransitionRequest) (*model.BulkTransitionResult, error)
	History(ctx context.Context, id string, page, limit int) (model.Page[model.StateChange], error)
	Options() model.Options
}

type StatisticsService interface {
	Summary(ctx context.Context, rng model.DateRange) (*model.Summary, error)
}

type LeadHandler struct {
	svc   LeadService
	stats StatisticsService
}

// RegisterLeadRoutes mounts the CRM routes on g. Everything except the
// options lookup goes through guard.
func RegisterLeadRoutes(g *xhttp.Group, h *LeadHandler, guard xhttp.MiddlewareFunc) {
	if guard == nil {
		guard = func(next xhttp.RequestHandler) xhttp.RequestHandler { return next }
	}

	g.GET("/crm/options", h.Options)

	g.GET("/crm/statistics", guard(h.Statistics))
	g.PUT("/crm/bulk-state", guard(h.BulkTransition))
	g.GET("/crm/handle/{handle}", guard(h.FindByHandle))
	g.GET("/crm/state/{state}", guard(h.FindByState))

	g.GET("/crm", guard(h.List))
	g.POST("/crm", guard(h.Create))
	g.GET("/crm/{id}", guard(h.Get))
	g.PUT("/crm/{id}", guard(h.Edit))
	g.DELETE("/crm/{id}", guard(h.Delete))
	g.GET("/crm/{id}/history", guard(h.History))
	g.PUT("/crm/{id}/state/{targetState}", guard(h.Transition))
	g.PUT("/crm/{id}/human-flag", guard(h.ToggleHumanFlag))
}

func NewLeadHandler(svc LeadService, stats StatisticsService) *LeadHandler {
	return &LeadHandler{
		svc:   svc,
		stats: stats,
	}
}

type createLeadRequest struct {
	Handle     string        `json:"handle"`
	Channel    model.Channel `json:"channel"`
	ExternalID string        `json:"externalId"`
	FirstName  string        `json:"firstName"`
	LastName   string        `json:"lastName"`
	Phone      string        `json:"phone"`
	Email      string        `json:"email"`
	Interests  string        `json:"interests"`
	Notes      string        `json:"notes"`
}

// editLeadRequest has no state, history or creation fields, so a client
// sending them has them dropped on decode.
type editLeadRequest struct {
	Handle              *string        `json:"handle"`
	Channel             *model.Channel `json:"channel"`
	ExternalID          *string        `json:"externalId"`
	FirstName           *string        `json:"firstName"`
	LastName            *string        `json:"lastName"`
	Phone               *string        `json:"phone"`
	Email               *string        `json:"email"`
	Interests           *string        `json:"interests"`
	PurchasedDeviceID   *string        `json:"purchasedDeviceId"`
	PurchasedDevice     *string        `json:"purchasedDevice"`
	NeedsHumanAttention *bool          `json:"needsHumanAttention"`
	Notes               *string        `json:"notes"`
	LastContactedAt     *time.Time     `json:"lastContactedAt"`
}

type transitionRequest struct {
	Note string `json:"note"`
}

type bulkTransitionRequest struct {
	IDs         []string        `json:"ids"`
	TargetState model.LeadState `json:"targetState"`
	Note        string          `json:"note"`
}

type humanFlagRequest struct {
	Value *bool `json:"value"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *LeadHandler) List(ctx *xhttp.RequestCtx) {
	var f model.LeadFilter

	if v := query(ctx, "state"); v != "" {
		s := model.LeadState(v)
		f.State = &s
	}
	if v := query(ctx, "channel"); v != "" {
		c := model.Channel(v)
		f.Channel = &c
	}
	if v := query(ctx, "needsHuman"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(ctx, "needsHuman", "needsHuman must be true or false")
			return
		}
		f.NeedsHuman = &b
	}
	f.Handle = query(ctx, "handle")

	from, to, field, ok := queryRange(ctx)
	if !ok {
		writeBadRequest(ctx, field, field+" must be RFC3339 or YYYY-MM-DD")
		return
	}
	f.From, f.To = from, to

	if f.Page, ok = queryInt(ctx, "page", 1); !ok {
		writeBadRequest(ctx, "page", "page must be a number")
		return
	}
	if f.Limit, ok = queryInt(ctx, "limit", 0); !ok {
		writeBadRequest(ctx, "limit", "limit must be a number")
		return
	}
	f.SortBy = query(ctx, "sortBy")
	f.SortOrder = model.SortOrder(strings.ToLower(query(ctx, "sortOrder")))

	page, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writePage(ctx, page)
}

func (h *LeadHandler) Get(ctx *xhttp.RequestCtx) {
	lead, err := h.svc.GetByID(ctx, pathParam(ctx, "id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "", lead)
}

func (h *LeadHandler) FindByHandle(ctx *xhttp.RequestCtx) {
	leads, err := h.svc.FindByHandle(ctx, pathParam(ctx, "handle"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "", leads)
}

func (h *LeadHandler) FindByState(ctx *xhttp.RequestCtx) {
	leads, err := h.svc.FindByState(ctx, model.LeadState(pathParam(ctx, "state")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "", leads)
}

func (h *LeadHandler) Create(ctx *xhttp.RequestCtx) {
	var req createLeadRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "", "invalid JSON: "+err.Error())
		return
	}
	lead, err := h.svc.Create(ctx, model.LeadCreateRequest{
		Handle:     req.Handle,
		Channel:    req.Channel,
		ExternalID: req.ExternalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Email:      req.Email,
		Interests:  req.Interests,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusCreated, "lead created", lead)
}

func (h *LeadHandler) Edit(ctx *xhttp.RequestCtx) {
	var req editLeadRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "", "invalid JSON: "+err.Error())
		return
	}
	lead, err := h.svc.Edit(ctx, pathParam(ctx, "id"), model.LeadUpdate{
		Handle:              req.Handle,
		Channel:             req.Channel,
		ExternalID:          req.ExternalID,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Phone:               req.Phone,
		Email:               req.Email,
		Interests:           req.Interests,
		PurchasedDeviceID:   req.PurchasedDeviceID,
		PurchasedDevice:     req.PurchasedDevice,
		NeedsHumanAttention: req.NeedsHumanAttention,
		Notes:               req.Notes,
		LastContactedAt:     req.LastContactedAt,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "lead updated", lead)
}

func (h *LeadHandler) Delete(ctx *xhttp.RequestCtx) {
	if err := h.svc.Delete(ctx, pathParam(ctx, "id")); err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "lead deleted", nil)
}

func (h *LeadHandler) Transition(ctx *xhttp.RequestCtx) {
	var req transitionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "", "invalid JSON: "+err.Error())
		return
	}
	target := model.LeadState(pathParam(ctx, "targetState"))
	lead, err := h.svc.Transition(ctx, pathParam(ctx, "id"), target, req.Note)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "state changed to "+string(lead.State), lead)
}

func (h *LeadHandler) BulkTransition(ctx *xhttp.RequestCtx) {
	var req bulkTransitionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "", "invalid JSON: "+err.Error())
		return
	}
	result, err := h.svc.BulkTransition(ctx, model.BulkTransitionRequest{
		IDs:    req.IDs,
		Target: req.TargetState,
		Note:   req.Note,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	msg := strconv.Itoa(result.SucceededCount) + " succeeded, " + strconv.Itoa(result.FailedCount) + " failed"
	writeOK(ctx, xhttp.StatusOK, msg, result)
}

func (h *LeadHandler) ToggleHumanFlag(ctx *xhttp.RequestCtx) {
	var req humanFlagRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "", "invalid JSON: "+err.Error())
		return
	}
	lead, err := h.svc.ToggleHumanFlag(ctx, pathParam(ctx, "id"), req.Value)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "", lead)
}

func (h *LeadHandler) History(ctx *xhttp.RequestCtx) {
	page, ok := queryInt(ctx, "page", 1)
	if !ok {
		writeBadRequest(ctx, "page", "page must be a number")
		return
	}
	limit, ok := queryInt(ctx, "limit", 0)
	if !ok {
		writeBadRequest(ctx, "limit", "limit must be a number")
		return
	}
	p, err := h.svc.History(ctx, pathParam(ctx, "id"), page, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writePage(ctx, p)
}

func (h *LeadHandler) Statistics(ctx *xhttp.RequestCtx) {
	from, to, field, ok := queryRange(ctx)
	if !ok {
		writeBadRequest(ctx, field, field+" must be RFC3339 or YYYY-MM-DD")
		return
	}
	summary, err := h.stats.Summary(ctx, model.DateRange{From: from, To: to})
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeOK(ctx, xhttp.StatusOK, "", summary)
}

func (h *LeadHandler) Options(ctx *xhttp.RequestCtx) {
	writeOK(ctx, xhttp.StatusOK, "", h.svc.Options())
}
