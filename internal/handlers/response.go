package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/internal/services"
	xhttp "github.com/nimasrn/lead-crm/pkg/http"
	"github.com/nimasrn/lead-crm/pkg/logger"
)

type errorDetail struct {
	Code         string          `json:"code"`
	Field        string          `json:"field,omitempty"`
	CurrentState model.LeadState `json:"currentState,omitempty"`
	TargetState  model.LeadState `json:"targetState,omitempty"`
	// a pointer so terminal states still report an empty list
	AllowedStates *[]model.LeadState `json:"allowedStates,omitempty"`
}

type envelope struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message,omitempty"`
	Data       any          `json:"data,omitempty"`
	Error      *errorDetail `json:"error,omitempty"`
	Total      *int64       `json:"total,omitempty"`
	Page       *int         `json:"page,omitempty"`
	TotalPages *int         `json:"totalPages,omitempty"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("[handlers] failed to encode response", "error", err)
		xhttp.WriteStatusJSON(ctx, xhttp.StatusInternalServerError)
		return
	}
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeOK(ctx *xhttp.RequestCtx, status int, message string, data any) {
	writeJSON(ctx, status, envelope{Success: true, Message: message, Data: data})
}

func writePage[T any](ctx *xhttp.RequestCtx, p model.Page[T]) {
	writeJSON(ctx, xhttp.StatusOK, envelope{
		Success:    true,
		Data:       p.Items,
		Total:      &p.Total,
		Page:       &p.Page,
		TotalPages: &p.TotalPages,
	})
}

// writeBadRequest reports a request the handler could not even decode.
func writeBadRequest(ctx *xhttp.RequestCtx, field, message string) {
	writeJSON(ctx, xhttp.StatusBadRequest, envelope{
		Message: message,
		Error:   &errorDetail{Code: services.CodeValidation, Field: field},
	})
}

func statusFor(code string) int {
	switch code {
	case services.CodeValidation:
		return xhttp.StatusBadRequest
	case services.CodeNotFound:
		return xhttp.StatusNotFound
	case services.CodeConflict:
		return xhttp.StatusConflict
	case services.CodeIllegalTransition:
		return xhttp.StatusUnprocessableEntity
	default:
		return xhttp.StatusInternalServerError
	}
}

// writeError maps a service error to its status and envelope.
func writeError(ctx *xhttp.RequestCtx, err error) {
	code := services.Code(err)
	status := statusFor(code)
	body := envelope{
		Message: err.Error(),
		Error:   &errorDetail{Code: code},
	}

	var (
		ve *services.ValidationError
		ce *services.ConflictError
		te *services.TransitionError
	)
	switch {
	case errors.As(err, &ve):
		body.Error.Field = ve.Field
	case errors.As(err, &ce):
		body.Data = ce.Existing
	case errors.As(err, &te):
		allowed := te.Allowed
		if allowed == nil {
			allowed = []model.LeadState{}
		}
		body.Error.CurrentState = te.From
		body.Error.TargetState = te.To
		body.Error.AllowedStates = &allowed
	}

	if status == xhttp.StatusInternalServerError {
		logger.Error("[handlers] request failed", "path", string(ctx.Path()), "request_id", xhttp.RequestID(ctx), "error", err)
		body.Message = "internal storage failure"
	}
	writeJSON(ctx, status, body)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(key)))
}

func pathParam(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func queryInt(ctx *xhttp.RequestCtx, key string, def int) (int, bool) {
	v := query(ctx, key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// parseBound accepts RFC3339 or YYYY-MM-DD. A date-only upper bound covers the
// whole day.
func parseBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func queryRange(ctx *xhttp.RequestCtx) (from, to *time.Time, field string, ok bool) {
	if v := query(ctx, "from"); v != "" {
		t, err := parseBound(v, false)
		if err != nil {
			return nil, nil, "from", false
		}
		from = &t
	}
	if v := query(ctx, "to"); v != "" {
		t, err := parseBound(v, true)
		if err != nil {
			return nil, nil, "to", false
		}
		to = &t
	}
	return from, to, "", true
}
