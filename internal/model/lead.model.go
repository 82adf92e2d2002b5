package model

import (
	"net/mail"
	"strings"
	"time"
)

const InitialHistoryNote = "initial registration"

// Lead is a prospective or existing customer tracked through the sales funnel.
type Lead struct {
	ID                  string        `json:"id"`
	Handle              string        `json:"handle"`
	Channel             Channel       `json:"channel"`
	ExternalID          string        `json:"externalId,omitempty"`
	FirstName           string        `json:"firstName,omitempty"`
	LastName            string        `json:"lastName,omitempty"`
	Phone               string        `json:"phone,omitempty"`
	Email               string        `json:"email,omitempty"`
	State               LeadState     `json:"state"`
	StateHistory        []StateChange `json:"stateHistory,omitempty"`
	HistoryCount        int64         `json:"historyCount"`
	Interests           string        `json:"interests,omitempty"`
	PurchasedDeviceID   string        `json:"purchasedDeviceId,omitempty"`
	PurchasedDevice     string        `json:"purchasedDevice,omitempty"`
	NeedsHumanAttention bool          `json:"needsHumanAttention"`
	Notes               string        `json:"notes,omitempty"`
	LastContactedAt     time.Time     `json:"lastContactedAt"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// StateChange is one append-only entry of a lead's state history.
type StateChange struct {
	State     LeadState `json:"state"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultTransitionNote is recorded when a transition carries no note.
func DefaultTransitionNote(from, to LeadState) string {
	return "state changed: " + string(from) + " → " + string(to)
}

// FieldError reports a single invalid input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// LeadCreateRequest is the input for registering a lead.
type LeadCreateRequest struct {
	Handle     string
	Channel    Channel
	ExternalID string
	FirstName  string
	LastName   string
	Phone      string
	Email      string
	Interests  string
	Notes      string
}

// Normalize trims every free-text field in place.
func (p *LeadCreateRequest) Normalize() {
	p.Handle = strings.TrimSpace(p.Handle)
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.TrimSpace(p.Email)
	p.Interests = strings.TrimSpace(p.Interests)
	p.Notes = strings.TrimSpace(p.Notes)
}

func (p LeadCreateRequest) Validate() *FieldError {
	if strings.TrimSpace(p.Handle) == "" {
		return &FieldError{Field: "handle", Message: "handle is required"}
	}
	if p.Channel == "" {
		return &FieldError{Field: "channel", Message: "channel is required"}
	}
	if !p.Channel.Valid() {
		return &FieldError{Field: "channel", Message: "unknown channel " + string(p.Channel)}
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return &FieldError{Field: "email", Message: "malformed email"}
		}
	}
	return nil
}

// LeadUpdate carries the fields of a partial edit; nil means "leave as is".
// State, history and creation time cannot be edited through it.
type LeadUpdate struct {
	Handle              *string
	Channel             *Channel
	ExternalID          *string
	FirstName           *string
	LastName            *string
	Phone               *string
	Email               *string
	Interests           *string
	PurchasedDeviceID   *string
	PurchasedDevice     *string
	NeedsHumanAttention *bool
	Notes               *string
	LastContactedAt     *time.Time
}

func (u *LeadUpdate) Normalize() {
	for _, f := range []*string{u.Handle, u.ExternalID, u.FirstName, u.LastName, u.Phone, u.Email, u.Interests, u.PurchasedDeviceID, u.PurchasedDevice, u.Notes} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (u LeadUpdate) Validate() *FieldError {
	if u.Handle != nil && *u.Handle == "" {
		return &FieldError{Field: "handle", Message: "handle cannot be empty"}
	}
	if u.Channel != nil && !u.Channel.Valid() {
		return &FieldError{Field: "channel", Message: "unknown channel " + string(*u.Channel)}
	}
	if u.Email != nil && *u.Email != "" {
		if _, err := mail.ParseAddress(*u.Email); err != nil {
			return &FieldError{Field: "email", Message: "malformed email"}
		}
	}
	return nil
}

// Apply copies every supplied field onto l.
func (u LeadUpdate) Apply(l *Lead) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&l.Handle, u.Handle)
	if u.Channel != nil {
		l.Channel = *u.Channel
	}
	setString(&l.ExternalID, u.ExternalID)
	setString(&l.FirstName, u.FirstName)
	setString(&l.LastName, u.LastName)
	setString(&l.Phone, u.Phone)
	setString(&l.Email, u.Email)
	setString(&l.Interests, u.Interests)
	setString(&l.PurchasedDeviceID, u.PurchasedDeviceID)
	setString(&l.PurchasedDevice, u.PurchasedDevice)
	setString(&l.Notes, u.Notes)
	if u.NeedsHumanAttention != nil {
		l.NeedsHumanAttention = *u.NeedsHumanAttention
	}
	if u.LastContactedAt != nil {
		l.LastContactedAt = *u.LastContactedAt
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// sortColumns maps every stored field's API name to its column.
var sortColumns = map[string]string{
	"id":                  "id",
	"handle":              "handle",
	"channel":             "channel",
	"externalId":          "external_id",
	"firstName":           "first_name",
	"lastName":            "last_name",
	"phone":               "phone",
	"email":               "email",
	"state":               "state",
	"interests":           "interests",
	"purchasedDeviceId":   "purchased_device_id",
	"purchasedDevice":     "purchased_device",
	"needsHumanAttention": "needs_human_attention",
	"notes":               "notes",
	"lastContactedAt":     "last_contacted_at",
	"createdAt":           "created_at",
	"updatedAt":           "updated_at",
}

const DefaultSortBy = "lastContactedAt"

// SortColumn resolves an API sort field to its column name.
func SortColumn(field string) (string, bool) {
	c, ok := sortColumns[field]
	return c, ok
}

// LeadFilter controls List queries.
type LeadFilter struct {
	State      *LeadState
	Channel    *Channel
	NeedsHuman *bool
	Handle     string // case-insensitive substring
	From       *time.Time
	To         *time.Time // inclusive
	SortBy     string
	SortOrder  SortOrder
	Page       int
	Limit      int
}

// Page is a single page of results.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPage computes the total page count as ceil(total/limit).
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// BulkTransitionRequest applies one transition to many leads.
type BulkTransitionRequest struct {
	IDs    []string
	Target LeadState
	Note   string
}

type BulkFailure struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
	// AllowedStates is set for illegal transitions.
	AllowedStates []LeadState `json:"allowedStates,omitempty"`
}

type BulkTransitionResult struct {
	Requested      int           `json:"requested"`
	SucceededCount int           `json:"succeededCount"`
	FailedCount    int           `json:"failedCount"`
	Succeeded      []string      `json:"succeeded"`
	Failed         []BulkFailure `json:"failed"`
}
