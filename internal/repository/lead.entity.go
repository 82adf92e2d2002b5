package repository

import (
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	"golang.org/x/text/cases"
)

type LeadEntity struct {
	ID                  string    `gorm:"primaryKey;column:id;type:uuid"`
	Handle              string    `gorm:"column:handle;not null;uniqueIndex:ux_leads_handle_channel,priority:1"`
	HandleFolded        string    `gorm:"column:handle_folded;not null;default:''"`
	Channel             string    `gorm:"column:channel;not null;uniqueIndex:ux_leads_handle_channel,priority:2;index:ix_leads_channel"`
	ExternalID          string    `gorm:"column:external_id"`
	FirstName           string    `gorm:"column:first_name"`
	LastName            string    `gorm:"column:last_name"`
	Phone               string    `gorm:"column:phone"`
	Email               string    `gorm:"column:email"`
	State               string    `gorm:"column:state;not null;index:ix_leads_state"`
	Interests           string    `gorm:"column:interests"`
	PurchasedDeviceID   string    `gorm:"column:purchased_device_id"`
	PurchasedDevice     string    `gorm:"column:purchased_device"`
	NeedsHumanAttention bool      `gorm:"column:needs_human_attention;not null"`
	Notes               string    `gorm:"column:notes"`
	LastContactedAt     time.Time `gorm:"column:last_contacted_at;not null;index:ix_leads_last_contacted_at"`
	CreatedAt           time.Time `gorm:"column:created_at;not null;index:ix_leads_created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at;not null"`
}

func (LeadEntity) TableName() string {
	return "leads"
}

// foldHandle is the form handle searches compare against. sqlite's LOWER
// only folds ASCII, so it is computed on write.
func foldHandle(handle string) string {
	return cases.Fold().String(handle)
}

type LeadStateHistoryEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	LeadID    string    `gorm:"column:lead_id;type:uuid;not null;index:ix_lead_state_history_lead_id"`
	State     string    `gorm:"column:state;not null"`
	Note      string    `gorm:"column:note"`
	ChangedAt time.Time `gorm:"column:changed_at;not null"`
}

func (LeadStateHistoryEntity) TableName() string {
	return "lead_state_history"
}

func toLeadEntity(l *model.Lead) *LeadEntity {
	if l == nil {
		return nil
	}
	return &LeadEntity{
		ID:                  l.ID,
		Handle:              l.Handle,
		HandleFolded:        foldHandle(l.Handle),
		Channel:             string(l.Channel),
		ExternalID:          l.ExternalID,
		FirstName:           l.FirstName,
		LastName:            l.LastName,
		Phone:               l.Phone,
		Email:               l.Email,
		State:               string(l.State),
		Interests:           l.Interests,
		PurchasedDeviceID:   l.PurchasedDeviceID,
		PurchasedDevice:     l.PurchasedDevice,
		NeedsHumanAttention: l.NeedsHumanAttention,
		Notes:               l.Notes,
		LastContactedAt:     l.LastContactedAt,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

func toLeadModel(e *LeadEntity) *model.Lead {
	if e == nil {
		return nil
	}
	return &model.Lead{
		ID:                  e.ID,
		Handle:              e.Handle,
		Channel:             model.Channel(e.Channel),
		ExternalID:          e.ExternalID,
		FirstName:           e.FirstName,
		LastName:            e.LastName,
		Phone:               e.Phone,
		Email:               e.Email,
		State:               model.LeadState(e.State),
		Interests:           e.Interests,
		PurchasedDeviceID:   e.PurchasedDeviceID,
		PurchasedDevice:     e.PurchasedDevice,
		NeedsHumanAttention: e.NeedsHumanAttention,
		Notes:               e.Notes,
		LastContactedAt:     e.LastContactedAt.UTC(),
		CreatedAt:           e.CreatedAt.UTC(),
		UpdatedAt:           e.UpdatedAt.UTC(),
	}
}

func toLeadModels(entities []*LeadEntity) []*model.Lead {
	models := make([]*model.Lead, len(entities))
	for i, e := range entities {
		models[i] = toLeadModel(e)
	}
	return models
}

func toHistoryEntity(leadID string, c model.StateChange) *LeadStateHistoryEntity {
	return &LeadStateHistoryEntity{
		LeadID:    leadID,
		State:     string(c.State),
		Note:      c.Note,
		ChangedAt: c.Timestamp,
	}
}

func toStateChanges(entities []*LeadStateHistoryEntity) []model.StateChange {
	out := make([]model.StateChange, len(entities))
	for i, e := range entities {
		out[i] = model.StateChange{
			State:     model.LeadState(e.State),
			Note:      e.Note,
			Timestamp: e.ChangedAt.UTC(),
		}
	}
	return out
}
