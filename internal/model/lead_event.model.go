package model

import "time"

// LeadEventType names a lifecycle event published after a successful write.
type LeadEventType string

const (
	EventLeadCreated          LeadEventType = "lead.created"
	EventLeadUpdated          LeadEventType = "lead.updated"
	EventLeadStateChanged     LeadEventType = "lead.state_changed"
	EventLeadHumanFlagChanged LeadEventType = "lead.human_flag_changed"
	EventLeadDeleted          LeadEventType = "lead.deleted"
)

type LeadEvent struct {
	Type       LeadEventType `json:"type"`
	LeadID     string        `json:"leadId"`
	OccurredAt time.Time     `json:"occurredAt"`
	// FromState and ToState are set for state changes only.
	FromState LeadState `json:"fromState,omitempty"`
	ToState   LeadState `json:"toState,omitempty"`
	Lead      *Lead     `json:"lead,omitempty"`
}
