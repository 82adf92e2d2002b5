package model

import "time"

// ActivityWindowDays is the length of the trailing recentActivity window.
const ActivityWindowDays = 30

// DateRange bounds statistics by creation time. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) Empty() bool {
	return r.From == nil && r.To == nil
}

type StateCount struct {
	State LeadState `json:"state"`
	Count int64     `json:"count"`
}

type ChannelCount struct {
	Channel Channel `json:"channel"`
	Count   int64   `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int64  `json:"count"`
}

// Summary is the aggregate view over the lead registry.
type Summary struct {
	Total           int64          `json:"total"`
	NeedsHumanCount int64          `json:"needsHumanCount"`
	ConversionRate  string         `json:"conversionRate"`
	ByState         []StateCount   `json:"byState"`
	ByChannel       []ChannelCount `json:"byChannel"`
	RecentActivity  []DayCount     `json:"recentActivity"`
}

type OptionItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options is the static lookup used to populate UI dropdowns.
type Options struct {
	States      []OptionItem              `json:"states"`
	Channels    []OptionItem              `json:"channels"`
	Transitions map[LeadState][]LeadState `json:"transitions"`
}

// BuildOptions returns the state and channel enumerations with their labels
// and the legal next states of every state.
func BuildOptions() Options {
	o := Options{
		States:      make([]OptionItem, 0, len(States)),
		Channels:    make([]OptionItem, 0, len(Channels)),
		Transitions: make(map[LeadState][]LeadState, len(States)),
	}
	for _, s := range States {
		o.States = append(o.States, OptionItem{Value: string(s), Label: s.Label()})
		o.Transitions[s] = AllowedFrom(s)
	}
	for _, c := range Channels {
		o.Channels = append(o.Channels, OptionItem{Value: string(c), Label: c.Label()})
	}
	return o
}
