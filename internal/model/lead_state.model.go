package model

// LeadState is the sales funnel stage a lead is in.
type LeadState string

const (
	StateNewLead         LeadState = "NewLead"
	StateInterested      LeadState = "Interested"
	StateUnderEvaluation LeadState = "UnderEvaluation"
	StateNegotiation     LeadState = "Negotiation"
	StateSold            LeadState = "Sold"
	StateCold            LeadState = "Cold"
	StateLost            LeadState = "Lost"
)

// States lists every lead state in funnel order.
var States = []LeadState{
	StateNewLead,
	StateInterested,
	StateUnderEvaluation,
	StateNegotiation,
	StateSold,
	StateCold,
	StateLost,
}

var stateLabels = map[LeadState]string{
	StateNewLead:         "New lead",
	StateInterested:      "Interested",
	StateUnderEvaluation: "Under evaluation",
	StateNegotiation:     "Negotiation",
	StateSold:            "Sold / after-sales",
	StateCold:            "Cold",
	StateLost:            "Lost",
}

// transitions is the complete set of legal edges. A state missing from the
// map, or mapped to an empty list, is terminal.
var transitions = map[LeadState][]LeadState{
	StateNewLead:         {StateInterested, StateUnderEvaluation, StateNegotiation, StateSold, StateCold, StateLost},
	StateInterested:      {StateUnderEvaluation, StateNegotiation, StateSold, StateCold, StateLost},
	StateUnderEvaluation: {StateInterested, StateNegotiation, StateSold, StateLost},
	StateNegotiation:     {StateSold, StateCold, StateLost},
	StateSold:            {},
	StateCold:            {StateInterested, StateUnderEvaluation, StateNegotiation, StateSold, StateLost},
	StateLost:            {},
}

func (s LeadState) Valid() bool {
	_, ok := stateLabels[s]
	return ok
}

func (s LeadState) Label() string {
	return stateLabels[s]
}

func (s LeadState) Terminal() bool {
	return len(transitions[s]) == 0
}

// AllowedFrom returns a fresh copy of the states reachable from s. The result
// is never nil.
func AllowedFrom(s LeadState) []LeadState {
	next := transitions[s]
	out := make([]LeadState, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an edge of the transition table.
func CanTransition(from, to LeadState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionRejection describes why ValidateTransition refused an edge.
type TransitionRejection struct {
	From    LeadState
	To      LeadState
	Allowed []LeadState
	// InvalidTarget is set when To is not a known state at all.
	InvalidTarget bool
}

// ValidateTransition checks a move from current to target against the
// transition table and returns the new state, or the reason it is illegal.
func ValidateTransition(current, target LeadState) (LeadState, *TransitionRejection) {
	if !target.Valid() {
		return current, &TransitionRejection{From: current, To: target, Allowed: AllowedFrom(current), InvalidTarget: true}
	}
	if !CanTransition(current, target) {
		return current, &TransitionRejection{From: current, To: target, Allowed: AllowedFrom(current)}
	}
	return target, nil
}

// Channel is the medium a lead was acquired through.
type Channel string

const (
	ChannelInstagram Channel = "Instagram"
	ChannelFacebook  Channel = "Facebook"
	ChannelWhatsApp  Channel = "WhatsApp"
	ChannelPhone     Channel = "Phone"
	ChannelEmail     Channel = "Email"
	ChannelInPerson  Channel = "InPerson"
	ChannelWeb       Channel = "Web"
	ChannelOther     Channel = "Other"
)

var Channels = []Channel{
	ChannelInstagram,
	ChannelFacebook,
	ChannelWhatsApp,
	ChannelPhone,
	ChannelEmail,
	ChannelInPerson,
	ChannelWeb,
	ChannelOther,
}

var channelLabels = map[Channel]string{
	ChannelInstagram: "Instagram",
	ChannelFacebook:  "Facebook",
	ChannelWhatsApp:  "WhatsApp",
	ChannelPhone:     "Phone",
	ChannelEmail:     "Email",
	ChannelInPerson:  "In person",
	ChannelWeb:       "Web",
	ChannelOther:     "Other",
}

func (c Channel) Valid() bool {
	_, ok := channelLabels[c]
	return ok
}

func (c Channel) Label() string {
	return channelLabels[c]
}
