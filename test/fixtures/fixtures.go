package fixtures

import (
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
)

var (
	LeadJuanInstagram = model.LeadCreateRequest{
		Handle:    "juanp",
		Channel:   model.ChannelInstagram,
		FirstName: "Juan",
		LastName:  "Perez",
		Interests: "refurbished phone",
	}

	LeadMariaWhatsApp = model.LeadCreateRequest{
		Handle:    "maria.g",
		Channel:   model.ChannelWhatsApp,
		FirstName: "Maria",
		Phone:     "+5491112345678",
	}

	LeadAnaEmail = model.LeadCreateRequest{
		Handle:  "ana",
		Channel: model.ChannelEmail,
		Email:   "ana@example.com",
		Notes:   "asked for a quote",
	}
)

var (
	ValidHandles = []string{
		"juanp",
		"maria.g",
		"@shop_fan",
		"+5491112345678",
	}

	InvalidCreateRequests = []model.LeadCreateRequest{
		{Handle: "", Channel: model.ChannelInstagram},
		{Handle: "   ", Channel: model.ChannelInstagram},
		{Handle: "nochannel"},
		{Handle: "fax", Channel: "Fax"},
		{Handle: "bademail", Channel: model.ChannelEmail, Email: "not-an-email"},
	}
)

func NewLeadCreateRequest(handle string, channel model.Channel) model.LeadCreateRequest {
	return model.LeadCreateRequest{
		Handle:  handle,
		Channel: channel,
	}
}

func LeadFilterByState(state model.LeadState) model.LeadFilter {
	return model.LeadFilter{
		State: &state,
		Page:  1,
	}
}

func LeadFilterByChannel(channel model.Channel) model.LeadFilter {
	return model.LeadFilter{
		Channel: &channel,
		Page:    1,
	}
}

func LeadFilterWithPagination(page, limit int) model.LeadFilter {
	return model.LeadFilter{
		Page:  page,
		Limit: limit,
	}
}

func LeadFilterByContactRange(from, to time.Time) model.LeadFilter {
	return model.LeadFilter{
		From: &from,
		To:   &to,
		Page: 1,
	}
}
