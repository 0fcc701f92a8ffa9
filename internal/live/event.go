// Package live serves the prospect table over a WebSocket: the client sends
// table commands, the server answers with rendered state and toasts.
package live

import (
	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/view"
)

// Command types sent by the client.
const (
	CmdSearch         = "search"
	CmdFilterStatus   = "filter_status"
	CmdFilterIndustry = "filter_industry"
	CmdSort           = "sort"
	CmdChangeStatus   = "change_status"
	CmdSendMessage    = "send_message"
)

// Command is one client request. Which fields are read depends on Type:
// Value for search and the filters, Key for sort, ID and Status for
// change_status, ID and Message for send_message.
type Command struct {
	Type    string       `json:"type"`
	Value   string       `json:"value,omitempty"`
	Key     string       `json:"key,omitempty"`
	ID      string       `json:"id,omitempty"`
	Status  model.Status `json:"status,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Event types sent by the server.
const (
	EventState = "state"
	EventToast = "toast"
)

// Event is one server message.
type Event struct {
	Type  string `json:"type"`
	State *State `json:"state,omitempty"`
	Toast *Toast `json:"toast,omitempty"`
}

// State is the rendered table plus the dashboard of the full list.
type State struct {
	Loading   bool              `json:"loading"`
	Table     view.Table        `json:"table"`
	Rows      []*model.Prospect `json:"rows"`
	Total     int               `json:"total"`
	Dashboard model.Dashboard   `json:"dashboard"`
}

// Toast variants.
const (
	ToastDefault     = "default"
	ToastDestructive = "destructive"
)

// Toast is a transient notification.
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant"`
}

func errorToast(title, description string) *Toast {
	return &Toast{Title: title, Description: description, Variant: ToastDestructive}
}
