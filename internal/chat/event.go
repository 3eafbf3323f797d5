package chat

import (
	"encoding/json"
	"strings"

	"github.com/saravenpi/tablechat/internal/models"
)

// Event is one decoded frame of the live message feed.
type Event struct {
	Kind    Kind
	Message models.Message
}

// envelope mirrors {"data": {"action": "...", "data": {...message...}}}.
type envelope struct {
	Data *struct {
		Action string          `json:"action"`
		Data   *models.Message `json:"data"`
	} `json:"data"`
}

// ParseEvent decodes a live frame. Anything that is not a created/updated
// action carrying a message with a uid is reported as not ok.
func ParseEvent(raw []byte) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, false
	}
	if env.Data == nil || env.Data.Data == nil || env.Data.Data.UID == "" {
		return Event{}, false
	}

	var kind Kind
	switch strings.ToLower(env.Data.Action) {
	case "created":
		kind = Created
	case "updated":
		kind = Updated
	default:
		return Event{}, false
	}

	return Event{Kind: kind, Message: *env.Data.Data}, true
}
