package chat

import "github.com/saravenpi/tablechat/internal/models"

// Kind says how an incoming message is folded into a conversation.
type Kind int

const (
	Created Kind = iota
	Updated
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// Merge folds incoming into current and reports whether the list changed.
// Created appends unless the UID is already present. Updated replaces the
// entry with the same UID in place and drops unknown UIDs. current is never
// modified; a changed list is always a fresh slice.
func Merge(current []models.Message, incoming models.Message, kind Kind) ([]models.Message, bool) {
	idx := indexOf(current, incoming.UID)

	switch kind {
	case Created:
		if idx >= 0 {
			return current, false
		}
		next := make([]models.Message, len(current), len(current)+1)
		copy(next, current)
		return append(next, incoming), true

	case Updated:
		if idx < 0 {
			return current, false
		}
		next := make([]models.Message, len(current))
		copy(next, current)
		next[idx] = incoming
		return next, true
	}

	return current, false
}

func indexOf(messages []models.Message, uid string) int {
	for i := range messages {
		if messages[i].UID == uid {
			return i
		}
	}
	return -1
}
