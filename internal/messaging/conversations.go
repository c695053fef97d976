package messaging

import (
	"sort"

	"github.com/garnizeh/terapia/pkg/models"
)

// DeriveConversations folds userID's messages into one summary per
// counterpart, newest conversation first. Messages the user is not part of
// are ignored.
func DeriveConversations(messages []models.Message, userID string) []models.Conversation {
	byCounterpart := map[string]*models.Conversation{}
	for _, m := range messages {
		var counterpart string
		switch userID {
		case m.SenderID:
			counterpart = m.ReceiverID
		case m.ReceiverID:
			counterpart = m.SenderID
		default:
			continue
		}

		c, ok := byCounterpart[counterpart]
		if !ok {
			c = &models.Conversation{CounterpartID: counterpart}
			byCounterpart[counterpart] = c
		}
		if !ok || !m.CreatedAt.Before(c.LastMessageAt) {
			c.LastMessage = m.Content
			c.LastMessageAt = m.CreatedAt
		}
		if m.ReceiverID == userID && !m.Lido {
			c.UnreadCount++
		}
	}

	out := make([]models.Conversation, 0, len(byCounterpart))
	for _, c := range byCounterpart {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].CounterpartID < out[j].CounterpartID
		}
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}
