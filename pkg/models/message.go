package models

import "time"

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Lido       bool      `json:"lido"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation is the per-counterpart summary derived from a user's messages.
type Conversation struct {
	CounterpartID     string    `json:"counterpart_id"`
	CounterpartName   string    `json:"counterpart_name,omitempty"`
	CounterpartAvatar string    `json:"counterpart_avatar,omitempty"`
	LastMessage       string    `json:"last_message"`
	LastMessageAt     time.Time `json:"last_message_at"`
	UnreadCount       int       `json:"unread_count"`
}
