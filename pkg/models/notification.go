package models

import (
	"encoding/json"
	"time"
)

const (
	NotificationSessionReminder         = "session_reminder"
	NotificationPaymentDue              = "payment_due"
	NotificationWelcomeMessage          = "welcome_message"
	NotificationFeedbackRequest         = "feedback_request"
	NotificationAppointmentConfirmation = "appointment_confirmation"
	NotificationAppointmentCancellation = "appointment_cancellation"
	NotificationBirthdayGreeting        = "birthday_greeting"
)

type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Lida      bool            `json:"lida"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
