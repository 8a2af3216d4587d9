package models

import "time"

// Message is a webhook-delivered message. MessageID is the idempotency key.
type Message struct {
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	Timestamp  time.Time `json:"ts"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"-"`
}

// MessageFilter narrows a message listing. Zero values mean "no filter".
type MessageFilter struct {
	From  string
	Since *time.Time
	Query string
}
