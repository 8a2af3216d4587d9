package models

import "time"

// SenderCount is one row of the top-senders ranking.
type SenderCount struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

// Stats summarizes the whole message table.
type Stats struct {
	TotalMessages     int64         `json:"total_messages"`
	SendersCount      int64         `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *time.Time    `json:"first_message_ts"`
	LastMessageTS     *time.Time    `json:"last_message_ts"`
}
