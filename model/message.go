package model

import "time"

// Message is one entry in a user's inbox. Inboxes are cached and persisted
// per user id as an append-only list.
type Message struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// CloneMessages returns a copy of a message list, safe to hand out after the
// message read lock is released.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	return append([]Message(nil), msgs...)
}
