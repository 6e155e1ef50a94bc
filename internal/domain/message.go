package domain

import (
	"context"
	"time"
)

// Message is a persisted direct message between two users.
// At least one of Text and ImageURL is set.
type Message struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       *string   `json:"text,omitempty"`
	ImageURL   *string   `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewMessage carries the fields of a message about to be saved.
type NewMessage struct {
	SenderID   string  `validate:"required"`
	ReceiverID string  `validate:"required"`
	Text       *string `validate:"omitempty,max=4000"`
	ImageURL   *string `validate:"omitempty,safeurl"`
}

// Validate checks the struct tags and that the message carries content.
func (m *NewMessage) Validate() error {
	if (m.Text == nil || *m.Text == "") && (m.ImageURL == nil || *m.ImageURL == "") {
		return ErrEmptyMessage
	}
	return validatorInstance.Struct(m)
}

// MessageRepository persists messages. SaveMessage must durably commit
// before returning.
type MessageRepository interface {
	SaveMessage(ctx context.Context, msg NewMessage) (*Message, error)
	// FindMessagesBetween returns the conversation in both directions,
	// oldest first.
	FindMessagesBetween(ctx context.Context, userA, userB string) ([]Message, error)
}
