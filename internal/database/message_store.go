package database

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const messageFields = "id, sender_id, receiver_id, text, image_url, created_at"

var _ domain.MessageRepository = (*SurrealMessageStore)(nil)

type messageRecord struct {
	ID         *surrealmodels.RecordID       `json:"id,omitempty"`
	SenderID   *surrealmodels.RecordID       `json:"sender_id"`
	ReceiverID *surrealmodels.RecordID       `json:"receiver_id"`
	Text       *string                       `json:"text,omitempty"`
	ImageURL   *string                       `json:"image_url,omitempty"`
	CreatedAt  *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

func (r *messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:         recordKey(r.ID),
		SenderID:   recordKey(r.SenderID),
		ReceiverID: recordKey(r.ReceiverID),
		Text:       r.Text,
		ImageURL:   r.ImageURL,
		CreatedAt:  recordTime(r.CreatedAt),
	}
}

// SurrealMessageStore keeps direct messages in SurrealDB.
type SurrealMessageStore struct {
	conn *Connection
}

// NewSurrealMessageStore creates a SurrealMessageStore.
func NewSurrealMessageStore(conn *Connection) *SurrealMessageStore {
	return &SurrealMessageStore{conn: conn}
}

// SaveMessage validates and stores msg. It returns once the write is committed.
func (s *SurrealMessageStore) SaveMessage(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	sets := []string{
		"sender_id = type::thing('user', $sender)",
		"receiver_id = type::thing('user', $receiver)",
		"created_at = time::now()",
	}
	params := map[string]any{
		"id":       uuid.NewString(),
		"sender":   msg.SenderID,
		"receiver": msg.ReceiverID,
	}
	// Unset optional fields must stay NONE, not NULL.
	if msg.Text != nil && *msg.Text != "" {
		sets = append(sets, "text = $text")
		params["text"] = *msg.Text
	}
	if msg.ImageURL != nil && *msg.ImageURL != "" {
		sets = append(sets, "image_url = $image_url")
		params["image_url"] = *msg.ImageURL
	}
	query := "CREATE type::thing('message', $id) SET " + strings.Join(sets, ", ") + " RETURN " + messageFields

	var rec *messageRecord
	err := s.conn.Write(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var qErr error
		rec, qErr = QueryOne[messageRecord](ctx, db, query, params)
		return qErr
	})
	if err != nil {
		return nil, WrapError(err, "save message")
	}
	if rec == nil {
		return nil, NewDBError(ErrQueryFailed, "create message returned no record")
	}
	saved := rec.toDomain()
	return &saved, nil
}

// FindMessagesBetween returns the conversation between two users, oldest first.
func (s *SurrealMessageStore) FindMessagesBetween(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	query := `SELECT ` + messageFields + ` FROM message
		WHERE (sender_id = type::thing('user', $a) AND receiver_id = type::thing('user', $b))
		   OR (sender_id = type::thing('user', $b) AND receiver_id = type::thing('user', $a))
		ORDER BY created_at ASC`

	var recs []messageRecord
	err := s.conn.Read(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var qErr error
		recs, qErr = Query[messageRecord](ctx, db, query, map[string]any{"a": userA, "b": userB})
		return qErr
	})
	if err != nil {
		return nil, WrapError(err, "find messages")
	}

	messages := make([]domain.Message, 0, len(recs))
	for i := range recs {
		messages = append(messages, recs[i].toDomain())
	}
	return messages, nil
}
