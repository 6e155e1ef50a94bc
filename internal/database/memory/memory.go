// Package memory provides in-process repositories for development and tests.
// Data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nfrund/chatline/internal/database"
	"github.com/nfrund/chatline/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var (
	_ domain.UserRepository    = (*UserStore)(nil)
	_ domain.MessageRepository = (*MessageStore)(nil)
)

type userRow struct {
	user domain.User
	hash []byte
}

// UserStore keeps users in a map with bcrypt password hashes.
type UserStore struct {
	tokens database.TokenIssuer

	mu      sync.RWMutex
	byID    map[string]*userRow
	byEmail map[string]string
	cost    int
}

// NewUserStore creates an empty UserStore.
func NewUserStore(tokens database.TokenIssuer) *UserStore {
	return &UserStore{
		tokens:  tokens,
		byID:    make(map[string]*userRow),
		byEmail: make(map[string]string),
		cost:    bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost. Tests lower it to bcrypt.MinCost.
func (s *UserStore) SetHashCost(cost int) {
	s.mu.Lock()
	s.cost = cost
	s.mu.Unlock()
}

func (s *UserStore) SignUp(ctx context.Context, user *domain.User, password string) (string, error) {
	s.mu.RLock()
	cost := s.cost
	s.mu.RUnlock()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	if _, exists := s.byEmail[user.Email]; exists {
		s.mu.Unlock()
		return "", domain.ErrUserAlreadyExists
	}
	now := time.Now().UTC()
	row := &userRow{
		user: domain.User{
			ID:         uuid.NewString(),
			FullName:   user.FullName,
			Email:      user.Email,
			ProfilePic: user.ProfilePic,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		hash: hash,
	}
	s.byID[row.user.ID] = row
	s.byEmail[row.user.Email] = row.user.ID
	*user = row.user
	s.mu.Unlock()

	return s.tokens.Issue(user.ID)
}

func (s *UserStore) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	s.mu.RLock()
	var row *userRow
	if id, ok := s.byEmail[email]; ok {
		row = s.byID[id]
	}
	s.mu.RUnlock()

	if row == nil || bcrypt.CompareHashAndPassword(row.hash, []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	user := row.user
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *UserStore) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	user := row.user
	return &user, nil
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *UserStore) ListUsersExcept(ctx context.Context, id string) ([]domain.User, error) {
	s.mu.RLock()
	users := make([]domain.User, 0, len(s.byID))
	for key, row := range s.byID {
		if key != id {
			users = append(users, row.user)
		}
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName != users[j].FullName {
			return users[i].FullName < users[j].FullName
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	if update.Empty() {
		return nil, domain.ErrNoChanges
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.FullName != nil {
		row.user.FullName = *update.FullName
	}
	if update.ProfilePic != nil {
		row.user.ProfilePic = *update.ProfilePic
	}
	row.user.UpdatedAt = time.Now().UTC()
	user := row.user
	return &user, nil
}

// MessageStore keeps messages in insertion order.
type MessageStore struct {
	mu       sync.RWMutex
	messages []domain.Message
}

// NewMessageStore creates an empty MessageStore.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) SaveMessage(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	saved := domain.Message{
		ID:         uuid.NewString(),
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Text:       nonEmpty(msg.Text),
		ImageURL:   nonEmpty(msg.ImageURL),
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, saved)
	s.mu.Unlock()
	return &saved, nil
}

func (s *MessageStore) FindMessagesBetween(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, 0)
	for _, m := range s.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, m)
		}
	}
	return out, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
