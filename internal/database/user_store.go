package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	userTable  = "user"
	userFields = "id, full_name, email, profile_pic, created_at, updated_at"
)

// TokenIssuer signs and verifies session tokens for a user ID.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Parse(token string) (string, error)
}

var _ domain.UserRepository = (*SurrealUserStore)(nil)

// userRecord is the row shape of the user table. The password hash is never selected.
type userRecord struct {
	ID         *surrealmodels.RecordID       `json:"id,omitempty"`
	FullName   string                        `json:"full_name"`
	Email      string                        `json:"email"`
	ProfilePic string                        `json:"profile_pic"`
	CreatedAt  *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
	UpdatedAt  *surrealmodels.CustomDateTime `json:"updated_at,omitempty"`
}

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:         recordKey(r.ID),
		FullName:   r.FullName,
		Email:      r.Email,
		ProfilePic: r.ProfilePic,
		CreatedAt:  recordTime(r.CreatedAt),
		UpdatedAt:  recordTime(r.UpdatedAt),
	}
}

// recordKey strips the table from a record ID.
func recordKey(id *surrealmodels.RecordID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id.ID)
}

func recordTime(t *surrealmodels.CustomDateTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

// SurrealUserStore keeps users in SurrealDB. Passwords are hashed with
// argon2 inside the database and never leave it.
type SurrealUserStore struct {
	conn   *Connection
	tokens TokenIssuer
}

// NewSurrealUserStore creates a SurrealUserStore.
func NewSurrealUserStore(conn *Connection, tokens TokenIssuer) *SurrealUserStore {
	return &SurrealUserStore{conn: conn, tokens: tokens}
}

// SignUp creates the user and returns a signed token. user is filled with
// the stored values.
func (s *SurrealUserStore) SignUp(ctx context.Context, user *domain.User, password string) (string, error) {
	existing, err := s.FindUserByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if existing != nil {
		return "", domain.ErrUserAlreadyExists
	}

	query := `CREATE type::thing('user', $id) SET
		full_name = $full_name,
		email = $email,
		password = crypto::argon2::generate($password),
		profile_pic = $profile_pic,
		created_at = time::now(),
		updated_at = time::now()
	RETURN ` + userFields
	params := map[string]any{
		"id":          uuid.NewString(),
		"full_name":   user.FullName,
		"email":       user.Email,
		"password":    password,
		"profile_pic": user.ProfilePic,
	}

	var created *userRecord
	err = s.conn.Write(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var qErr error
		created, qErr = QueryOne[userRecord](ctx, db, query, params)
		return qErr
	})
	if isDuplicateError(err) {
		return "", domain.ErrUserAlreadyExists
	}
	if err != nil {
		return "", WrapError(err, "create user")
	}
	if created == nil {
		return "", NewDBError(ErrQueryFailed, "create user returned no record")
	}

	*user = *created.toDomain()
	slog.InfoContext(ctx, "User signed up", "event", "user_signup", "user_id", user.ID)
	return s.tokens.Issue(user.ID)
}

// SignIn checks the password against the stored hash and returns a signed token.
func (s *SurrealUserStore) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	query := "SELECT " + userFields + " FROM user WHERE email = $email AND crypto::argon2::compare(password, $password)"
	var rec *userRecord
	err := s.conn.Read(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var qErr error
		rec, qErr = QueryOne[userRecord](ctx, db, query, map[string]any{"email": email, "password": password})
		return qErr
	})
	if err != nil {
		return "", nil, WrapError(err, "sign in")
	}
	if rec == nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	user := rec.toDomain()
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate verifies token and loads its user.
func (s *SurrealUserStore) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	user, err := s.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, err
}

// FindByID loads a user by record key.
func (s *SurrealUserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := "SELECT " + userFields + " FROM type::thing('user', $id)"
	return s.findOne(ctx, query, map[string]any{"id": id})
}

// FindUserByEmail loads a user by email address.
func (s *SurrealUserStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := "SELECT " + userFields + " FROM user WHERE email = $email"
	return s.findOne(ctx, query, map[string]any{"email": email})
}

func (s *SurrealUserStore) findOne(ctx context.Context, query string, params map[string]any) (*domain.User, error) {
	var rec *userRecord
	err := s.conn.Read(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var qErr error
		rec, qErr = QueryOne[userRecord](ctx, db, query, params)
		return qErr
	})
	if err != nil {
		return nil, WrapError(err, "find user")
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec.toDomain(), nil
}

// ListUsersExcept returns every user but id, ordered by name.
func (s *SurrealUserStore) ListUsersExcept(ctx context.Context, id string) ([]domain.User, error) {
	query := "SELECT " + userFields + " FROM user WHERE id != type::thing('user', $id) ORDER BY full_name ASC"
	var recs []userRecord
	err := s.conn.Read(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var qErr error
		recs, qErr = Query[userRecord](ctx, db, query, map[string]any{"id": id})
		return qErr
	})
	if err != nil {
		return nil, WrapError(err, "list users")
	}

	users := make([]domain.User, 0, len(recs))
	for i := range recs {
		users = append(users, *recs[i].toDomain())
	}
	return users, nil
}

// UpdateProfile applies the non-nil fields of update.
func (s *SurrealUserStore) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	if update.Empty() {
		return nil, domain.ErrNoChanges
	}

	sets := []string{"updated_at = time::now()"}
	params := map[string]any{"id": id}
	if update.FullName != nil {
		sets = append(sets, "full_name = $full_name")
		params["full_name"] = *update.FullName
	}
	if update.ProfilePic != nil {
		sets = append(sets, "profile_pic = $profile_pic")
		params["profile_pic"] = *update.ProfilePic
	}
	query := "UPDATE type::thing('user', $id) SET " + strings.Join(sets, ", ") + " RETURN " + userFields

	var rec *userRecord
	err := s.conn.Write(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var qErr error
		rec, qErr = QueryOne[userRecord](ctx, db, query, params)
		return qErr
	})
	if err != nil {
		return nil, WrapError(err, "update profile")
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec.toDomain(), nil
}
