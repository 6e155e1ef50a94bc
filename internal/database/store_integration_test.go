package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/nfrund/chatline/internal/auth"
	"github.com/nfrund/chatline/internal/database"
	"github.com/nfrund/chatline/internal/domain"
	"github.com/nfrund/chatline/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type surrealStores struct {
	users    *database.SurrealUserStore
	messages *database.SurrealMessageStore
}

func setupSurreal(t *testing.T) surrealStores {
	t.Helper()
	cfg := testutils.SurrealConfigForTests(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := database.NewConnection(cfg)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	require.NoError(t, database.ApplySchema(ctx, conn))
	require.NoError(t, conn.Ping(ctx))

	tokens, err := auth.NewTokenIssuer(cfg.GetJWTSecret(), time.Hour)
	require.NoError(t, err)

	return surrealStores{
		users:    database.NewSurrealUserStore(conn, tokens),
		messages: database.NewSurrealMessageStore(conn),
	}
}

func TestSurrealUserStore(t *testing.T) {
	s := setupSurreal(t)
	ctx := context.Background()

	alice := &domain.User{FullName: "Alice", Email: "alice@example.com"}
	token, err := s.users.SignUp(ctx, alice, "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	_, err = s.users.SignUp(ctx, &domain.User{FullName: "Again", Email: "alice@example.com"}, "secret1")
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	_, _, err = s.users.SignIn(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	token, signedIn, err := s.users.SignIn(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, signedIn.ID)
	assert.Empty(t, signedIn.Password)

	authed, err := s.users.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, authed.Email)

	_, err = s.users.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	bob := &domain.User{FullName: "Bob", Email: "bob@example.com"}
	_, err = s.users.SignUp(ctx, bob, "secret2")
	require.NoError(t, err)

	others, err := s.users.ListUsersExcept(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, bob.ID, others[0].ID)

	pic := "/media/users/x/pic.png"
	updated, err := s.users.UpdateProfile(ctx, alice.ID, domain.ProfileUpdate{ProfilePic: &pic})
	require.NoError(t, err)
	assert.Equal(t, pic, updated.ProfilePic)
	assert.Equal(t, "Alice", updated.FullName)

	_, err = s.users.UpdateProfile(ctx, alice.ID, domain.ProfileUpdate{})
	assert.ErrorIs(t, err, domain.ErrNoChanges)

	_, err = s.users.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSurrealMessageStore(t *testing.T) {
	s := setupSurreal(t)
	ctx := context.Background()

	alice, bob, carol := testutils.NewTestUserID(), testutils.NewTestUserID(), testutils.NewTestUserID()
	text := func(s string) *string { return &s }

	first, err := s.messages.SaveMessage(ctx, domain.NewMessage{SenderID: alice, ReceiverID: bob, Text: text("hi bob")})
	require.NoError(t, err)
	assert.Equal(t, alice, first.SenderID)
	assert.Nil(t, first.ImageURL)

	_, err = s.messages.SaveMessage(ctx, domain.NewMessage{SenderID: bob, ReceiverID: alice, ImageURL: text("/media/users/b/cat.png")})
	require.NoError(t, err)
	_, err = s.messages.SaveMessage(ctx, domain.NewMessage{SenderID: alice, ReceiverID: carol, Text: text("hi carol")})
	require.NoError(t, err)

	_, err = s.messages.SaveMessage(ctx, domain.NewMessage{SenderID: alice, ReceiverID: bob})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	history, err := s.messages.FindMessagesBetween(ctx, bob, alice)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, "/media/users/b/cat.png", *history[1].ImageURL)
}
