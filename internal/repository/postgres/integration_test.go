//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/duochat/duochat-server/internal/model"
	repo "github.com/duochat/duochat-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "duochat_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/duochat_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newUser(email string) model.User {
	now := time.Now()
	return model.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$12$notarealhashnotarealhashnotarealhashnotarealhash",
		Role:         model.RoleIdeator,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func mustCreateUser(t *testing.T, ur *repo.UserRepository, email string) model.User {
	t.Helper()
	u, err := ur.Create(context.Background(), newUser(email))
	require.NoError(t, err)
	return u
}

func mustPair(t *testing.T, a, b uuid.UUID) model.ParticipantPair {
	t.Helper()
	p, err := model.NewParticipantPair(a, b)
	require.NoError(t, err)
	return p
}

func TestUserRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)

	u := mustCreateUser(t, ur, "crud@example.com")

	byEmail, err := ur.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID, err := ur.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)

	_, err = ur.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = ur.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	mustCreateUser(t, ur, "dup@example.com")

	_, err = ur.Create(ctx, newUser("dup@example.com"))
	require.ErrorIs(t, err, model.ErrDuplicateEmail)

	users, err := ur.List(ctx)
	require.NoError(t, err)
	count := 0
	for _, u := range users {
		if u.Email == "dup@example.com" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestConversationRepository_PairUniqueness(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	cr := repo.NewConversationRepository(conn)

	a := mustCreateUser(t, ur, "pair-a@example.com")
	b := mustCreateUser(t, ur, "pair-b@example.com")

	first, err := cr.FindOrCreate(ctx, model.Conversation{
		ID:           uuid.New(),
		Participants: mustPair(t, a.ID, b.ID),
	})
	require.NoError(t, err)

	// Same pair, both argument orders, fresh candidate ids: always the
	// first conversation.
	for i := 0; i < 5; i++ {
		got, err := cr.FindOrCreate(ctx, model.Conversation{
			ID:           uuid.New(),
			Participants: mustPair(t, b.ID, a.ID),
		})
		require.NoError(t, err)
		require.Equal(t, first.ID, got.ID)
	}
}

func TestConversationRepository_ConcurrentFindOrCreate(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	cr := repo.NewConversationRepository(conn)

	a := mustCreateUser(t, ur, "conc-a@example.com")
	b := mustCreateUser(t, ur, "conc-b@example.com")
	pair := mustPair(t, a.ID, b.ID)

	const k = 16
	results := make([]uuid.UUID, k)
	errs := make([]error, k)

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := cr.FindOrCreate(ctx, model.Conversation{ID: uuid.New(), Participants: pair})
			results[i] = conv.ID
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < k; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0], results[i])
	}
}

func TestConversationRepository_AppendOrdering(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	cr := repo.NewConversationRepository(conn)

	a := mustCreateUser(t, ur, "append-a@example.com")
	b := mustCreateUser(t, ur, "append-b@example.com")

	conv, err := cr.FindOrCreate(ctx, model.Conversation{ID: uuid.New(), Participants: mustPair(t, a.ID, b.ID)})
	require.NoError(t, err)

	const n = 10
	for i := 0; i < n; i++ {
		_, err := cr.AppendMessage(ctx, model.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       a.ID,
			Body:           fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	got, err := cr.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, n)

	for i, m := range got.Messages {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Body)
		if i > 0 {
			prev := got.Messages[i-1]
			assert.Greater(t, m.Seq, prev.Seq)
			assert.False(t, m.CreatedAt.Before(prev.CreatedAt), "timestamps must be non-decreasing")
		}
	}

	// Last append bumps the conversation.
	last := got.Messages[n-1]
	assert.True(t, last.CreatedAt.Equal(got.UpdatedAt))
}

func TestConversationRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	cr := repo.NewConversationRepository(conn)

	a := mustCreateUser(t, ur, "nf-a@example.com")

	_, err = cr.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = cr.AppendMessage(ctx, model.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       a.ID,
		Body:           "hello?",
	})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestConversationRepository_GetByParticipant(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	cr := repo.NewConversationRepository(conn)

	a := mustCreateUser(t, ur, "lst-a@example.com")
	b := mustCreateUser(t, ur, "lst-b@example.com")
	c := mustCreateUser(t, ur, "lst-c@example.com")
	loner := mustCreateUser(t, ur, "lst-loner@example.com")

	ab, err := cr.FindOrCreate(ctx, model.Conversation{ID: uuid.New(), Participants: mustPair(t, a.ID, b.ID)})
	require.NoError(t, err)
	ac, err := cr.FindOrCreate(ctx, model.Conversation{ID: uuid.New(), Participants: mustPair(t, a.ID, c.ID)})
	require.NoError(t, err)

	_, err = cr.AppendMessage(ctx, model.Message{ID: uuid.New(), ConversationID: ab.ID, SenderID: b.ID, Body: "hi"})
	require.NoError(t, err)

	convs, err := cr.GetByParticipant(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	ids := map[uuid.UUID][]model.Message{}
	for _, cv := range convs {
		ids[cv.ID] = cv.Messages
	}
	require.Contains(t, ids, ab.ID)
	require.Contains(t, ids, ac.ID)
	assert.Len(t, ids[ab.ID], 1)
	assert.Empty(t, ids[ac.ID])

	empty, err := cr.GetByParticipant(ctx, loner.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRefreshTokenRepository(conn)

	u := mustCreateUser(t, ur, "rt@example.com")

	now := time.Now()
	rt := model.RefreshToken{
		ID:        uuid.New(),
		JTI:       uuid.NewString(),
		UserID:    u.ID,
		TokenHash: []byte("hash"),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, rr.Create(ctx, rt))

	got, err := rr.GetByJTI(ctx, rt.JTI)
	require.NoError(t, err)
	require.Nil(t, got.RevokedAt)

	require.NoError(t, rr.RevokeByJTI(ctx, rt.JTI))
	got, err = rr.GetByJTI(ctx, rt.JTI)
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)

	_, err = rr.GetByJTI(ctx, "missing-jti")
	require.ErrorIs(t, err, model.ErrNotFound)
}
