package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/threespace/site-backend/internal/apperr"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, "test:verify:"), m
}

func testRecord(jti string, now time.Time) *Record {
	return &Record{
		JTI:       jti,
		Email:     "a@example.com",
		Requester: "10.0.0.1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
		PurgeAt:   now.Add(2 * time.Hour),
	}
}

func TestRedisRepository_CreateGet(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.Create(ctx, testRecord("j1", now)))

	got, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got.Email)
	require.Equal(t, "10.0.0.1", got.Requester)
	require.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))
	require.Nil(t, got.ConsumedAt)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrTokenNotFound)
}

func TestRedisRepository_DuplicateJTIRejected(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, testRecord("dup", now)))
	require.ErrorIs(t, repo.Create(ctx, testRecord("dup", now)), apperr.ErrPersistence)
}

func TestRedisRepository_CreateWritesRecordAndExpiryTogether(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, testRecord("whole", now)))
	keys, err := m.HKeys("test:verify:whole")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"email", "requester", "issuedAt", "expiresAt", "purgeAt"}, keys)
	require.Greater(t, m.TTL("test:verify:whole"), time.Hour)

	other := testRecord("whole", now)
	other.Email = "b@example.com"
	require.ErrorIs(t, repo.Create(ctx, other), apperr.ErrPersistence)
	require.Equal(t, "a@example.com", m.HGet("test:verify:whole", "email"))

	m.SetError("READONLY replica")
	require.ErrorIs(t, repo.Create(ctx, testRecord("failed", now)), apperr.ErrPersistence)
	m.SetError("")
	require.False(t, m.Exists("test:verify:failed"))
}

func TestRedisRepository_ConsumeOnce(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, testRecord("j2", now)))

	rec, err := repo.Consume(ctx, "j2", now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "a@example.com", rec.Email)
	require.NotNil(t, rec.ConsumedAt)

	_, err = repo.Consume(ctx, "j2", now.Add(2*time.Minute))
	require.ErrorIs(t, err, apperr.ErrTokenUsed)
}

func TestRedisRepository_ConsumeClassifiesFailures(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, testRecord("j3", now)))

	_, err := repo.Consume(ctx, "nope", now)
	require.ErrorIs(t, err, apperr.ErrTokenNotFound)

	_, err = repo.Consume(ctx, "j3", now.Add(time.Hour))
	require.ErrorIs(t, err, apperr.ErrTokenExpired)

	// a failed attempt must not consume the record
	got, err := repo.Get(ctx, "j3")
	require.NoError(t, err)
	require.Nil(t, got.ConsumedAt)
}

func TestRedisRepository_RecordDroppedAfterRetention(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, testRecord("j4", now)))
	require.True(t, m.Exists("test:verify:j4"))

	m.FastForward(3 * time.Hour)

	_, err := repo.Consume(ctx, "j4", now.Add(3*time.Hour))
	require.ErrorIs(t, err, apperr.ErrTokenNotFound)
}

func TestRedisRepository_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, testRecord("race", now)))

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		used int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Consume(ctx, "race", now.Add(time.Second))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrTokenUsed):
				used++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, used)
}
