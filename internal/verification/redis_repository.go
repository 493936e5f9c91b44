package verification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/threespace/site-backend/internal/apperr"
)

// consumeScript checks and marks a record in one step. Timestamps are unix
// milliseconds. Replies: missing, used, expired or ok.
var consumeScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'expiresAt', 'consumedAt')
if not v[1] then
  return 'missing'
end
if v[2] then
  return 'used'
end
if tonumber(v[1]) <= tonumber(ARGV[1]) then
  return 'expired'
end
redis.call('HSET', KEYS[1], 'consumedAt', ARGV[1])
return 'ok'
`)

// createScript writes a whole record and its expiry, or nothing when the
// jti is taken. ARGV: email, requester, issuedAt, expiresAt, purgeAt.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'email', ARGV[1], 'requester', ARGV[2],
  'issuedAt', ARGV[3], 'expiresAt', ARGV[4], 'purgeAt', ARGV[5])
redis.call('PEXPIREAT', KEYS[1], ARGV[5])
return 1
`)

// RedisRepository implements Repository using Redis as the backing store.
// Records are hashes under key "<prefix><jti>" that expire at PurgeAt.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRepository creates a Redis-based verification repository. Prefix may be empty.
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "verify:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(jti string) string {
	return r.prefix + jti
}

func (r *RedisRepository) Create(ctx context.Context, rec *Record) error {
	created, err := createScript.Run(ctx, r.client, []string{r.key(rec.JTI)},
		rec.Email, rec.Requester, millis(rec.IssuedAt), millis(rec.ExpiresAt), millis(rec.PurgeAt),
	).Int()
	if err != nil {
		return apperr.Persistence("insert verification", err)
	}
	if created == 0 {
		return apperr.Persistence("insert verification", fmt.Errorf("duplicate jti %s", rec.JTI))
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, jti string) (*Record, error) {
	fields, err := r.client.HGetAll(ctx, r.key(jti)).Result()
	if err != nil {
		return nil, apperr.Persistence("find verification", err)
	}
	if len(fields) == 0 {
		return nil, apperr.ErrTokenNotFound
	}
	return decodeRecord(jti, fields)
}

func (r *RedisRepository) Consume(ctx context.Context, jti string, now time.Time) (*Record, error) {
	res, err := consumeScript.Run(ctx, r.client, []string{r.key(jti)}, millis(now)).Text()
	if err != nil {
		return nil, apperr.Persistence("consume verification", err)
	}
	switch res {
	case "missing":
		return nil, apperr.ErrTokenNotFound
	case "used":
		return nil, apperr.ErrTokenUsed
	case "expired":
		return nil, apperr.ErrTokenExpired
	}
	return r.Get(ctx, jti)
}

// Purge is a no-op: Redis drops records by itself once PurgeAt passes.
func (r *RedisRepository) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func decodeRecord(jti string, f map[string]string) (*Record, error) {
	rec := &Record{JTI: jti, Email: f["email"], Requester: f["requester"]}
	for name, dst := range map[string]*time.Time{
		"issuedAt":  &rec.IssuedAt,
		"expiresAt": &rec.ExpiresAt,
		"purgeAt":   &rec.PurgeAt,
	} {
		t, err := parseMillis(f[name])
		if err != nil {
			return nil, apperr.Persistence("decode verification", fmt.Errorf("%s: %w", name, err))
		}
		*dst = t
	}
	if v, ok := f["consumedAt"]; ok {
		t, err := parseMillis(v)
		if err != nil {
			return nil, apperr.Persistence("decode verification", fmt.Errorf("consumedAt: %w", err))
		}
		rec.ConsumedAt = &t
	}
	return rec, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
