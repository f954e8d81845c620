package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"polls-service/internal/app"
	"polls-service/internal/domain"
)

// SchemaRepository caches poll schemas in Redis and falls back to a loader on cache miss.
// Schemas are stored as JSON under a versioned key:
//
//	poll:{pollID}:schema:version          INCR on invalidate
//	poll:{pollID}:schema:v{version}       {json} EX ttl
//
// A load that races an invalidation writes under the old version, which no
// reader asks for any more.
type SchemaRepository struct {
	client *redis.Client
	loader app.SchemaLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSchemaRepository(client *redis.Client, loader app.SchemaLoader, ttl time.Duration) *SchemaRepository {
	return &SchemaRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SchemaRepository) GetSchema(ctx context.Context, pollID int64) (domain.PollSchema, error) {
	key := r.key(pollID, r.version(ctx, pollID))
	if schema, ok := r.cached(ctx, key); ok {
		return schema, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if schema, ok := r.cached(ctx, key); ok {
			return schema, nil
		}

		schema, err := r.loader.LoadSchema(ctx, pollID)
		if err != nil {
			return domain.PollSchema{}, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			if data, err := json.Marshal(schema); err == nil {
				// best-effort: a failed write only costs another load
				_ = r.client.Set(ctx, key, data, ttl).Err()
			}
		}
		return schema, nil
	})
	if err != nil {
		return domain.PollSchema{}, err
	}
	return result.(domain.PollSchema), nil
}

// Invalidate moves the poll to a new schema version and deletes the old entry.
func (r *SchemaRepository) Invalidate(ctx context.Context, pollID int64) error {
	next, err := r.client.Incr(ctx, r.versionKey(pollID)).Result()
	if err != nil {
		return err
	}
	old := r.key(pollID, next-1)
	r.sf.Forget(old)
	return r.client.Del(ctx, old).Err()
}

// version returns the current schema version of a poll, 0 when none is set or Redis is unreachable.
func (r *SchemaRepository) version(ctx context.Context, pollID int64) int64 {
	v, err := r.client.Get(ctx, r.versionKey(pollID)).Int64()
	if err != nil {
		return 0
	}
	return v
}

func (r *SchemaRepository) cached(ctx context.Context, key string) (domain.PollSchema, bool) {
	// redis.Nil and connection errors both fall through to the loader.
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.PollSchema{}, false
	}
	var schema domain.PollSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return domain.PollSchema{}, false
	}
	return schema, true
}

func (r *SchemaRepository) key(pollID, version int64) string {
	return "poll:" + strconv.FormatInt(pollID, 10) + ":schema:v" + strconv.FormatInt(version, 10)
}

func (r *SchemaRepository) versionKey(pollID int64) string {
	return "poll:" + strconv.FormatInt(pollID, 10) + ":schema:version"
}

func (r *SchemaRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
