package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"polls-service/internal/app"
	"polls-service/internal/domain"
)

// SchemaRepository caches poll schemas with TTL to avoid reloading them on every submission.
type SchemaRepository struct {
	loader app.SchemaLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	rndMu sync.Mutex
	cache map[int64]cachedSchema
	// gen is bumped by Invalidate; a load that started under an older
	// generation is returned to its callers but never cached.
	gen map[int64]uint64
}

type cachedSchema struct {
	schema    domain.PollSchema
	expiresAt time.Time
}

func NewSchemaRepository(loader app.SchemaLoader, ttl time.Duration) *SchemaRepository {
	return &SchemaRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedSchema),
		gen:    make(map[int64]uint64),
	}
}

func (r *SchemaRepository) GetSchema(ctx context.Context, pollID int64) (domain.PollSchema, error) {
	if schema, ok := r.cached(pollID); ok {
		return schema, nil
	}

	gen := r.generation(pollID)
	result, err, _ := r.sf.Do(flightKey(pollID, gen), func() (interface{}, error) {
		if schema, ok := r.cached(pollID); ok {
			return schema, nil
		}

		schema, err := r.loader.LoadSchema(ctx, pollID)
		if err != nil {
			return domain.PollSchema{}, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.mu.Lock()
			if r.gen[pollID] == gen {
				r.cache[pollID] = cachedSchema{schema: schema, expiresAt: r.clock().Add(ttl)}
			}
			r.mu.Unlock()
		}
		return schema, nil
	})
	if err != nil {
		return domain.PollSchema{}, err
	}
	return result.(domain.PollSchema), nil
}

// Invalidate drops the cached schema of a poll. Loads already in flight are
// not cached and later callers start a fresh load.
func (r *SchemaRepository) Invalidate(_ context.Context, pollID int64) error {
	r.mu.Lock()
	delete(r.cache, pollID)
	gen := r.gen[pollID]
	r.gen[pollID] = gen + 1
	r.mu.Unlock()
	r.sf.Forget(flightKey(pollID, gen))
	return nil
}

func (r *SchemaRepository) generation(pollID int64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen[pollID]
}

func flightKey(pollID int64, gen uint64) string {
	return strconv.FormatInt(pollID, 10) + "@" + strconv.FormatUint(gen, 10)
}

func (r *SchemaRepository) cached(pollID int64) (domain.PollSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[pollID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.PollSchema{}, false
	}
	return entry.schema, true
}

func (r *SchemaRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
