package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ballotproof/ballotproof-go/pkg/store"
)

// Key suffixes for namespacing in Redis
const (
	keyPrefixCommitment  = "poll:commitment:"       // + value -> record JSON
	keyPrefixNullIndex   = "poll:nullidx:"          // + nullifier -> value
	keySetNullifiers     = "poll:nullifiers"        // set of registered nullifiers
	keyHashReveals       = "poll:reveals"           // hash: nullifier -> record JSON
	keyZSetCommitments   = "poll:commitments:index" // zset scored by sequence
	keyNextSequence      = "poll:metadata:next_sequence"
	keySchemaVersion     = "poll:metadata:schema_version"
	currentSchemaVersion = "v1"

	opTimeout = 5 * time.Second
)

// RedisStore is a production-ready commitment store using Redis.
// Provides durable, distributed storage suitable for cloud-native
// deployments. Insertion order is kept in a sorted set scored by a
// monotonic sequence counter, since Redis has no native ordered
// prefix iteration.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for
	// multi-tenant setups). If set, this prefix is prepended to all
	// keys, e.g. "mypoll:" results in keys like
	// "mypoll:poll:commitment:abc". If empty, keys use the default
	// "poll:" prefix alone.
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed commitment store.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis commitment store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

// initSchema initializes or validates the schema version
func (r *RedisStore) initSchema(ctx context.Context) error {
	existing, err := r.client.Get(ctx, r.key(keySchemaVersion)).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, r.key(keySchemaVersion), currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}

	return nil
}

// key applies the optional custom prefix to a key
func (r *RedisStore) key(k string) string {
	return r.keyPrefix + k
}

// AppendCommitment persists a commitment record at the next sequence.
func (r *RedisStore) AppendCommitment(rec *store.CommitmentRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot save nil CommitmentRecord")
	}
	if rec.Value == "" {
		return fmt.Errorf("cannot save CommitmentRecord with empty value")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Idempotent by commitment value
	exists, err := r.client.Exists(ctx, r.key(keyPrefixCommitment+rec.Value)).Result()
	if err != nil {
		return fmt.Errorf("failed to check commitment existence: %w", err)
	}
	if exists > 0 {
		return nil
	}

	seq, err := r.client.Incr(ctx, r.key(keyNextSequence)).Result()
	if err != nil {
		return fmt.Errorf("failed to bump sequence counter: %w", err)
	}
	rec.Sequence = uint64(seq - 1) // INCR starts at 1, sequences at 0

	data, err := store.MarshalCommitmentRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal CommitmentRecord: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyPrefixCommitment+rec.Value), data, 0)
	pipe.ZAdd(ctx, r.key(keyZSetCommitments), redis.Z{Score: float64(rec.Sequence), Member: rec.Value})
	if rec.Nullifier != "" {
		pipe.Set(ctx, r.key(keyPrefixNullIndex+rec.Nullifier), rec.Value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store CommitmentRecord: %w", err)
	}

	return nil
}

// RemoveCommitment deletes a commitment record by value.
func (r *RedisStore) RemoveCommitment(value string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(keyPrefixCommitment+value)).Bytes()
	if err == redis.Nil {
		return nil // Not found is not an error
	}
	if err != nil {
		return fmt.Errorf("failed to read CommitmentRecord: %w", err)
	}

	rec, err := store.UnmarshalCommitmentRecord(data)
	if err != nil {
		return fmt.Errorf("failed to decode CommitmentRecord: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(keyPrefixCommitment+value))
	pipe.ZRem(ctx, r.key(keyZSetCommitments), value)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete CommitmentRecord: %w", err)
	}

	if rec.Nullifier != "" {
		// Clear the nullifier index only if it still points here
		current, err := r.client.Get(ctx, r.key(keyPrefixNullIndex+rec.Nullifier)).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to read nullifier index: %w", err)
		}
		if current == value {
			if err := r.client.Del(ctx, r.key(keyPrefixNullIndex+rec.Nullifier)).Err(); err != nil {
				return fmt.Errorf("failed to clear nullifier index: %w", err)
			}
		}
	}

	return nil
}

// GetCommitmentByNullifier returns the live commitment for a nullifier.
func (r *RedisStore) GetCommitmentByNullifier(nullifier string) (*store.CommitmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	value, err := r.client.Get(ctx, r.key(keyPrefixNullIndex+nullifier)).Result()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read nullifier index: %w", err)
	}

	data, err := r.client.Get(ctx, r.key(keyPrefixCommitment+value)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CommitmentRecord: %w", err)
	}

	return store.UnmarshalCommitmentRecord(data)
}

// ListCommitments returns all commitment records in insertion order.
func (r *RedisStore) ListCommitments() ([]*store.CommitmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	values, err := r.client.ZRange(ctx, r.key(keyZSetCommitments), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list commitment index: %w", err)
	}

	records := make([]*store.CommitmentRecord, 0, len(values))
	for _, value := range values {
		data, err := r.client.Get(ctx, r.key(keyPrefixCommitment+value)).Bytes()
		if err == redis.Nil {
			r.logger.Sugar().Warnw("Commitment in index but record missing, skipping", "value", value)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CommitmentRecord: %w", err)
		}

		rec, err := store.UnmarshalCommitmentRecord(data)
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal CommitmentRecord, skipping",
				"value", value, "error", err)
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// SaveNullifier records a registered identity.
func (r *RedisStore) SaveNullifier(nullifier string) error {
	if nullifier == "" {
		return fmt.Errorf("cannot save empty nullifier")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.SAdd(ctx, r.key(keySetNullifiers), nullifier).Err(); err != nil {
		return fmt.Errorf("failed to save nullifier: %w", err)
	}

	return nil
}

// HasNullifier reports whether an identity has registered.
func (r *RedisStore) HasNullifier(nullifier string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	exists, err := r.client.SIsMember(ctx, r.key(keySetNullifiers), nullifier).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check nullifier: %w", err)
	}

	return exists, nil
}

// SaveReveal persists a finalized choice, overwriting any earlier
// reveal from the same nullifier.
func (r *RedisStore) SaveReveal(rev *store.RevealRecord) error {
	if rev == nil {
		return fmt.Errorf("cannot save nil RevealRecord")
	}
	if rev.Nullifier == "" {
		return fmt.Errorf("cannot save RevealRecord with empty nullifier")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := store.MarshalRevealRecord(rev)
	if err != nil {
		return fmt.Errorf("failed to marshal RevealRecord: %w", err)
	}

	if err := r.client.HSet(ctx, r.key(keyHashReveals), rev.Nullifier, data).Err(); err != nil {
		return fmt.Errorf("failed to save RevealRecord: %w", err)
	}

	return nil
}

// ListReveals returns all reveal records.
func (r *RedisStore) ListReveals() ([]*store.RevealRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	entries, err := r.client.HGetAll(ctx, r.key(keyHashReveals)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list RevealRecords: %w", err)
	}

	records := make([]*store.RevealRecord, 0, len(entries))
	for nullifier, data := range entries {
		rev, err := store.UnmarshalRevealRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal RevealRecord, skipping",
				"nullifier", nullifier, "error", err)
			continue
		}
		records = append(records, rev)
	}

	return records, nil
}

// Close shuts down the store
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil // Already closed, idempotent
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis commitment store closed")
	return nil
}

// HealthCheck verifies the store is operational
func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

// Ensure RedisStore implements ICommitmentStore
var _ store.ICommitmentStore = (*RedisStore)(nil)
