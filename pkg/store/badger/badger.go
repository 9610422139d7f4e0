package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/ballotproof/ballotproof-go/pkg/store"
)

// Key prefixes for namespacing
const (
	keyPrefixCommitment  = "commitment:" // + big-endian sequence -> record
	keyPrefixValueIndex  = "commitidx:"  // + commitment value -> sequence
	keyPrefixNullIndex   = "nullidx:"    // + nullifier -> commitment value
	keyPrefixNullifier   = "nullifier:"  // + nullifier -> marker
	keyPrefixReveal      = "reveal:"     // + nullifier -> record
	keyNextSequence      = "metadata:next_sequence"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerStore is a production-ready commitment store using Badger.
// Provides durable, disk-based storage with ACID guarantees.
//
// Records are stored under big-endian sequence keys so a plain prefix
// iteration yields insertion order without a separate index scan.
// Values are CBOR-encoded.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerStore creates a new Badger-backed commitment store.
// The database is opened at the specified path with SyncWrites enabled
// for durability. A background goroutine is started for garbage
// collection.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	// Convert to absolute path
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// Configure Badger for production use
	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true // Ensure durability (fsync on every write)
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1 // We don't need versioning within Badger

	// Open database
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	// Initialize schema version
	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Start background GC
	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger commitment store initialized", "path", absPath)

	return bs, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			// First time setup - set schema version
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic garbage collection in the background
func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Run value log GC with 0.5 discard ratio
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// AppendCommitment persists a commitment record at the next sequence.
func (b *BadgerStore) AppendCommitment(rec *store.CommitmentRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot save nil CommitmentRecord")
	}
	if rec.Value == "" {
		return fmt.Errorf("cannot save CommitmentRecord with empty value")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		// Idempotent by commitment value
		_, err := txn.Get(valueIndexKey(rec.Value))
		if err == nil {
			return nil
		}
		if err != badgerdb.ErrKeyNotFound {
			return fmt.Errorf("failed to check commitment index: %w", err)
		}

		seq, err := nextSequence(txn)
		if err != nil {
			return err
		}
		rec.Sequence = seq

		data, err := cbor.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal CommitmentRecord: %w", err)
		}

		if err := txn.Set(commitmentKey(seq), data); err != nil {
			return err
		}
		if err := txn.Set(valueIndexKey(rec.Value), sequenceBytes(seq)); err != nil {
			return err
		}
		if rec.Nullifier != "" {
			if err := txn.Set(nullIndexKey(rec.Nullifier), []byte(rec.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveCommitment deletes a commitment record by value.
func (b *BadgerStore) RemoveCommitment(value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(valueIndexKey(value))
		if err == badgerdb.ErrKeyNotFound {
			return nil // Not found is not an error
		}
		if err != nil {
			return fmt.Errorf("failed to read commitment index: %w", err)
		}

		var seqBytes []byte
		if err := item.Value(func(val []byte) error {
			seqBytes = append([]byte{}, val...)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to read index value: %w", err)
		}

		rec, err := readCommitment(txn, seqBytes)
		if err != nil {
			return err
		}

		if err := txn.Delete(append([]byte(keyPrefixCommitment), seqBytes...)); err != nil {
			return err
		}
		if err := txn.Delete(valueIndexKey(value)); err != nil {
			return err
		}
		if rec != nil && rec.Nullifier != "" {
			// Clear the nullifier index only if it still points here
			current, err := readNullIndex(txn, rec.Nullifier)
			if err != nil {
				return err
			}
			if current == value {
				if err := txn.Delete(nullIndexKey(rec.Nullifier)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetCommitmentByNullifier returns the live commitment for a nullifier.
func (b *BadgerStore) GetCommitmentByNullifier(nullifier string) (*store.CommitmentRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var rec *store.CommitmentRecord
	err := b.db.View(func(txn *badgerdb.Txn) error {
		value, err := readNullIndex(txn, nullifier)
		if err != nil || value == "" {
			return err
		}

		item, err := txn.Get(valueIndexKey(value))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read commitment index: %w", err)
		}

		var seqBytes []byte
		if err := item.Value(func(val []byte) error {
			seqBytes = append([]byte{}, val...)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to read index value: %w", err)
		}

		rec, err = readCommitment(txn, seqBytes)
		return err
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// ListCommitments returns all commitment records in insertion order.
func (b *BadgerStore) ListCommitments() ([]*store.CommitmentRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("store is closed")
	}

	records := make([]*store.CommitmentRecord, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixCommitment)

		it := txn.NewIterator(opts)
		defer it.Close()

		// Big-endian sequence keys iterate in insertion order
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...) // Copy value
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			var rec store.CommitmentRecord
			if err := cbor.Unmarshal(data, &rec); err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal CommitmentRecord, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}

			records = append(records, &rec)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list CommitmentRecords: %w", err)
	}

	return records, nil
}

// SaveNullifier records a registered identity.
func (b *BadgerStore) SaveNullifier(nullifier string) error {
	if nullifier == "" {
		return fmt.Errorf("cannot save empty nullifier")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyPrefixNullifier+nullifier), []byte{1})
	})
}

// HasNullifier reports whether an identity has registered.
func (b *BadgerStore) HasNullifier(nullifier string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, fmt.Errorf("store is closed")
	}

	exists := false
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keyPrefixNullifier + nullifier))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check nullifier: %w", err)
	}

	return exists, nil
}

// SaveReveal persists a finalized choice, overwriting any earlier
// reveal from the same nullifier.
func (b *BadgerStore) SaveReveal(rev *store.RevealRecord) error {
	if rev == nil {
		return fmt.Errorf("cannot save nil RevealRecord")
	}
	if rev.Nullifier == "" {
		return fmt.Errorf("cannot save RevealRecord with empty nullifier")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := cbor.Marshal(rev)
	if err != nil {
		return fmt.Errorf("failed to marshal RevealRecord: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyPrefixReveal+rev.Nullifier), data)
	})
}

// ListReveals returns all reveal records.
func (b *BadgerStore) ListReveals() ([]*store.RevealRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("store is closed")
	}

	records := make([]*store.RevealRecord, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixReveal)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...) // Copy value
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			var rev store.RevealRecord
			if err := cbor.Unmarshal(data, &rev); err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal RevealRecord, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}

			records = append(records, &rev)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list RevealRecords: %w", err)
	}

	return records, nil
}

// Close shuts down the store
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil // Already closed, idempotent
	}
	b.closed = true
	b.mu.Unlock()

	// Stop GC goroutine
	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	// Close database
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger commitment store closed")
	return nil
}

// HealthCheck verifies the store is operational
func (b *BadgerStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	// Try a simple read operation to verify database is accessible
	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}

// nextSequence reads and bumps the monotonic sequence counter inside
// the caller's transaction.
func nextSequence(txn *badgerdb.Txn) (uint64, error) {
	var seq uint64

	item, err := txn.Get([]byte(keyNextSequence))
	if err == nil {
		err = item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence counter (%d bytes)", len(val))
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		})
		if err != nil {
			return 0, err
		}
	} else if err != badgerdb.ErrKeyNotFound {
		return 0, fmt.Errorf("failed to read sequence counter: %w", err)
	}

	if err := txn.Set([]byte(keyNextSequence), sequenceBytes(seq+1)); err != nil {
		return 0, fmt.Errorf("failed to bump sequence counter: %w", err)
	}

	return seq, nil
}

// readCommitment loads and decodes the record stored under a sequence.
func readCommitment(txn *badgerdb.Txn, seqBytes []byte) (*store.CommitmentRecord, error) {
	item, err := txn.Get(append([]byte(keyPrefixCommitment), seqBytes...))
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read commitment record: %w", err)
	}

	var rec store.CommitmentRecord
	err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode commitment record: %w", err)
	}

	return &rec, nil
}

// readNullIndex returns the commitment value a nullifier points at,
// "" if unset.
func readNullIndex(txn *badgerdb.Txn, nullifier string) (string, error) {
	item, err := txn.Get(nullIndexKey(nullifier))
	if err == badgerdb.ErrKeyNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read nullifier index: %w", err)
	}

	var value string
	err = item.Value(func(val []byte) error {
		value = string(val)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read nullifier index value: %w", err)
	}

	return value, nil
}

func commitmentKey(seq uint64) []byte {
	return append([]byte(keyPrefixCommitment), sequenceBytes(seq)...)
}

func valueIndexKey(value string) []byte {
	return []byte(keyPrefixValueIndex + value)
}

func nullIndexKey(nullifier string) []byte {
	return []byte(keyPrefixNullIndex + nullifier)
}

func sequenceBytes(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

// Ensure BadgerStore implements ICommitmentStore
var _ store.ICommitmentStore = (*BadgerStore)(nil)
