// Package storage publishes consolidated crates to NATS KV.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semcrate/consolidate"
)

// RecordType represents the type of record stored in KV.
type RecordType string

const (
	RecordTypeCrate RecordType = "crate"
	RecordTypeRun   RecordType = "run"
)

// Bucket names for each record type.
const (
	BucketCrates = "SEMCRATE_CRATES"
	BucketRuns   = "SEMCRATE_RUNS"
)

// RecordID represents a typed record identifier.
type RecordID struct {
	Type RecordType
	ID   string
}

// String returns the string representation of the record ID.
func (r RecordID) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// ParseRecordID parses a record ID string into its components.
func ParseRecordID(s string) (RecordID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return RecordID{}, fmt.Errorf("invalid record ID format: %s", s)
	}
	recordType := RecordType(parts[0])
	switch recordType {
	case RecordTypeCrate, RecordTypeRun:
		return RecordID{Type: recordType, ID: parts[1]}, nil
	default:
		return RecordID{}, fmt.Errorf("unknown record type: %s", parts[0])
	}
}

// CrateKey returns the KV key of a crate. Crate ids are URLs or
// "{uuid}/{name}" paths, neither of which is a valid KV key.
func CrateKey(crateID string) string {
	sum := sha256.Sum256([]byte(crateID))
	return hex.EncodeToString(sum[:16])
}

// Crate is a consolidated crate as published.
type Crate struct {
	ID        string            `json:"id"`
	CrateID   string            `json:"crate_id"`
	Source    string            `json:"source"`
	Document  json.RawMessage   `json:"document"`
	Stats     consolidate.Stats `json:"stats"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Run records one consolidation run.
type Run struct {
	ID         string            `json:"id"`
	CrateID    string            `json:"crate_id"`
	Source     string            `json:"source"`
	Stats      consolidate.Stats `json:"stats"`
	Duration   time.Duration     `json:"duration"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// bucket is the subset of a KV bucket the store uses.
type bucket interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, value []byte) error
	delete(ctx context.Context, key string) error
	keys(ctx context.Context) ([]string, error)
}

// kvBucket adapts a jetstream.KeyValue.
type kvBucket struct {
	kv jetstream.KeyValue
}

func (b kvBucket) get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry.Value(), nil
}

func (b kvBucket) put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

func (b kvBucket) delete(ctx context.Context, key string) error {
	err := b.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (b kvBucket) keys(ctx context.Context) ([]string, error) {
	keys, err := b.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	return keys, err
}

// Store provides crate storage operations backed by NATS KV.
type Store struct {
	crates bucket
	runs   bucket
	now    func() time.Time
}

// NewStore creates a new Store with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	crates, err := getOrCreateBucket(ctx, js, BucketCrates)
	if err != nil {
		return nil, fmt.Errorf("create crates bucket: %w", err)
	}

	runs, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return newStore(kvBucket{crates}, kvBucket{runs}), nil
}

func newStore(crates, runs bucket) *Store {
	return &Store{crates: crates, runs: runs, now: time.Now}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semcrate %s storage", strings.ToLower(strings.TrimPrefix(name, "SEMCRATE_"))),
		History:     5, // Keep last 5 revisions
	})
}

// PutCrate stores c under its crate id, replacing any earlier version.
// CreatedAt of an existing record is preserved.
func (s *Store) PutCrate(ctx context.Context, c *Crate) (RecordID, error) {
	if c.CrateID == "" {
		return RecordID{}, fmt.Errorf("crate id is required")
	}
	id := RecordID{Type: RecordTypeCrate, ID: CrateKey(c.CrateID)}
	c.ID = id.String()
	c.UpdatedAt = s.now()

	existing, err := s.GetCrate(ctx, c.CrateID)
	switch {
	case err == nil:
		c.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		c.CreatedAt = c.UpdatedAt
	default:
		return RecordID{}, err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return RecordID{}, fmt.Errorf("marshal crate: %w", err)
	}
	if err := s.crates.put(ctx, id.ID, data); err != nil {
		return RecordID{}, fmt.Errorf("store crate: %w", err)
	}
	return id, nil
}

// GetCrate retrieves a crate by its crate id.
func (s *Store) GetCrate(ctx context.Context, crateID string) (*Crate, error) {
	data, err := s.crates.get(ctx, CrateKey(crateID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get crate: %w", err)
	}

	var c Crate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal crate: %w", err)
	}
	return &c, nil
}

// DeleteCrate removes a crate.
func (s *Store) DeleteCrate(ctx context.Context, crateID string) error {
	if err := s.crates.delete(ctx, CrateKey(crateID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete crate: %w", err)
	}
	return nil
}

// ListCrates returns all stored crates ordered by crate id.
func (s *Store) ListCrates(ctx context.Context) ([]*Crate, error) {
	keys, err := s.crates.keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list crate keys: %w", err)
	}

	crates := make([]*Crate, 0, len(keys))
	for _, key := range keys {
		data, err := s.crates.get(ctx, key)
		if err != nil {
			continue
		}
		var c Crate
		if err := json.Unmarshal(data, &c); err != nil {
			continue
		}
		crates = append(crates, &c)
	}
	sort.Slice(crates, func(i, j int) bool { return crates[i].CrateID < crates[j].CrateID })
	return crates, nil
}

// RecordRun stores a run record and returns its ID.
func (s *Store) RecordRun(ctx context.Context, r *Run) (RecordID, error) {
	id := RecordID{Type: RecordTypeRun, ID: uuid.New().String()}
	r.ID = id.String()
	if r.FinishedAt.IsZero() {
		r.FinishedAt = s.now()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return RecordID{}, fmt.Errorf("marshal run: %w", err)
	}
	if err := s.runs.put(ctx, id.ID, data); err != nil {
		return RecordID{}, fmt.Errorf("store run: %w", err)
	}
	return id, nil
}

// ListRunsByCrate returns the runs of a crate, oldest first.
func (s *Store) ListRunsByCrate(ctx context.Context, crateID string) ([]*Run, error) {
	keys, err := s.runs.keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	var runs []*Run
	for _, key := range keys {
		data, err := s.runs.get(ctx, key)
		if err != nil {
			continue
		}
		var r Run
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if r.CrateID == crateID {
			runs = append(runs, &r)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}
