package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/ragqa/internal/db"
	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/repository/keyspace"
)

// store is the consumer interface for collections (ISP).
//
//nolint:interfacebloat // collection lifecycle needs hash + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, idx *db.VectorIndex) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo manages the lifecycle of collections stored as FT indexes over hashes.
type Repo struct {
	store store
	keys  keyspace.Keyspace
	hnsw  HNSWConfig
	now   func() time.Time
}

// New creates a collection repository.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{store: s, keys: keys, hnsw: HNSWConfig{M: 16, EFConstruct: 200}, now: time.Now}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Recreate destroys the collection (index, entries, metadata) if present and
// creates it empty with the given dimensionality and metric. Safe to repeat.
func (r *Repo) Recreate(ctx context.Context, spec domain.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	idx := vectorIndex(r.keys, spec, r.hnsw)
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	if err := r.drop(ctx, spec.Name); err != nil {
		return err
	}

	metaKey := r.keys.Meta(spec.Name)
	if err := r.store.HSet(ctx, metaKey, specToHash(spec, r.now())); err != nil {
		return fmt.Errorf("hset collection %s: %w", spec.Name, err)
	}

	// metadata without an index would make Get lie, so undo it
	if err := r.store.CreateIndex(ctx, idx); err != nil {
		_, cleanupErr := r.store.Del(ctx, metaKey)
		return errors.Join(fmt.Errorf("create index %s: %w", idx.Name, err), cleanupErr)
	}

	return nil
}

// Get returns the stored collection spec.
func (r *Repo) Get(ctx context.Context, name string) (domain.CollectionSpec, error) {
	m, err := r.store.HGetAll(ctx, r.keys.Meta(name))
	if err != nil {
		return domain.CollectionSpec{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return domain.CollectionSpec{}, domain.ErrNotFound
	}
	return specFromHash(m)
}

// Exists reports whether the collection index is present.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.keys.Index(name))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	return ok, nil
}

// Verify checks that the collection index exists and that its stored spec
// matches spec. A missing collection yields domain.ErrNotFound.
func (r *Repo) Verify(ctx context.Context, spec domain.CollectionSpec) error {
	ok, err := r.Exists(ctx, spec.Name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("collection %s: %w", spec.Name, domain.ErrNotFound)
	}
	stored, err := r.Get(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("collection %s metadata: %w", spec.Name, err)
	}
	return spec.CheckStored(stored)
}

// drop removes the index, every entry under the collection prefix and the metadata.
// FT.DROPINDEX keeps documents on valkey-search, so entries are deleted explicitly.
func (r *Repo) drop(ctx context.Context, name string) error {
	if err := r.store.DropIndex(ctx, r.keys.Index(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}

	keys, err := r.store.Scan(ctx, r.keys.EntryPrefix(name)+"*")
	if err != nil {
		return fmt.Errorf("scan entries %s: %w", name, err)
	}
	keys = append(keys, r.keys.Meta(name))

	if _, err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete entries %s: %w", name, err)
	}
	return nil
}

func specToHash(spec domain.CollectionSpec, createdAt time.Time) map[string]string {
	return map[string]string{
		"name":       spec.Name,
		"dimensions": strconv.Itoa(spec.Dimensions),
		"metric":     string(spec.Metric),
		"created_at": strconv.FormatInt(createdAt.UnixMilli(), 10),
	}
}

func specFromHash(m map[string]string) (domain.CollectionSpec, error) {
	dims, err := strconv.Atoi(m["dimensions"])
	if err != nil {
		return domain.CollectionSpec{}, fmt.Errorf("invalid dimensions: %w", err)
	}
	metric, err := domain.ParseMetric(m["metric"])
	if err != nil {
		return domain.CollectionSpec{}, err
	}
	return domain.CollectionSpec{Name: m["name"], Dimensions: dims, Metric: metric}, nil
}
