package valkey

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragqa/internal/db"
)

// CreateIndex runs FT.CREATE for idx.
func (s *Store) CreateIndex(ctx context.Context, idx *db.VectorIndex) error {
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(idx.CreateArgs()...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if serverErr(err, "already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Key: idx.Name, Err: err}
	}
	return nil
}

// DropIndex removes an index. The hashes it covered stay in place.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.client.B().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if indexMissing(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}
	return nil
}

// IndexExists probes the index with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(name).Build()
	err := s.client.Do(ctx, cmd).Error()
	switch {
	case err == nil:
		return true, nil
	case indexMissing(err):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Key: name, Err: err}
	}
}

// indexMissing matches Redis ("Unknown index name") and valkey-search
// ("Index with name ... not found").
func indexMissing(err error) bool {
	return serverErr(err, "unknown index name", "not found")
}
