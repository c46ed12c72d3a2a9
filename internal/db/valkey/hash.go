package valkey

import (
	"context"
	"maps"
	"slices"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragqa/internal/db"
)

// hset builds HSET key with fields in name order, so commands are stable.
func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.client.B().Hset().Key(key).FieldValue()
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		cmd = cmd.FieldValue(name, fields[name])
	}
	return cmd.Build()
}

// HSet writes one hash.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.client.Do(ctx, s.hset(key, fields)).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Key: key, Err: err}
	}
	return nil
}

// HSetMulti writes all hashes in one pipelined round-trip. The first failing
// key is reported; hashes before and after it may have been written.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, len(items))
	for i, item := range items {
		cmds[i] = s.hset(item.Key, item.Fields)
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Key: items[i].Key, Err: err}
		}
	}
	return nil
}

// HGetAll returns all fields of a hash; a missing key gives an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	return m, nil
}

// Del removes keys with one DEL each in a single round-trip, so keys may
// live in different cluster slots. Returns how many existed.
func (s *Store) Del(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.client.B().Del().Key(key).Build()
	}

	removed := 0
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return removed, &db.Error{Op: db.OpDel, Key: keys[i], Err: err}
		}
		removed += int(n)
	}
	return removed, nil
}

// scanBatch is the COUNT hint of each SCAN call.
const scanBatch = 500

// Scan returns every key matching pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	cursor := uint64(0)
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()
		page, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Key: pattern, Err: err}
		}
		keys = append(keys, page.Elements...)
		if cursor = page.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}
