// Package valkey implements db.Store with rueidis, for Valkey with
// valkey-search and for Redis 8+ with the query engine.
package valkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragqa/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config holds connection parameters.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	ClientName string // shown in CLIENT LIST
}

// Store is a db.Store over a single rueidis client.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the given addresses.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("valkey: at least one address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientName:   cfg.ClientName,
		DisableCache: true,
		// FT.SEARCH replies are parsed in their RESP2 array shape
		AlwaysRESP2: true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// NewStoreFromClient wraps an existing client. Close closes it.
func NewStoreFromClient(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with a doubling delay, capped at one second, until the
// server answers or timeout expires. The last ping error is reported.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := 50 * time.Millisecond
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("valkey not ready after %s: %w", timeout, err)
		case <-time.After(delay):
		}
		delay = min(2*delay, time.Second)
	}
}

// serverErr reports whether err is a server reply containing any of the
// fragments, case-insensitively.
func serverErr(err error, fragments ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}
