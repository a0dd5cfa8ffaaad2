package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("cache entry not found")

// DefaultTTL is how long a written value stays readable.
const DefaultTTL = 15 * time.Minute

const expirationSuffix = "_expiration"

// Backend is the raw key/value capability the Store persists into. Values
// are opaque strings; Get returns ErrNotFound for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Store keeps JSON values alongside a companion "<key>_expiration" entry
// holding an epoch-millisecond deadline. Expiry is checked lazily on read;
// nothing is ever deleted.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// ExpirationKey returns the companion key holding the deadline for key.
func ExpirationKey(key string) string {
	return key + expirationSuffix
}

// Lookup returns the raw JSON stored under key when it has not expired.
func (s *Store) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	saved, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	rawExpiration, err := s.backend.Get(ctx, ExpirationKey(key))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", ExpirationKey(key), err)
	}
	if saved == "" || rawExpiration == "" {
		return nil, false, nil
	}
	expiresAt, err := strconv.ParseInt(rawExpiration, 10, 64)
	if err != nil {
		return nil, false, nil
	}
	if expiresAt <= s.now().UnixMilli() {
		return nil, false, nil
	}
	return []byte(saved), true, nil
}

// Read decodes the live value under key into a T. It returns initial when
// the entry is absent, expired or undecodable. Backend failures return
// initial together with the error.
func Read[T any](ctx context.Context, s *Store, key string, initial T) (T, error) {
	raw, ok, err := s.Lookup(ctx, key)
	if err != nil || !ok {
		return initial, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return initial, nil
	}
	return out, nil
}

// Write stores value under key and pushes its deadline TTL into the future.
// A nil value is ignored.
func (s *Store) Write(ctx context.Context, key string, value any) error {
	if value == nil {
		return nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, string(encoded)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	expiresAt := s.now().Add(s.ttl).UnixMilli()
	if err := s.backend.Set(ctx, ExpirationKey(key), strconv.FormatInt(expiresAt, 10)); err != nil {
		return fmt.Errorf("set %s: %w", ExpirationKey(key), err)
	}
	return nil
}
