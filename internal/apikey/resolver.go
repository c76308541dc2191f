// Package apikey resolves provider credentials from, in order: explicit
// runtime configuration, a persisted operator override, a built-in default.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Well-known setting names.
const (
	ProviderPrivateKey = "vapi_private_key"
	ProviderPublicKey  = "vapi_public_key"
)

// Origin tells which layer supplied a value.
type Origin string

const (
	OriginNone     Origin = ""
	OriginRuntime  Origin = "runtime"
	OriginOverride Origin = "override"
	OriginDefault  Origin = "default"
)

// OverrideStore persists operator overrides. Get returns "" for an unset name.
type OverrideStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}

type Resolver struct {
	Runtime  map[string]string
	Store    OverrideStore
	Defaults map[string]string

	log *slog.Logger
}

func NewResolver(runtime map[string]string, store OverrideStore, defaults map[string]string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{Runtime: runtime, Store: store, Defaults: defaults, log: log}
}

// Resolve returns the first non-empty value for name. A failing store is
// logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, Origin) {
	if v := strings.TrimSpace(r.Runtime[name]); v != "" {
		return v, OriginRuntime
	}
	if r.Store != nil {
		v, err := r.Store.Get(ctx, name)
		if err != nil {
			r.log.Warn("override store read failed", "setting", name, "err", err)
		} else if v = strings.TrimSpace(v); v != "" {
			return v, OriginOverride
		}
	}
	if v := strings.TrimSpace(r.Defaults[name]); v != "" {
		return v, OriginDefault
	}
	return "", OriginNone
}

var ErrNoStore = errors.New("apikey: no override store configured")

// SetOverride persists value for name. An empty value clears the override.
// A runtime value still takes precedence afterwards.
func (r *Resolver) SetOverride(ctx context.Context, name, value string) error {
	if r.Store == nil {
		return ErrNoStore
	}
	if name == "" {
		return fmt.Errorf("apikey: setting name is required")
	}
	return r.Store.Set(ctx, name, strings.TrimSpace(value))
}

// Source binds the resolver to one setting name.
func (r *Resolver) Source(name string) Source { return Source{r: r, name: name} }

type Source struct {
	r    *Resolver
	name string
}

// APIKey never fails; an unresolved key is returned as "".
func (s Source) APIKey(ctx context.Context) (string, error) {
	v, _ := s.r.Resolve(ctx, s.name)
	return v, nil
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{values: make(map[string]string)} }

func (m *MemoryStore) Get(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[name], nil
}

func (m *MemoryStore) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		delete(m.values, name)
		return nil
	}
	m.values[name] = value
	return nil
}

// DefaultSettingsHash is the Redis hash holding overrides.
const DefaultSettingsHash = "aurora:settings"

// RedisStore keeps overrides as fields of one Redis hash shared by all instances.
type RedisStore struct {
	rdb  redis.Cmdable
	hash string
}

func NewRedisStore(rdb redis.Cmdable, hash string) *RedisStore {
	if hash == "" {
		hash = DefaultSettingsHash
	}
	return &RedisStore{rdb: rdb, hash: hash}
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	v, err := s.rdb.HGet(ctx, s.hash, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, name, value string) error {
	if value == "" {
		return s.rdb.HDel(ctx, s.hash, name).Err()
	}
	return s.rdb.HSet(ctx, s.hash, name, value).Err()
}
