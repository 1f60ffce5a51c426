// Package identity owns the anonymous user identifier. It is the only
// component that touches durable storage; everything else receives the
// identity as an explicit parameter.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/andrewtitoo/ReMissionCapstone/internal/api"
	"github.com/andrewtitoo/ReMissionCapstone/internal/storage"
)

var (
	ErrNoProvisioner   = errors.New("identity provisioner is not configured")
	ErrInvalidIdentity = errors.New("identity rejected by the backend")
)

// Provisioner is the slice of the API gateway the identity store needs.
type Provisioner interface {
	ProvisionIdentity(ctx context.Context) (string, error)
	ValidateIdentity(ctx context.Context, id string) error
}

type Option func(*Store)

// WithLocalFallback enables legacy client-local generation when backend
// provisioning is unreachable. A locally generated identity is not
// validated against server-side data ownership, so this stays opt-in.
func WithLocalFallback() Option {
	return func(s *Store) { s.localFallback = true }
}

type Store struct {
	storage     storage.Storage
	provisioner Provisioner

	localFallback bool

	mu       sync.Mutex
	resolved string

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(st storage.Storage, provisioner Provisioner, opts ...Option) *Store {
	s := &Store{
		storage:     st,
		provisioner: provisioner,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the active identity, provisioning one if none is
// stored. Idempotent within a session: once resolved, repeat calls
// return the cached value without touching storage or the network.
func (s *Store) Resolve(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved != "" {
		return s.resolved, nil
	}

	stored, ok, err := s.storage.LoadUserID()
	if err != nil {
		return "", fmt.Errorf("read identity storage: %w", err)
	}
	if ok {
		s.resolved = stored
		return stored, nil
	}

	id, err := s.provision(ctx)
	if err != nil {
		return "", err
	}
	if err := s.storage.SaveUserID(id); err != nil {
		return "", fmt.Errorf("persist identity: %w", err)
	}
	s.resolved = id
	return id, nil
}

// Validate adopts a user-supplied identity after the backend confirms
// it exists. Storage is written only on success.
func (s *Store) Validate(ctx context.Context, candidate string) (string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", ErrInvalidIdentity
	}
	if s.provisioner == nil {
		return "", ErrNoProvisioner
	}
	if err := s.provisioner.ValidateIdentity(ctx, candidate); err != nil {
		if api.IsKind(err, api.KindInvalidIdentity) || api.IsKind(err, api.KindNotFound) {
			return "", fmt.Errorf("%w: %s", ErrInvalidIdentity, candidate)
		}
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.SaveUserID(candidate); err != nil {
		return "", fmt.Errorf("persist identity: %w", err)
	}
	s.resolved = candidate
	return candidate, nil
}

func (s *Store) provision(ctx context.Context) (string, error) {
	if s.provisioner == nil {
		if s.localFallback {
			return s.generateLocal(), nil
		}
		return "", ErrNoProvisioner
	}

	id, err := s.provisioner.ProvisionIdentity(ctx)
	if err != nil {
		if s.localFallback && api.IsKind(err, api.KindServiceUnavailable) {
			local := s.generateLocal()
			log.Printf("identity provisioning unavailable, generated local id %s", local)
			return local, nil
		}
		return "", err
	}
	return id, nil
}

// generateLocal builds a 10-digit identifier the way the original
// backend minted them. Not a security credential.
func (s *Store) generateLocal() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return fmt.Sprintf("%010d", s.rng.Int63n(10_000_000_000))
}
