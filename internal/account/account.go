// Package account signs users in and out and keeps the profile records in
// step with the sync coordinator.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/identity"
	"github.com/sadopc/studytrack/internal/schema"
)

// Provider is the interactive side of an identity provider.
type Provider interface {
	SignIn(email, name string) (identity.Principal, error)
	SignOut() error
}

type Profile struct {
	Username string
	Email    string
	UID      string
	LoggedIn bool
}

type Service struct {
	provider Provider
	storage  cloudsync.Storage
	ready    *cloudsync.Readiness
	log      *slog.Logger
}

func New(p Provider, storage cloudsync.Storage, ready *cloudsync.Readiness, log *slog.Logger) (*Service, error) {
	if p == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if storage == nil {
		return nil, errors.New("storage cannot be nil")
	}
	if ready == nil {
		return nil, errors.New("readiness cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{provider: p, storage: storage, ready: ready, log: log}, nil
}

// Login signs in and, once the first merge for the account has settled,
// records the profile so that it lands in the account's own document.
func (s *Service) Login(ctx context.Context, email, name string) (identity.Principal, error) {
	p, err := s.provider.SignIn(email, name)
	if err != nil {
		return identity.Principal{}, err
	}
	if err := s.ready.Wait(ctx); err != nil {
		return p, fmt.Errorf("wait for sync: %w", err)
	}

	s.storage.Set(schema.KeyUsername, p.Name)
	s.storage.Set(schema.KeyEmail, p.Email)
	s.storage.Set(schema.KeyUID, p.UID)
	s.storage.Set(schema.KeyIsLoggedIn, true)
	s.log.Info("signed in", "uid", p.UID)
	return p, nil
}

// Logout signs out. The cleared profile is written locally only, since
// mirroring stops with the sign-out.
func (s *Service) Logout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.provider.SignOut(); err != nil {
		return err
	}
	s.storage.Set(schema.KeyIsLoggedIn, false)
	s.storage.Set(schema.KeyUsername, "")
	s.log.Info("signed out")
	return nil
}

func (s *Service) Profile() Profile {
	return Load(s.storage)
}

// Load reads the profile records from storage.
func Load(storage cloudsync.Storage) Profile {
	var p Profile
	p.Username, _ = storage.Get(schema.KeyUsername, "").(string)
	p.Email, _ = storage.Get(schema.KeyEmail, "").(string)
	p.UID, _ = storage.Get(schema.KeyUID, "").(string)
	p.LoggedIn, _ = storage.Get(schema.KeyIsLoggedIn, false).(bool)
	return p
}
