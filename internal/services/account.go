package services

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/repositories/accounts"
	"github.com/google/uuid"
)

// AccountPatch carries optional edits; nil fields are left alone.
type AccountPatch struct {
	DisplayName *string
	Phone       *string
}

// AccountService manages accounts on top of an accounts.Repository.
type AccountService struct {
	repo   accounts.Repository
	mirror *Mirror
	clock  clock.Clock
	log    logging.Logger
}

// NewAccountService wires the service. mirror may be nil, in which case
// events are only stored on the account.
func NewAccountService(repo accounts.Repository, mirror *Mirror, clk clock.Clock, log logging.Logger) *AccountService {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &AccountService{repo: repo, mirror: mirror, clock: clk, log: log.With("component", "accounts")}
}

// List returns all accounts in file order.
func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	return s.repo.List(ctx)
}

// Get returns the account with id.
func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// Create adds an account with trimmed fields.
func (s *AccountService) Create(ctx context.Context, id, displayName, phone string) (models.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Account{}, ErrEmptyAccountID
	}
	a := models.NewAccount(id, strings.TrimSpace(displayName), strings.TrimSpace(phone), s.clock.Now())
	if err := s.repo.Create(ctx, a); err != nil {
		return models.Account{}, err
	}
	s.log.Info(ctx, "account created", "account", id)
	return a, nil
}

// Edit applies p to the account.
func (s *AccountService) Edit(ctx context.Context, id string, p AccountPatch) (models.Account, error) {
	return s.repo.Update(ctx, id, func(a *models.Account) error {
		if p.DisplayName != nil {
			a.DisplayName = strings.TrimSpace(*p.DisplayName)
		}
		if p.Phone != nil {
			a.Phone = strings.TrimSpace(*p.Phone)
		}
		a.Touch(s.clock.Now())
		return nil
	})
}

// Delete removes the account.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "account deleted", "account", id)
	return nil
}

// BindPhone stores the freshly bound phone and resets the quota.
func (s *AccountService) BindPhone(ctx context.Context, id, phone string) (models.Account, error) {
	return s.repo.Update(ctx, id, func(a *models.Account) error {
		a.Phone = phone
		a.ResetQuota()
		a.Touch(s.clock.Now())
		return nil
	})
}

// RecordSubmission counts one submission for today.
func (s *AccountService) RecordSubmission(ctx context.Context, id string) (models.Account, error) {
	return s.repo.Update(ctx, id, func(a *models.Account) error {
		now := s.clock.Now()
		a.CountSubmission(now)
		a.Touch(now)
		return nil
	})
}

// AppendEvent stores a copy of ev on the account, filling id, created_at
// and wechat_id when missing, then hands it to the mirror.
func (s *AccountService) AppendEvent(ctx context.Context, id string, ev models.Event) (models.Account, error) {
	now := s.clock.Now()
	stored := models.Event{}
	maps.Copy(stored, ev)
	setDefault(stored, models.EventKeyID, uuid.NewString())
	setDefault(stored, models.EventKeyWechatID, id)
	setDefault(stored, models.EventKeyCreatedAt, models.FormatTimestamp(now))

	a, err := s.repo.Update(ctx, id, func(a *models.Account) error {
		a.Events = append(a.Events, stored)
		a.Touch(now)
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}

	if s.mirror != nil && !s.mirror.Submit(maps.Clone(stored)) {
		s.log.Warn(ctx, "event not mirrored", "account", id, "event", fmt.Sprint(stored[models.EventKeyID]))
	}
	return a, nil
}

// Close drains the mirror.
func (s *AccountService) Close() {
	if s.mirror != nil {
		s.mirror.Close()
	}
}

func setDefault(ev models.Event, key string, val any) {
	if v, ok := ev[key]; !ok || v == nil || v == "" {
		ev[key] = val
	}
}
