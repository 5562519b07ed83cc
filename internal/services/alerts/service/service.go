// Package service manages alert destinations and fans fresh rule
// matches out to them. The console method is the only working sink;
// webhook and transport destinations get delivery bookkeeping so an
// external shipper can pick them up.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/domain"
)

// Service implements destination administration and alert emission
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]

	now func() time.Time
}

// New constructs the alert service or panics on missing hard deps
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo]) *Service {
	if db == nil {
		panic("alerts.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("alerts.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder, now: time.Now}
}

// Create validates and stores a new destination
func (s *Service) Create(ctx context.Context, d domain.Draft) (domain.Destination, error) {
	if !d.Method.Valid() {
		return domain.Destination{}, perr.Newf(perr.ErrorCodeValidation, "alerts: unknown method %q", d.Method)
	}
	target, err := normalizeTarget(d.Method, d.Target)
	if err != nil {
		return domain.Destination{}, err
	}

	dest := domain.Destination{
		ID:        uuid.NewString(),
		RuleID:    d.RuleID,
		Method:    d.Method,
		Target:    target,
		IsActive:  d.IsActive == nil || *d.IsActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo().Insert(ctx, dest); err != nil {
		return domain.Destination{}, err
	}

	logger.C(ctx).Info().
		Str("destination_id", dest.ID).Str("method", string(dest.Method)).
		Msg("alerts: destination created")
	return dest, nil
}

// Update applies a patch and returns the stored destination
func (s *Service) Update(ctx context.Context, id string, p domain.Patch) (domain.Destination, error) {
	dest, ok, err := s.repo().Get(ctx, id)
	if err != nil {
		return domain.Destination{}, err
	}
	if !ok {
		return domain.Destination{}, perr.Newf(perr.ErrorCodeNotFound, "alerts: destination %s not found", id)
	}

	if p.Target != nil {
		target, err := normalizeTarget(dest.Method, p.Target)
		if err != nil {
			return domain.Destination{}, err
		}
		dest.Target = target
	}
	if p.IsActive != nil {
		dest.IsActive = *p.IsActive
	}

	if err := s.repo().Update(ctx, dest); err != nil {
		return domain.Destination{}, err
	}
	return dest, nil
}

// Get returns one destination by id
func (s *Service) Get(ctx context.Context, id string) (domain.Destination, error) {
	dest, ok, err := s.repo().Get(ctx, id)
	if err != nil {
		return domain.Destination{}, err
	}
	if !ok {
		return domain.Destination{}, perr.Newf(perr.ErrorCodeNotFound, "alerts: destination %s not found", id)
	}
	return dest, nil
}

// List returns every destination oldest first
func (s *Service) List(ctx context.Context) ([]domain.Destination, error) {
	return s.repo().List(ctx)
}

// Delete removes a destination and its delivery history
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo().Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return perr.Newf(perr.ErrorCodeNotFound, "alerts: destination %s not found", id)
	}
	logger.C(ctx).Info().Str("destination_id", id).Msg("alerts: destination deleted")
	return nil
}

// normalizeTarget screens a destination target for its method. Webhook
// targets need a url; transport targets need some descriptor; console
// targets may be empty
func normalizeTarget(method domain.Method, raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "alerts: target must be a JSON object")
	}

	switch method {
	case domain.MethodWebhook:
		var url string
		if err := json.Unmarshal(obj["url"], &url); err != nil || url == "" {
			return nil, perr.New(perr.ErrorCodeValidation, "alerts: webhook target needs a url")
		}
	case domain.MethodTransport:
		if len(obj) == 0 {
			return nil, perr.New(perr.ErrorCodeValidation, "alerts: transport target needs a descriptor")
		}
	}
	return raw, nil
}

func (s *Service) repo() domain.StorageRepo {
	return s.Binder.Bind(s.DB)
}

var _ domain.AdminPort = (*Service)(nil)
