// Package service implements rule management and evaluation: criteria
// trees and raw predicates compiled to SQL, matches recorded once per
// pair, alert events emitted for fresh matches only.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BlueFrogAnalytics/SamBot/internal/core/criteria"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

// Config holds configuration options for the rule engine
type Config struct {
	MatchLimit int // page cap for match listings; <=0 -> 100
}

// Service implements rule administration and evaluation
type Service struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[domain.StorageRepo]
	Notifier domain.NotifierPort // nil drops alert events
	Cfg      Config

	now func() time.Time
}

// New constructs the rule engine or panics on missing hard deps
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], notifier domain.NotifierPort, cfg Config) *Service {
	if db == nil {
		panic("rules.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("rules.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder, Notifier: notifier, Cfg: cfg, now: time.Now}
}

// Create validates and stores a new rule. Criteria definitions are
// canonicalized before storage; anything that fails to compile never
// reaches the table
func (s *Service) Create(ctx context.Context, d domain.Draft) (domain.Rule, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return domain.Rule{}, perr.New(perr.ErrorCodeValidation, "rules: name is required")
	}
	def, err := normalizeDefinition(d.Kind, d.Definition)
	if err != nil {
		return domain.Rule{}, err
	}

	now := s.now().UTC()
	r := domain.Rule{
		ID:          uuid.NewString(),
		Name:        name,
		Kind:        d.Kind,
		Definition:  def,
		Description: strings.TrimSpace(d.Description),
		IsActive:    d.IsActive == nil || *d.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo().Insert(ctx, r); err != nil {
		return domain.Rule{}, err
	}

	logger.C(ctx).Info().
		Str("rule_id", r.ID).Str("name", r.Name).Str("kind", string(r.Kind)).
		Msg("rules: rule created")
	return r, nil
}

// Update applies a metadata patch and returns the stored rule
func (s *Service) Update(ctx context.Context, id string, p domain.Patch) (domain.Rule, error) {
	r, ok, err := s.repo().Get(ctx, id)
	if err != nil {
		return domain.Rule{}, err
	}
	if !ok {
		return domain.Rule{}, perr.Newf(perr.ErrorCodeNotFound, "rules: rule %s not found", id)
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return domain.Rule{}, perr.New(perr.ErrorCodeValidation, "rules: name is required")
		}
		r.Name = name
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	r.UpdatedAt = s.now().UTC()

	if err := s.repo().UpdateMeta(ctx, r); err != nil {
		return domain.Rule{}, err
	}
	return r, nil
}

// Get returns one rule by id
func (s *Service) Get(ctx context.Context, id string) (domain.Rule, error) {
	r, ok, err := s.repo().Get(ctx, id)
	if err != nil {
		return domain.Rule{}, err
	}
	if !ok {
		return domain.Rule{}, perr.Newf(perr.ErrorCodeNotFound, "rules: rule %s not found", id)
	}
	return r, nil
}

// List returns every rule, active or not, ordered by name
func (s *Service) List(ctx context.Context) ([]domain.Rule, error) {
	return s.repo().List(ctx, false)
}

// Matches lists a rule's matches newest first
func (s *Service) Matches(ctx context.Context, ruleID string, limit int, before time.Time) ([]domain.Match, error) {
	lim := s.matchLimit()
	if limit <= 0 || limit > lim {
		limit = lim
	}
	return s.repo().Matches(ctx, ruleID, limit, before)
}

// normalizeDefinition validates a draft definition and returns its stored
// form. Criteria trees go through parse, validate, and a dry compile so
// nothing invalid ever reaches evaluation; raw fragments pass the
// statement screen
func normalizeDefinition(kind domain.RuleKind, raw json.RawMessage) (json.RawMessage, error) {
	switch kind {
	case domain.KindCriteria:
		node, err := criteria.Parse(raw)
		if err != nil {
			return nil, err
		}
		if _, _, err := criteria.Compile(node, criteria.Options{}); err != nil {
			return nil, err
		}
		return criteria.Marshal(node)
	case domain.KindRaw:
		frag, err := rawFragment(raw)
		if err != nil {
			return nil, err
		}
		if err := criteria.ValidateRaw(frag); err != nil {
			return nil, err
		}
		return json.Marshal(frag)
	default:
		return nil, perr.Newf(perr.ErrorCodeValidation, "rules: unknown kind %q", kind)
	}
}

// rawFragment unpacks the JSON-quoted WHERE fragment of a raw rule
func rawFragment(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeRuleCompile, "rules: raw definition must be a JSON string")
	}
	return s, nil
}

func (s *Service) repo() domain.StorageRepo {
	return s.Binder.Bind(s.DB)
}

func (s *Service) matchLimit() int {
	if s.Cfg.MatchLimit <= 0 {
		return 100
	}
	return s.Cfg.MatchLimit
}
