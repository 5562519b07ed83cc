package service

import (
	"context"

	"github.com/BlueFrogAnalytics/SamBot/internal/core/criteria"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

// EvaluateActive evaluates every active rule incrementally
func (s *Service) EvaluateActive(ctx context.Context) error {
	_, err := s.EvaluateAll(ctx, false)
	return err
}

// EvaluateAll evaluates every active rule. A failing rule is logged and
// skipped; the returned error covers listing and cancellation only
func (s *Service) EvaluateAll(ctx context.Context, full bool) ([]domain.Report, error) {
	rules, err := s.repo().List(ctx, true)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.Report, 0, len(rules))
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := s.evaluate(ctx, r, full)
		if err != nil {
			logger.C(ctx).Error().Err(err).
				Str("rule_id", r.ID).Str("name", r.Name).
				Msg("rules: evaluation failed, rule skipped")
			continue
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// EvaluateRule evaluates one rule regardless of its active flag
func (s *Service) EvaluateRule(ctx context.Context, id string, full bool) (domain.Report, error) {
	r, ok, err := s.repo().Get(ctx, id)
	if err != nil {
		return domain.Report{}, err
	}
	if !ok {
		return domain.Report{}, perr.Newf(perr.ErrorCodeNotFound, "rules: rule %s not found", id)
	}
	return s.evaluate(ctx, r, full)
}

// evaluate runs one rule and records fresh matches. The candidate query,
// match inserts, and the evaluation stamp share one transaction, so the
// incremental cutoff never skips a window that did not commit
func (s *Service) evaluate(ctx context.Context, r domain.Rule, full bool) (domain.Report, error) {
	// snapshot the stamp before querying; changes landing mid-scan are
	// re-checked by the next incremental pass
	snapAt := s.now().UTC()

	opts := criteria.Options{}
	mode := "full"
	if !full && r.LastEvaluatedAt != nil {
		opts.ChangedSince = *r.LastEvaluatedAt
		mode = "incremental"
	}

	sqlText, args, err := compileRule(r, opts)
	if err != nil {
		return domain.Report{}, err
	}

	rep := domain.Report{RuleID: r.ID, RuleName: r.Name, Mode: mode}
	var fresh []domain.AlertEvent

	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)

		ids, err := repo.Candidates(ctx, sqlText, args)
		if err != nil {
			return err
		}
		rep.Candidates = len(ids)

		for _, id := range ids {
			created, err := repo.InsertMatch(ctx, r.ID, id, snapAt)
			if err != nil {
				return err
			}
			if created {
				rep.NewMatches++
				fresh = append(fresh, domain.AlertEvent{
					RuleID:    r.ID,
					RuleName:  r.Name,
					NoticeID:  id,
					MatchedAt: snapAt,
				})
			}
		}
		return repo.SetEvaluated(ctx, r.ID, snapAt)
	})
	if err != nil {
		return domain.Report{}, err
	}

	logger.C(ctx).Info().
		Str("rule_id", r.ID).Str("mode", mode).
		Int("candidates", rep.Candidates).Int("new_matches", rep.NewMatches).
		Msg("rules: rule evaluated")

	// events fire only for committed matches
	if s.Notifier != nil && len(fresh) > 0 {
		if err := s.Notifier.Emit(ctx, fresh); err != nil {
			logger.C(ctx).Warn().Err(err).
				Str("rule_id", r.ID).Int("events", len(fresh)).
				Msg("rules: alert emission failed")
		}
	}
	return rep, nil
}

// compileRule turns a stored definition into a runnable candidate query
func compileRule(r domain.Rule, opts criteria.Options) (string, []any, error) {
	switch r.Kind {
	case domain.KindCriteria:
		node, err := criteria.Parse(r.Definition)
		if err != nil {
			return "", nil, err
		}
		return criteria.Compile(node, opts)
	case domain.KindRaw:
		frag, err := rawFragment(r.Definition)
		if err != nil {
			return "", nil, err
		}
		return criteria.CompileRaw(frag, opts)
	default:
		return "", nil, perr.Newf(perr.ErrorCodeRuleCompile, "rules: unknown kind %q", r.Kind)
	}
}

var _ domain.AdminPort = (*Service)(nil)
var _ domain.EvaluatorPort = (*Service)(nil)
