package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/module"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"

	alertsmod "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/module"
	alertsrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/repo"
	ingestrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/repo"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
	rulesmod "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/module"
	rulesrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/repo"
	sweepsrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/repo"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SAMBOT_PGSQL_")

	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		AppName: "sambot-rules",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fMode = flag.String("mode", "eval", "eval: incremental pass; full: ignore cutoffs and rescan everything")
		fRule = flag.String("rule", "", "evaluate a single rule, by id or name, instead of all active rules")
	)
	flag.Parse()

	full := false
	switch *fMode {
	case "eval":
	case "full":
		full = true
	default:
		l.Panic().Str("mode", *fMode).Msg("-mode must be eval or full")
	}

	if err := ensureSchemas(context.Background(), st); err != nil {
		l.Panic().Err(err).Msg("schema bootstrap failed")
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	wAlerts := alertsmod.New(deps)
	ap := module.MustPortsOf[alertsmod.Ports](wAlerts)

	wRules := rulesmod.New(deps, modkit.WithPorts(rulesdom.Ports{
		Notifier: ap.Notifier,
	}))

	module.Register(wAlerts.Name(), wAlerts.Ports())
	module.Register(wRules.Name(), wRules.Ports())

	rp := module.MustPortsOf[rulesmod.Ports](wRules)
	ev := rp.Evaluator

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *fRule != "" {
		id, err := resolveRule(ctx, rp.Admin, *fRule)
		if err != nil {
			l.Fatal().Err(err).Str("rule", *fRule).Msg("rule lookup failed")
		}
		rep, err := ev.EvaluateRule(ctx, id, full)
		if err != nil {
			l.Fatal().Err(err).Str("rule_id", id).Msg("evaluation failed")
		}
		logReport(l, rep)
		return
	}

	reports, err := ev.EvaluateAll(ctx, full)
	if err != nil {
		l.Fatal().Err(err).Msg("evaluation failed")
	}
	for _, rep := range reports {
		logReport(l, rep)
	}
	l.Info().Int("rules", len(reports)).Msg("evaluation finished")
}

// resolveRule accepts a rule id or its unique name
func resolveRule(ctx context.Context, admin rulesdom.AdminPort, key string) (string, error) {
	if _, err := uuid.Parse(key); err == nil {
		return key, nil
	}
	rs, err := admin.List(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range rs {
		if r.Name == key {
			return r.ID, nil
		}
	}
	return "", perr.NotFoundf("rules: no rule named %q", key)
}

func logReport(l *logger.Logger, rep rulesdom.Report) {
	l.Info().
		Str("rule_id", rep.RuleID).
		Str("rule", rep.RuleName).
		Str("mode", rep.Mode).
		Int("candidates", rep.Candidates).
		Int("new_matches", rep.NewMatches).
		Msg("rule evaluated")
}

// ensureSchemas creates missing tables in dependency order
func ensureSchemas(ctx context.Context, st *store.Store) error {
	if err := ingestrepo.EnsureSchema(ctx, st.PG); err != nil {
		return err
	}
	if err := sweepsrepo.EnsureSchema(ctx, st.PG); err != nil {
		return err
	}
	if err := rulesrepo.EnsureSchema(ctx, st.PG); err != nil {
		return err
	}
	return alertsrepo.EnsureSchema(ctx, st.PG)
}
