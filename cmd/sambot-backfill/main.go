package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/module"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
	activitymod "github.com/BlueFrogAnalytics/SamBot/internal/services/activity/module"
	activitysvc "github.com/BlueFrogAnalytics/SamBot/internal/services/activity/service"
	alertsmod "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/module"
	alertsrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/repo"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/budget"
	ingestdom "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
	ingestmod "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/module"
	ingestrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/repo"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
	rulesmod "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/module"
	rulesrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/repo"
	sweepsdom "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
	sweepsmod "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/module"
	sweepsrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/repo"
)

const dayFormat = "2006-01-02"

func main() {
	root := config.New()
	pgCfg := root.Prefix("SAMBOT_PGSQL_")
	chCfg := root.Prefix("SAMBOT_CLICKHOUSE_")
	samCfg := root.Prefix("SAMBOT_SAM_")

	l := logger.Get()

	chEnabled := chCfg.MayBool("ENABLED", false)
	chURL := ""
	if chEnabled {
		chURL = chCfg.MustString("DBURL")
	}

	st, err := store.Open(context.Background(), store.Config{
		AppName: "sambot-backfill",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
		CH: store.CHConfig{
			Enabled:    chEnabled,
			URL:        chURL,
			ClientName: "sambot",
			ClientTag:  "backfill",
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
		fMode    = flag.String("mode", "run", "run: walk cold windows backward; plan: preview windows without sweeping")
		fWindows = flag.Int("windows", 5, "window count for -mode=plan")
		fFrom    = flag.String("from", "", "explicit range start (YYYY-MM-DD); requires -to")
		fTo      = flag.String("to", "", "explicit range end (YYYY-MM-DD); requires -from")
	)
	flag.Parse()

	if (*fFrom == "") != (*fTo == "") {
		l.Panic().Msg("-from and -to must be given together")
	}

	if err := ensureSchemas(context.Background(), st); err != nil {
		l.Panic().Err(err).Msg("schema bootstrap failed")
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	client := sam.NewClient(sam.Options{
		BaseURL: samCfg.MayString("BASE_URL", ""),
		APIKey:  samCfg.MustString("API_KEY"),
		Timeout: samCfg.MayDuration("TIMEOUT", 30*time.Second),
	})
	gov := budget.NewGovernor(budget.FromConfig(root))

	ing := ingestmod.New(deps, modkit.WithPorts(ingestdom.Ports{
		Gateway: client,
		Budget:  gov,
	}))
	ip := module.MustPortsOf[ingestmod.Ports](ing)

	wAlerts := alertsmod.New(deps)
	ap := module.MustPortsOf[alertsmod.Ports](wAlerts)

	wRules := rulesmod.New(deps, modkit.WithPorts(rulesdom.Ports{
		Notifier: ap.Notifier,
	}))
	rp := module.MustPortsOf[rulesmod.Ports](wRules)

	var mirror sweepsdom.MirrorPort
	if st.CH != nil {
		am := activitymod.New(deps)
		module.Register(am.Name(), am.Ports())
		mirror = module.MustPortsOf[activitymod.Ports](am).Mirror
	}

	sw := sweepsmod.New(deps, modkit.WithPorts(sweepsdom.Ports{
		Search:   client,
		Governor: gov,
		Detector: ip.Detector,
		Follower: ip.Follower,
		Mirror:   mirror,
		Rules:    rp.Evaluator,
	}))

	module.Register(ing.Name(), ing.Ports())
	module.Register(wAlerts.Name(), wAlerts.Ports())
	module.Register(wRules.Name(), wRules.Ports())
	module.Register(sw.Name(), sw.Ports())

	runner := module.MustPortsOf[sweepsmod.Ports](sw).Runner

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *fMode {
	case "plan":
		windows, err := runner.PlanCold(ctx, *fWindows)
		if err != nil {
			l.Fatal().Err(err).Msg("plan failed")
		}
		for i, w := range windows {
			l.Info().
				Int("window", i+1).
				Str("from", w.From.Format(dayFormat)).
				Str("to", w.To.Format(dayFormat)).
				Msg("cold window")
		}
		if len(windows) == 0 {
			l.Info().Msg("backfill floor reached; nothing to plan")
		}

	case "run":
		if *fFrom != "" {
			from, err := time.Parse(dayFormat, *fFrom)
			if err != nil {
				l.Panic().Str("from", *fFrom).Msg("-from must be YYYY-MM-DD")
			}
			to, err := time.Parse(dayFormat, *fTo)
			if err != nil {
				l.Panic().Str("to", *fTo).Msg("-to must be YYYY-MM-DD")
			}
			if to.Before(from) {
				l.Panic().Str("from", *fFrom).Str("to", *fTo).Msg("-to precedes -from")
			}
			if err := runner.RunRange(ctx, from, to); err != nil {
				l.Fatal().Err(err).Msg("range sweep failed")
			}
			l.Info().Str("from", *fFrom).Str("to", *fTo).Msg("range sweep finished")
			return
		}
		if err := runner.RunBackfill(ctx); err != nil {
			l.Fatal().Err(err).Msg("backfill stopped")
		}
		l.Info().Msg("backfill finished")

	default:
		l.Panic().Str("mode", *fMode).Msg("-mode must be run or plan")
	}
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
	if err := alertsrepo.EnsureSchema(ctx, st.PG); err != nil {
		return err
	}
	if st.CH != nil {
		return activitysvc.EnsureSchema(ctx, st.CH)
	}
	return nil
}
