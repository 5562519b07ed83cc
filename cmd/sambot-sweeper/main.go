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
		AppName: "sambot-sweeper",
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
			ClientTag:  "sweeper",
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
		fMode = flag.String("mode", "once", "once: run one sweep and exit; serve: continuous hot+warm loops")
		fTier = flag.String("tier", "hot", "tier for -mode=once: hot or warm")
	)
	flag.Parse()

	if err := ensureSchemas(context.Background(), st); err != nil {
		l.Panic().Err(err).Msg("schema bootstrap failed")
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	// One upstream client and one governor; every tier shares them
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
	case "once":
		tier := sweepsdom.Tier(*fTier)
		if tier != sweepsdom.TierHot && tier != sweepsdom.TierWarm {
			l.Panic().Str("tier", *fTier).Msg("-tier must be hot or warm")
		}
		run, err := runner.RunTier(ctx, tier)
		if err != nil {
			l.Fatal().Err(err).Str("run_id", run.ID).Msg("sweep failed")
		}
		l.Info().Str("run_id", run.ID).Str("status", string(run.Status)).Msg("sweep finished")

	case "serve":
		if err := runner.Serve(ctx); err != nil {
			l.Fatal().Err(err).Msg("sweeper stopped")
		}

	default:
		l.Panic().Str("mode", *fMode).Msg("-mode must be once or serve")
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
