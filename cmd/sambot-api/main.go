// @title         SamBot API
// @version       0.1.0
// @description   Query, rule, and run reporting endpoints for the SAM.gov watcher

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	phttp "github.com/BlueFrogAnalytics/SamBot/internal/platform/net/http"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"

	activitysvc "github.com/BlueFrogAnalytics/SamBot/internal/services/activity/service"
	alertsrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/repo"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api"
	ingestrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/repo"
	rulesrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/repo"
	sweepsrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/repo"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("SAMBOT_API_")
	pgCfg := root.Prefix("SAMBOT_PGSQL_")
	chCfg := root.Prefix("SAMBOT_CLICKHOUSE_")

	l := logger.Get()

	chEnabled := chCfg.MayBool("ENABLED", false)
	chURL := ""
	if chEnabled {
		chURL = chCfg.MustString("DBURL")
	}

	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "sambot-api",
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
				ClientTag:  "api",
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if err := ensureSchemas(context.Background(), st); err != nil {
		l.Panic().Err(err).Msg("schema bootstrap failed")
	}

	// http server (reads SAMBOT_API_PORT)
	srv := phttp.NewServer(apiCfg)

	// mount our API; modules read their own SAMBOT_* scopes off the root
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
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
