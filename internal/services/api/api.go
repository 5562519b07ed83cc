// Package api provides the HTTP API for the application
package api

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	phttp "github.com/BlueFrogAnalytics/SamBot/internal/platform/net/http"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/module"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/swaggerkit"

	apialerts "github.com/BlueFrogAnalytics/SamBot/internal/services/api/alerts/module"
	metamod "github.com/BlueFrogAnalytics/SamBot/internal/services/api/meta/module"
	oppmod "github.com/BlueFrogAnalytics/SamBot/internal/services/api/opportunities/module"
	apirules "github.com/BlueFrogAnalytics/SamBot/internal/services/api/rules/module"
	runsmod "github.com/BlueFrogAnalytics/SamBot/internal/services/api/runs/module"

	// Worker modules own the engine ports the admin surfaces ride on
	alertsmod "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/module"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
	rulesmod "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	// Construct the WORKER alerts module first and extract its ports
	workerAlerts := alertsmod.New(deps)
	ap := module.MustPortsOf[alertsmod.Ports](workerAlerts)

	// The rules engine announces fresh matches through the notifier
	workerRules := rulesmod.New(deps, modkit.WithPorts(rulesdom.Ports{
		Notifier: ap.Notifier,
	}))
	rp := module.MustPortsOf[rulesmod.Ports](workerRules)

	mods := []module.Module{
		metamod.New(deps),
		oppmod.New(deps),
		runsmod.New(deps),
		workerRules, // include workers so their ports are registered
		workerAlerts,
		apirules.New(deps, modkit.WithPorts(apirules.Ports{
			Admin:     rp.Admin,
			Evaluator: rp.Evaluator,
		})),
		apialerts.New(deps, modkit.WithPorts(apialerts.Ports{
			Admin: ap.Admin,
		})),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
