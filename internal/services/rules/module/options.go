package module

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/service"
)

// Options holds configuration options for the rule engine
type Options struct {
	MatchLimit int
}

// FromConfig reads the rule options from config with SAMBOT_ prefix
func FromConfig(cfg config.Conf) Options {
	ru := cfg.Prefix("SAMBOT_")
	return Options{
		MatchLimit: ru.MayInt("MATCH_LIMIT", 100),
	}
}

// Config converts options to the service config
func (o Options) Config() service.Config {
	return service.Config{MatchLimit: o.MatchLimit}
}
