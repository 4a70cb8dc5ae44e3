package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gdrive/internal/accounts"
	"gdrive/internal/config"
	"gdrive/internal/gdrive"
	"gdrive/internal/identification"
	"gdrive/internal/logging"
	"gdrive/internal/playback"
	"gdrive/internal/services"
	"gdrive/internal/titlecache"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	requestID  string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrValidation, "cli", "load config", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// runContext annotates the command's context with the invocation's
// correlation ID and operation name for log enrichment.
func (c *commandContext) runContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.requestID != "" {
		ctx = services.WithRequestID(ctx, c.requestID)
	}
	return services.WithOperation(ctx, cmd.CommandPath())
}

func (c *commandContext) openStore() (*accounts.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return accounts.NewStore(cfg.Accounts.StorePath,
		accounts.WithLogger(c.loggerValue()),
		accounts.WithLockTimeout(cfg.LockTimeout()))
}

func (c *commandContext) driveClient() *gdrive.Client {
	return gdrive.NewClient(c.configValue(), c.loggerValue())
}

func (c *commandContext) selector() (*accounts.Selector, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return accounts.NewSelector(c.configValue(), store, c.driveClient(), c.loggerValue()), nil
}

func (c *commandContext) openTitleCache(ctx context.Context) (*titlecache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return titlecache.Open(ctx, cfg.TitleCache.Path, c.loggerValue())
}

// titleResolver returns nil when TMDB is not configured so naming still
// answers from the title cache and falls back to the decorated basename.
func (c *commandContext) titleResolver() identification.TitleResolver {
	resolver, err := identification.NewResolverFromConfig(c.configValue(), c.loggerValue())
	if err != nil {
		logging.WarnWithContext(c.loggerValue(), "tmdb unavailable; using cached titles only", "tmdb_unconfigured",
			logging.String(logging.FieldComponent, "cli"),
			logging.String(logging.FieldErrorHint, "set tmdb.api_key or TMDB_API_KEY"),
			logging.String(logging.FieldImpact, "uncached titles keep their remote names"),
			logging.Error(err))
		return nil
	}
	return resolver
}

func (c *commandContext) player() (*playback.Player, error) {
	selector, err := c.selector()
	if err != nil {
		return nil, err
	}
	cfg := c.configValue()
	client := playback.NewClient(cfg, c.loggerValue())
	return playback.NewPlayer(cfg, selector, c.driveClient(), client, c.loggerValue()), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
