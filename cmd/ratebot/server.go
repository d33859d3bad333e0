package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/wggdev/ratebot/discord"
	"github.com/wggdev/ratebot/moderation/clock"
	"github.com/wggdev/ratebot/moderation/commands"
	"github.com/wggdev/ratebot/moderation/configstore"
	"github.com/wggdev/ratebot/moderation/engine"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Size of the buffer between gateway ingestion and the moderation engine
const messageQueueSize = 1024

type Server struct {
	logger        *slog.Logger
	client        *discord.Client
	engine        *engine.Engine
	commands      *commands.Handler
	clientID      string
	guildIDs      []string
	metricsListen string
}

type StoreConfig struct {
	ConfigFile string
	RedisURL   string
	Logger     *slog.Logger
}

type Config struct {
	StoreConfig
	DiscordToken    string
	ClientID        string
	GuildIDs        []string
	SlackWebhookURL string
	MetricsListen   string
}

func (c StoreConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return c.Logger
}

// Opens the settings backend the daemon reads through: redis (behind a short-lived read cache) when configured, otherwise the JSON settings file.
func openStore(config StoreConfig) (configstore.Store, error) {
	logger := config.logger()
	if config.RedisURL != "" {
		rs, err := configstore.NewRedisStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis configstore: %v", err)
		}
		logger.Info("using redis settings store")
		return configstore.NewCachedStore(rs, 10_000, 30*time.Second), nil
	}
	fs, err := configstore.NewFileStore(config.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("initializing settings file: %v", err)
	}
	logger.Info("using settings file", "path", config.ConfigFile)
	return fs, nil
}

type exportStore interface {
	configstore.Store
	configstore.Exporter
}

// Like openStore, but without the read cache, for whole-document dump and import.
func openExporter(config StoreConfig) (exportStore, error) {
	if config.RedisURL != "" {
		rs, err := configstore.NewRedisStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis configstore: %v", err)
		}
		return rs, nil
	}
	fs, err := configstore.NewFileStore(config.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("initializing settings file: %v", err)
	}
	return fs, nil
}

// Discord embeds always; log notifications are also mirrored to slack when a webhook is configured, capped so a raid can't flood the webhook.
func buildNotifier(primary notify.Sink, slackWebhookURL string) notify.Sink {
	if slackWebhookURL == "" {
		return primary
	}
	slack := notify.NewLimitedSink(notify.NewSlackSink(slackWebhookURL, notify.DefaultSendTimeout), rate.Every(time.Second), 10)
	slack.Filter = func(n notify.Notification) bool { return n.Kind.IsLog() }
	return notify.MultiSink{primary, slack}
}

func NewServer(config Config) (*Server, error) {
	logger := config.logger()
	config.Logger = logger

	store, err := openStore(config.StoreConfig)
	if err != nil {
		return nil, err
	}

	client, err := discord.NewClient(config.DiscordToken, logger)
	if err != nil {
		return nil, err
	}

	notifier := buildNotifier(discord.NewSink(client), config.SlackWebhookURL)
	if config.SlackWebhookURL != "" {
		logger.Info("mirroring moderation logs to slack")
	}

	eng := engine.NewEngine(logger, store, client, notifier, clock.Real{})

	s := &Server{
		logger:        logger,
		client:        client,
		engine:        eng,
		commands:      commands.NewHandler(logger, store, notifier),
		clientID:      config.ClientID,
		guildIDs:      config.GuildIDs,
		metricsListen: config.MetricsListen,
	}
	return s, nil
}

func (s *Server) registerCommands(ctx context.Context) error {
	_, span := tracer.Start(ctx, "registerCommands")
	defer span.End()

	appID := s.clientID
	if appID == "" && s.client.Session.State != nil && s.client.Session.State.User != nil {
		appID = s.client.Session.State.User.ID
	}
	if appID == "" {
		return fmt.Errorf("no application ID to register commands under")
	}
	if err := s.client.RegisterCommands(appID, s.guildIDs); err != nil {
		return err
	}
	commandsRegistered.Set(float64(len(commands.Definitions)))
	return nil
}

// Connects to the gateway and runs the engine until ctx is cancelled or something fails.
func (s *Server) Run(ctx context.Context) error {
	msgs := make(chan *event.Message, messageQueueSize)

	removeMessages := s.client.ForwardMessages(ctx, msgs)
	defer removeMessages()
	removeInteractions := s.client.HandleInteractions(ctx, s.commands)
	defer removeInteractions()

	if err := s.client.Open(); err != nil {
		return err
	}
	gatewayConnected.Set(1)
	defer func() {
		gatewayConnected.Set(0)
		if err := s.client.Close(); err != nil {
			s.logger.Error("error closing discord gateway", "err", err)
		}
	}()

	// the bot still moderates with stale or missing slash commands
	if err := s.registerCommands(ctx); err != nil {
		s.logger.Error("failed to register slash commands", "err", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.engine.Run(ctx, msgs)
	})
	if s.metricsListen != "" {
		g.Go(func() error {
			return s.RunMetrics(ctx, s.metricsListen)
		})
	}
	return g.Wait()
}

func (s *Server) RunMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down metrics server", "error", err)
		}
	}()
	s.logger.Info("serving metrics", "listen", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start metrics endpoint: %w", err)
	}
	return nil
}
