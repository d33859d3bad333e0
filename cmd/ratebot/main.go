package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wggdev/ratebot/moderation/configstore"
	"github.com/wggdev/ratebot/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "ratebot",
		Usage:   "discord moderation daemon (adaptive slowmode and scam buster)",
		Version: versioninfo.Short(),
	}

	app.Flags = append([]cli.Flag{
		&cli.StringFlag{
			Name:    "config-file",
			Usage:   "path of the JSON settings file (ignored when redis is configured)",
			Value:   "save.json",
			EnvVars: []string{"RATEBOT_CONFIG_FILE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis URL for shared settings storage, instead of the settings file",
			EnvVars: []string{"RATEBOT_REDIS_URL"},
		},
	}, cliutil.LogFlags...)

	app.Commands = []*cli.Command{
		runCmd,
		configCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context) (*slog.Logger, error) {
	return cliutil.SetupSlog(cliutil.LogOptionsFromCLI(cctx))
}

func storeConfig(cctx *cli.Context, logger *slog.Logger) StoreConfig {
	return StoreConfig{
		ConfigFile: cctx.String("config-file"),
		RedisURL:   cctx.String("redis-url"),
		Logger:     logger,
	}
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to the discord gateway and moderate",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "bot token",
			Required: true,
			EnvVars:  []string{"DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "client-id",
			Usage:   "application ID to register slash commands under (defaults to the bot user)",
			EnvVars: []string{"CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:    "guild-ids",
			Usage:   "comma-separated guild IDs to register slash commands in; global registration when empty",
			EnvVars: []string{"RATEBOT_GUILD_IDS", "GUILD_ID"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "mirror moderation log messages to this slack incoming webhook",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"RATEBOT_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger, err := configLogger(cctx)
		if err != nil {
			return err
		}

		shutdown := configOTEL("ratebot")
		defer shutdown()

		srv, err := NewServer(
			Config{
				StoreConfig:     storeConfig(cctx, logger),
				DiscordToken:    cctx.String("discord-token"),
				ClientID:        cctx.String("client-id"),
				GuildIDs:        splitIDs(cctx.String("guild-ids")),
				SlackWebhookURL: cctx.String("slack-webhook-url"),
				MetricsListen:   cctx.String("metrics-listen"),
			},
		)
		if err != nil {
			return err
		}

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run ratebot service: %w", err)
		}
		return nil
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "inspect or replace stored settings",
	Subcommands: []*cli.Command{
		{
			Name:   "dump",
			Usage:  "print all stored settings as JSON",
			Action: runConfigDump,
		},
		{
			Name:      "import",
			Usage:     "replace all stored settings with the contents of a JSON file",
			ArgsUsage: "<file>",
			Action:    runConfigImport,
		},
	},
}

func runConfigDump(cctx *cli.Context) error {
	ctx := cctx.Context
	logger, err := configLogger(cctx)
	if err != nil {
		return err
	}
	store, err := openExporter(storeConfig(cctx, logger))
	if err != nil {
		return err
	}
	doc, err := store.Export(ctx)
	if err != nil {
		return fmt.Errorf("exporting settings: %w", err)
	}
	enc := json.NewEncoder(cctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func runConfigImport(cctx *cli.Context) error {
	ctx := cctx.Context
	if cctx.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one settings file argument")
	}
	logger, err := configLogger(cctx)
	if err != nil {
		return err
	}
	doc, err := configstore.LoadFileJSON(cctx.Args().First())
	if err != nil {
		return err
	}
	store, err := openExporter(storeConfig(cctx, logger))
	if err != nil {
		return err
	}
	if err := store.Import(ctx, doc); err != nil {
		return fmt.Errorf("importing settings: %w", err)
	}
	logger.Info("imported settings", "path", cctx.Args().First(), "guilds", len(doc.SupervisedChannels))
	return nil
}
