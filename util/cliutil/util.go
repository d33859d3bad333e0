package cliutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

type LogOptions struct {
	// path to write to; "" or "-" for stdout
	LogPath string

	// text|json
	LogFormat string

	// info|debug|warn|error
	LogLevel string

	// Defaults to os.Stdout. Ignored if LogPath names a file.
	Out io.Writer
}

// Logging flags shared by ratebot commands. Read back with LogOptionsFromCLI.
var LogFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "log verbosity: debug, info, warn, error",
		EnvVars: []string{"RATEBOT_LOG_LEVEL", "LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:    "log-format",
		Usage:   "log output format: text or json",
		EnvVars: []string{"RATEBOT_LOG_FMT"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "write logs to this file instead of stdout",
		EnvVars: []string{"RATEBOT_LOG_FILE"},
	},
}

func LogOptionsFromCLI(cctx *cli.Context) LogOptions {
	return LogOptions{
		LogLevel:  cctx.String("log-level"),
		LogFormat: cctx.String("log-format"),
		LogPath:   cctx.String("log-file"),
	}
}

func firstenv(env_var_names ...string) string {
	for _, env_var_name := range env_var_names {
		val := os.Getenv(env_var_name)
		if val != "" {
			return val
		}
	}
	return ""
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %#v", s)
}

// SetupSlog integrates passed in options and env vars, and installs the result as the slog default.
//
// passing default cliutil.LogOptions{} is ok.
//
// RATEBOT_LOG_LEVEL=info|debug|warn|error
//
// RATEBOT_LOG_FMT=text|json
//
// RATEBOT_LOG_FILE=path (or "-" or "" for stdout)
func SetupSlog(options LogOptions) (*slog.Logger, error) {
	if options.LogLevel == "" {
		options.LogLevel = firstenv("RATEBOT_LOG_LEVEL", "LOG_LEVEL")
	}
	level, err := parseLevel(options.LogLevel)
	if err != nil {
		return nil, err
	}
	hopts := slog.HandlerOptions{Level: level}

	if options.LogFormat == "" {
		options.LogFormat = firstenv("RATEBOT_LOG_FMT")
	}
	format := strings.ToLower(options.LogFormat)
	if format == "" {
		format = "text"
	}

	if options.LogPath == "" {
		options.LogPath = firstenv("RATEBOT_LOG_FILE")
	}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}
	if options.LogPath != "" && options.LogPath != "-" {
		f, err := os.OpenFile(options.LogPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", options.LogPath, err)
		}
		out = f
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(out, &hopts)
	case "json":
		handler = slog.NewJSONHandler(out, &hopts)
	default:
		return nil, fmt.Errorf("invalid log format: %#v", options.LogFormat)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
