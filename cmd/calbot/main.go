package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meri-leeworthy/matrix-bot-calendar/internal/bot"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/caldav"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/config"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/digest"
	appLog "github.com/meri-leeworthy/matrix-bot-calendar/internal/log"
)

type flagConfig struct {
	configPath string
	debug      bool
	probeOnly  bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("calbot starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"homeserver", conf.Matrix.Homeserver,
		"rooms", len(conf.Matrix.Rooms),
		"caldav_url", conf.CalDAV.URL,
		"window_days", conf.Digest.WindowDays,
		"weekly_cron", conf.Digest.WeeklyCron,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Dry run so misconfigured calendar credentials surface immediately
	// rather than on the first trigger.
	probe(ctx, conf)
	if flags.probeOnly {
		return
	}

	b, err := bot.New(conf)
	if err != nil {
		appLog.Error("failed to establish session", err)
		os.Exit(1)
	}

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("sync loop terminated", err)
		os.Exit(1)
	}
	appLog.Info("calbot exiting")
}

func probe(ctx context.Context, conf *config.Config) {
	client := caldav.NewClient(caldav.Credentials{
		URL:      conf.CalDAV.URL,
		Username: conf.CalDAV.Username,
		Password: conf.CalDAV.Password,
	})

	now := time.Now().UTC()
	events, err := client.FetchEvents(ctx, now, now.Add(conf.Window()))
	if err != nil {
		appLog.Error("calendar probe failed", err, "url", conf.CalDAV.URL)
		return
	}

	body, _ := digest.Render(events)
	appLog.Info("calendar probe ok", "events", len(events), "digest_bytes", len(body))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calbot/config.yaml", "Path to config file")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.probeOnly, "probe", false, "Run one calendar fetch and exit")

	flag.Parse()

	return cfg
}
