package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"KrakenDCA/internal/config"
	"KrakenDCA/internal/exchange"
	"KrakenDCA/internal/notifier"
	"KrakenDCA/internal/pacing"
	"KrakenDCA/internal/recorder"
	"KrakenDCA/internal/scheduler"
	"KrakenDCA/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "kraken-dca",
		Usage: "spread fiat deposits into paced market buys on Kraken",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "configs/config.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before reading the environment",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "trade against an in-memory paper account priced from the live ticker",
			},
			&cli.Float64Flag{
				Name:  "paper-fiat",
				Value: 1000,
				Usage: "starting fiat balance of the paper account",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "run a single cycle and exit",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Errorf("kraken-dca stopped: %v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := config.LoadEnvFile(c.String("env-file")); err != nil {
		return err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if c.Bool("dry-run") {
		cfg.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config validation")
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return errors.Wrap(err, "init logger")
	}

	assets := cfg.TrackedAssets()
	estimator, err := cfg.DeadlineEstimator()
	if err != nil {
		return err
	}
	trigger := cfg.WithdrawalTrigger()

	kraken := exchange.NewKrakenClient(exchange.KrakenConfig{
		BaseURL:   cfg.Kraken.BaseURL,
		APIKey:    cfg.Kraken.APIKey,
		APISecret: cfg.Kraken.APISecret,
		Proxy:     cfg.Proxy,
		Timeout:   cfg.Kraken.Timeout,
	})
	var client exchange.Client = kraken
	if cfg.DryRun {
		paper := exchange.NewPaperExchange(cfg.Currency, assets)
		paper.Feed = kraken
		paper.Deposit(decimal.NewFromFloat(c.Float64("paper-fiat")))
		client = paper
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logrus.Warnf("init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	opts := scheduler.Options{
		Exchange:     client,
		Assets:       assets,
		Currency:     cfg.Currency,
		Deadline:     estimator,
		Withdrawal:   trigger,
		AddressKey:   cfg.Withdrawal.AddressKey,
		FailureLimit: cfg.Schedule.FailureLimit,
		Recorder:     rec,
	}
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		opts.Notifier = tn
	}
	ctrl := scheduler.NewController(opts)
	sched := scheduler.NewScheduler(ctrl, cfg.Schedule.PollDelay)

	logrus.Info("\n" + notifier.FormatBanner(client.Name(), cfg.Currency, assets, trigger.Mode.String()))
	if cfg.Schedule.DeadlinePolicy == string(pacing.PolicyRefillDay) {
		logrus.Infof("expecting fiat refills on day %d of each month", cfg.Schedule.RefillDay)
	}

	if c.Bool("once") {
		return sched.RunOnce(c.Context)
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if tn != nil {
		go tn.StartPolling(ctx, ctrl.HandleCommand)
		logrus.Info("telegram polling started")
	}

	logrus.Info("kraken-dca is running. Press Ctrl+C to stop.")
	if err := sched.Run(ctx); err != nil {
		return err
	}
	logrus.Info("kraken-dca stopped")
	return nil
}
