package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"taskledger/internal/bot"
	"taskledger/internal/config"
	"taskledger/internal/reconcile"
	"taskledger/internal/schedule"
	"taskledger/internal/store"
	"taskledger/internal/transport/slack"
)

func main() {
	// 1. Resolve the config path (flag value via env for container use)
	configPath := os.Getenv("LEDGER_CONFIG")
	if configPath == "" {
		configPath = "ledger.yml"
	}
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// 2. Load and validate ledger.yml
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load %s: %v\n", configPath, err)
		os.Exit(1)
	}
	if cfg.Slack == nil {
		fmt.Fprintf(os.Stderr, "Error: ledgerd requires a slack section in %s\n", configPath)
		os.Exit(1)
	}

	// 3. Parse Redis URL
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid redis_url: %v\n", err)
		os.Exit(1)
	}

	// 4. Create the content store and verify connectivity
	rs, err := store.NewRedisStore(redisOpts, cfg.Ledger.Instance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create content store: %v\n", err)
		os.Exit(1)
	}
	defer rs.Close()

	ctx := context.Background()
	if err := rs.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Redis not accessible: %v\n", err)
		os.Exit(1)
	}

	// 5. Wire the gateway and reconciler
	gw := store.NewGateway(rs, cfg.Ledger.Document, store.NewCache(cfg.Ledger.CacheTTL()))
	rec := reconcile.New(gw, reconcile.Options{
		MaxRetries:      *cfg.Ledger.MaxRetries,
		EmptyPolicy:     reconcile.EmptyPolicy(cfg.Ledger.EmptyMessagePolicy),
		TimestampLayout: cfg.Ledger.TimestampLayout,
	})

	// 6. Create the Slack transport
	channel := slack.NewChannel(slack.Config{
		BotToken:       cfg.Slack.BotToken,
		AppID:          cfg.Slack.AppID,
		ListenPort:     cfg.Slack.ListenPort,
		EventPath:      cfg.Slack.EventPath,
		DefaultChannel: cfg.Slack.DefaultChannel,
	})

	reportChannel := ""
	if cfg.Report != nil {
		reportChannel = cfg.Report.Channel
	}
	b := bot.New(channel, rec, reportChannel)

	fmt.Printf("ledgerd starting for instance '%s' (document %s)\n", cfg.Ledger.Instance, cfg.Ledger.Document)

	// 7. Setup graceful shutdown
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// 8. Start the periodic report job if configured
	sched := schedule.New()
	if cfg.Report != nil && cfg.Report.IntervalMinutes > 0 {
		job := schedule.Job{
			Name:     "sections-report",
			Interval: time.Duration(cfg.Report.IntervalMinutes) * time.Minute,
			Timeout:  time.Minute,
			Run:      b.RunReport,
		}
		if err := sched.Register(job); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to register report job: %v\n", err)
			os.Exit(1)
		}
		if err := sched.Start(runCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to start scheduler: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report job scheduled every %dm to channel %s\n", cfg.Report.IntervalMinutes, cfg.Report.Channel)
	}

	// 9. Run the bot in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Run(runCtx)
	}()

	// 10. Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		fmt.Printf("Received signal %v, shutting down gracefully...\n", sig)
		cancel()
		<-errCh
	case runErr := <-errCh:
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "ledgerd error: %v\n", runErr)
			sched.Stop()
			os.Exit(1)
		}
	}

	sched.Stop()
	fmt.Println("ledgerd stopped")
}
