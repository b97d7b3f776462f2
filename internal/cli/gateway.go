package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atlasos/atlas/internal/assistant"
	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/config"
	"github.com/atlasos/atlas/internal/evolve"
	"github.com/atlasos/atlas/internal/group"
	"github.com/atlasos/atlas/internal/memory"
	"github.com/atlasos/atlas/internal/notify"
	"github.com/atlasos/atlas/internal/orchestrator"
	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/scheduler"
	"github.com/atlasos/atlas/internal/session"
	"github.com/atlasos/atlas/internal/store"
	"github.com/atlasos/atlas/internal/widget"
	"github.com/spf13/cobra"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the Atlas gateway (API server, scheduler, group sync)",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("🌐 Atlas Gateway")
	fmt.Println("Starting Atlas Gateway...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		fmt.Printf("Data dir error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.Open(store.Options{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		DSN:    cfg.Store.DSN,
	})
	if err != nil {
		fmt.Printf("Store error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()
	fmt.Printf("💾 Store ready (%s)\n", st.Driver())

	prov, err := provider.Resolve(cfg)
	if err != nil {
		fmt.Printf("Provider error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("🧠 Model: %s\n", cfg.Model.Name)

	events := bus.NewEventBus()

	// Semantic memory is optional. Without an embedding-capable key the
	// assistant answers without dashboard context.
	var searcher *memory.Searcher
	if embedder, err := provider.ResolveEmbedder(cfg); err == nil {
		searcher = memory.NewSearcher(st, embedder, cfg.Assistant.EmbeddingModel)
		indexer := memory.NewIndexer(st, embedder, cfg.Assistant.EmbeddingModel, logger)
		indexer.BindBus(events)
		fmt.Println("🔍 Semantic memory enabled")
	} else {
		fmt.Printf("🔍 Semantic memory disabled: %v\n", err)
	}

	sessions := session.NewManager(cfg.Paths.SessionsDir)

	atlas := assistant.New(st, sessions, prov, searcher, assistant.Options{
		HistoryMessages: cfg.Assistant.HistoryMessages,
		SearchTopK:      cfg.Assistant.SearchTopK,
		SearchMinScore:  cfg.Assistant.SearchMinScore,
		ContextBudget:   cfg.Assistant.ContextBudget,
		MaxTokens:       cfg.Model.MaxTokens,
		Temperature:     cfg.Model.Temperature,
	}, logger)

	orch := orchestrator.New(st, prov, events, logger)
	widgets := widget.NewEngine(st, prov, events, logger)
	evolver := evolve.NewEngine(st, prov, events, logger)

	var mirror *notify.SlackMirror
	if cfg.Notify.Slack.Enabled {
		mirror, err = notify.NewSlackMirror(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel, cfg.Notify.Slack.APIBase)
		if err != nil {
			fmt.Printf("⚠️ Slack mirror disabled: %v\n", err)
		} else {
			fmt.Println("💬 Slack mirror enabled")
		}
	}
	notifier := notify.NewNotifier(st, mirror, logger)
	notifier.BindBus(events)

	dispatcher := notify.NewDispatcher(st, cfg.Notify.WebhookTimeout, cfg.Notify.SigningSecret,
		cfg.Notify.WebhookMaxRetries, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := events.Dispatch(ctx); err != nil && ctx.Err() == nil {
			fmt.Printf("Event bus stopped: %v\n", err)
		}
	}()

	if cfg.Group.Enabled {
		nodeID := cfg.Group.NodeID
		if nodeID == "" {
			hostname, _ := os.Hostname()
			nodeID = fmt.Sprintf("atlas-%s", hostname)
		}
		pub := group.NewKafkaPublisher(cfg.Group.KafkaBrokers, cfg.Group.GroupName)
		cons := group.NewKafkaConsumer(cfg.Group.KafkaBrokers, cfg.Group.ConsumerGroup, cfg.Group.GroupName)
		replicator := group.NewReplicator(nodeID, cfg.Group.GroupName, st, pub, cons, logger)
		replicator.BindBus(events)
		go func() {
			if err := replicator.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Printf("Group replication stopped: %v\n", err)
			}
		}()
		fmt.Printf("🤝 Group sync enabled: %s (node %s)\n", cfg.Group.GroupName, nodeID)
	}

	// Deliveries must drain even without the scheduler's retry-sweep job.
	if !cfg.Scheduler.Enabled {
		go func() {
			if err := dispatcher.Run(ctx, 30*time.Second); err != nil && ctx.Err() == nil {
				fmt.Printf("Webhook dispatcher stopped: %v\n", err)
			}
		}()
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(scheduler.Config{
			TickInterval:   cfg.Scheduler.TickInterval,
			MaxConcLLM:     cfg.Scheduler.MaxConcLLM,
			MaxConcHTTP:    cfg.Scheduler.MaxConcHTTP,
			MaxConcDefault: cfg.Scheduler.MaxConcDefault,
			LockPath:       filepath.Join(cfg.Paths.DataDir, "scheduler.lock"),
		}, st)
		scheduler.RegisterStandardJobs(sched, st, widgets, dispatcher)
		go func() {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Printf("Scheduler stopped: %v\n", err)
			}
		}()
		fmt.Printf("⏰ Scheduler enabled (%d jobs)\n", len(sched.Jobs()))
	}

	api := &apiServer{
		cfg:       cfg,
		store:     st,
		events:    events,
		atlas:     atlas,
		orch:      orch,
		widgets:   widgets,
		evolver:   evolver,
		startTime: time.Now(),
	}
	mux := api.routes()

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	go func() {
		if cfg.Gateway.TLSCert != "" && cfg.Gateway.TLSKey != "" {
			fmt.Printf("📡 API listening on https://%s\n", addr)
			cert, err := tls.LoadX509KeyPair(cfg.Gateway.TLSCert, cfg.Gateway.TLSKey)
			if err != nil {
				fmt.Printf("❌ TLS cert load failed: %v\n", err)
				cancel()
				return
			}
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
				TLSConfig: &tls.Config{
					Certificates: []tls.Certificate{cert},
				},
			}
			if err := server.ListenAndServeTLS("", ""); err != nil {
				fmt.Printf("❌ API server failed: %v\n", err)
				cancel()
			}
		} else {
			fmt.Printf("📡 API listening on http://%s\n", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				fmt.Printf("❌ API server failed: %v\n", err)
				cancel()
			}
		}
	}()

	if cfg.Gateway.AuthToken != "" {
		fmt.Println("🔒 Auth token required for API")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println("Gateway running. Press Ctrl+C to stop.")
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	fmt.Println("Shutting down...")
	cancel()
}
