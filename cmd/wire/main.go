package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/internal/wireconfig"
	"github.com/neveleren/thewire/pkg/api"
	"github.com/neveleren/thewire/pkg/botcontext"
	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db"
	"github.com/neveleren/thewire/pkg/llm"
	"github.com/neveleren/thewire/pkg/llm/openai"
	"github.com/neveleren/thewire/pkg/logging"
	"github.com/neveleren/thewire/pkg/notify"
	"github.com/neveleren/thewire/pkg/orchestrator"
	"github.com/neveleren/thewire/pkg/runner"
	"github.com/neveleren/thewire/pkg/scheduler"
	"github.com/neveleren/thewire/pkg/store"
	"github.com/neveleren/thewire/pkg/summarizer"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	// Initialize logger
	log := logrus.New()
	log.SetFormatter(logging.NewColoredJSONFormatter())

	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithFields(logrus.Fields{
			"attempted_level": logLevel,
			"default_level":   "INFO",
		}).Warn("Invalid log level specified, defaulting to INFO")
	}

	cfg, err := wireconfig.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	gormDB, err := db.SetupDatabase(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up database")
	}

	users := store.NewUserStore(log, gormDB)
	posts := store.NewPostStore(log, gormDB)
	chat := store.NewChatStore(log, gormDB)
	botStore := store.NewBotStore(log, gormDB)

	roster := bots.DefaultRoster(cfg.Creator)

	notifyConfig, err := notify.NewConfig(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load notifier configuration")
	}
	notifier, err := notify.NewWebhookNotifier(notifyConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to create webhook notifier")
	}

	// The language model is an optional summarization fallback; without a
	// key the summarizer degrades to its heuristic tier.
	var model llm.LLM
	openaiConfig := openai.NewConfig(log)
	if openaiConfig.Enabled() {
		client, err := openai.NewClient(openaiConfig)
		if err != nil {
			log.WithError(err).Warn("Failed to create OpenAI client, continuing without LLM")
		} else {
			model = client
			log.WithField("model", openaiConfig.Model).Info("LLM summarization fallback enabled")
		}
	}

	assembler := botcontext.NewAssembler(botStore, posts, roster, log)
	sched := scheduler.New(botStore, roster, log)
	summ := summarizer.New(chat, botStore, notifier, model, roster, log)

	orch, err := orchestrator.New(orchestrator.Config{
		Roster:   roster,
		Notifier: notifier,
		Feed:     posts,
		Chat:     chat,
		Memories: botStore,
		Contexts: assembler,
		Summarize: func() {
			if _, err := summ.Run(context.Background(), false); err != nil {
				log.WithError(err).Error("Background summarization failed")
			}
		},
		Logger: log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create orchestrator")
	}

	server := api.NewServer(api.Deps{
		Config:    cfg,
		Users:     users,
		Posts:     posts,
		Chat:      chat,
		BotStore:  botStore,
		Roster:    roster,
		Orch:      orch,
		Assembler: assembler,
		Scheduler: sched,
		Summ:      summ,
		Logger:    log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.Routes(),
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
		}).Info("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server stopped with error")
			cancel()
		}
	}()

	tasks := runner.New(log, runner.NewRoutineTask(sched, cfg.RoutineInterval, log))
	if err := tasks.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Error("Background tasks stopped with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	log.Info("Shutdown complete")
}
