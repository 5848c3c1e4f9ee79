package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nhmexplorer/internal/analyst"
	"nhmexplorer/internal/api"
	"nhmexplorer/internal/bot"
	"nhmexplorer/internal/config"
	"nhmexplorer/internal/database"
	"nhmexplorer/internal/explorer"
	"nhmexplorer/internal/llm"
	"nhmexplorer/internal/occurrence"
	"nhmexplorer/internal/scheduler"
)

const (
	httpReadHeaderTimeout = 10 * time.Second
	httpShutdownTimeout   = 10 * time.Second
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.InfoContext(ctx, ".env file is not loaded, using process environment",
			"error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	fetcher, err := occurrence.NewFetcher(occurrence.Config{
		SearchURL:       cfg.OccurrenceAPIURL,
		InstitutionCode: cfg.InstitutionCode,
		Timeout:         cfg.HTTPTimeout,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize occurrence fetcher",
			"error", err,
			"searchURL", cfg.OccurrenceAPIURL)

		return
	}
	log.InfoContext(ctx, "Occurrence fetcher is initialized",
		"searchURL", cfg.OccurrenceAPIURL,
		"institutionCode", fetcher.InstitutionCode(),
		"timeout", cfg.HTTPTimeout.String())

	exp := explorer.New(fetcher, log)
	tableChat := initTableChat(ctx, cfg, log)

	sched := scheduler.New(ctx, db, cfg.HistoryRetention, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.DailyPruneSpec,
			"timezone", scheduler.Timezone)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.DailyPruneSpec,
		"timezone", scheduler.Timezone,
		"retention", cfg.HistoryRetention.String())

	var botInst *bot.Bot
	if cfg.Token != "" {
		// A nil *TableChat must not reach the bot as a non-nil interface.
		var botAnalyst bot.Analyst
		if tableChat != nil {
			botAnalyst = tableChat
		}

		botInst, err = bot.New(cfg.Token, exp, botAnalyst, db, cfg.AllowedUsers, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize bot",
				"error", err,
				"allowedUsersCount", len(cfg.AllowedUsers))

			return
		}

		go func() {
			botInst.Start(ctx)
		}()
		log.InfoContext(ctx, "Bot is started",
			"allowedUsersCount", len(cfg.AllowedUsers),
			"updateTimeoutSeconds", bot.BotUpdateTimeout)
	}

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		var apiAnalyst api.Analyst
		if tableChat != nil {
			apiAnalyst = tableChat
		}

		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(api.NewHandler(exp, apiAnalyst, log), db, log),
			ReadHeaderTimeout: httpReadHeaderTimeout,
		}

		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				log.ErrorContext(ctx, "HTTP server failed",
					"error", serveErr,
					"addr", cfg.HTTPAddr)
				cancel()
			}
		}()
		log.InfoContext(ctx, "HTTP server is started",
			"addr", cfg.HTTPAddr)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case <-ctx.Done():
		log.InfoContext(ctx, "Context is done",
			"error", ctx.Err())
	}
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer shutdownCancel()

		if err = srv.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(shutdownCtx, "Failed to shut down HTTP server",
				"error", err)
		}
		log.InfoContext(shutdownCtx, "HTTP server is stopped")
	}

	if botInst != nil {
		botInst.Stop()
		log.InfoContext(ctx, "Bot is stopped",
			"uptimeSeconds", time.Since(start).Seconds())
	}
}

func initTableChat(ctx context.Context, cfg config.Config, log *slog.Logger) *analyst.TableChat {
	if cfg.OpenAIAPIKey == "" {
		log.WarnContext(ctx, "OPENAI_API_KEY is missing so questions are disabled",
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	completer, err := llm.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create OpenAI completer so questions are disabled",
			"error", err,
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	log.InfoContext(ctx, "OpenAI completer is initialized",
		"provider", "openai",
		"model", cfg.OpenAIModel)

	return analyst.NewTableChat(completer)
}
