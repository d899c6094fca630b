package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/sessionbridge/internal/agent"
	"github.com/opencode-ai/sessionbridge/internal/chat"
	"github.com/opencode-ai/sessionbridge/internal/config"
	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/permission"
	"github.com/opencode-ai/sessionbridge/internal/reload"
	"github.com/opencode-ai/sessionbridge/internal/server"
	"github.com/opencode-ai/sessionbridge/internal/session"
	"github.com/opencode-ai/sessionbridge/internal/sharing"
	"github.com/opencode-ai/sessionbridge/internal/teleport"
)

var (
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session bridge orchestrator",
	Long: `Start the session bridge: an HTTP server exposing the terminal-side
teleport/SSE/reload/setup-link endpoints, and a Telegram bot driving the
chat side of every session.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory seeded for new sessions")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := workDirOrCwd(serveDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return fmt.Errorf("ensure data paths: %w", err)
	}

	appConfig, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		appConfig.ListenPort = servePort
	}

	logging.Info().
		Str("version", Version).
		Str("directory", workDir).
		Msg("Starting session bridge")

	manager := session.NewManager(config.SnapshotPath())
	manager.LoadState()
	if err := manager.ClearStateFile(); err != nil {
		logging.Warn().Err(err).Msg("Failed to remove session snapshot after restore")
	}

	ruleGen := permission.NewRuleGenerator(appConfig.AnthropicAPIKey, appConfig.RuleModel)

	api, err := newTelegramClient(appConfig.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("starting telegram client: %w", err)
	}

	adapter := agent.NewAdapter(appConfig.AgentBinary)
	rc := reload.NewCoordinator(manager)
	setup := sharing.NewRegistry()

	// The coordinator and teleport controller both need the bot as their
	// frontend.Frontend, and the bot needs them back to dispatch permission
	// checks and teleport handoffs. Build the bot first with both left
	// nil, then build the coordinator/controller around it, then wire
	// them back in.
	bot := chat.NewBot(api, appConfig.OperatorChatID, manager, nil, adapter, nil, rc, setup, workDir)
	coordinator := permission.NewCoordinator(bot, ruleGen)
	tc := teleport.NewController(manager, bot)
	bot.SetCoordinator(coordinator)
	bot.SetTeleport(tc)

	srvCfg := server.DefaultConfig()
	srvCfg.Port = appConfig.ListenPort
	srvCfg.OperatorChatID = appConfig.OperatorChatID
	srvCfg.ProcessCWD = workDir

	srv := server.New(srvCfg, manager, tc, rc, setup, bot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reload.NotifyRestored(ctx, manager, bot)

	// OnIdleShutdown only fires when the process was launched by the
	// terminal wrapper (server.go detects that via the WRAPPER_PID
	// env var); standalone deployments ignore it.
	shutdown := make(chan struct{})
	var shutdownOnce sync.Once
	srv.OnIdleShutdown = func() {
		logging.Info().Msg("Last SSE consumer disconnected; shutting down")
		shutdownOnce.Do(func() { close(shutdown) })
	}

	go func() {
		logging.Info().
			Int("port", srvCfg.Port).
			Str("url", fmt.Sprintf("http://127.0.0.1:%d", srvCfg.Port)).
			Msg("HTTP server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	go func() {
		if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("Telegram bot stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logging.Info().Msg("Signal received, shutting down")
	case <-shutdown:
	}

	cancel()

	if err := manager.SaveState(); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist session state")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Session bridge stopped")
	return nil
}

func workDirOrCwd(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// newTelegramClient reaches api.telegram.org with exponential backoff so a
// transient network hiccup at process startup doesn't crash the
// orchestrator; a persistently bad token or unreachable API still fails
// after maxTelegramConnectElapsed.
func newTelegramClient(token string) (*tgbotapi.BotAPI, error) {
	const maxTelegramConnectElapsed = 30 * time.Second

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxTelegramConnectElapsed

	var api *tgbotapi.BotAPI
	operation := func() error {
		a, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			logging.Warn().Err(err).Msg("Telegram client connect failed, retrying")
			return err
		}
		api = a
		return nil
	}

	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return api, nil
}
