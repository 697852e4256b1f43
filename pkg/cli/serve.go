package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/cli/config"
	githubcontroller "github.com/m-mizutani/testbed/pkg/controller/github"
	controller "github.com/m-mizutani/testbed/pkg/controller/http"
	"github.com/m-mizutani/testbed/pkg/usecase"
	"github.com/m-mizutani/testbed/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg     config.Server
		githubCfg     config.GitHub
		dockerCfg     config.Docker
		workspaceCfg  config.Workspace
		controllerCfg config.Controller
		slackCfg      config.Slack
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, dockerCfg.Flags()...)
	flags = append(flags, workspaceCfg.Flags()...)
	flags = append(flags, controllerCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server receiving GitHub webhooks",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if githubCfg.WebhookSecret == "" {
				return goerr.New("github-webhook-secret is required")
			}
			if err := dockerCfg.Validate(); err != nil {
				return err
			}
			if err := controllerCfg.Validate(); err != nil {
				return err
			}

			logger.Info("Starting testbed server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("github", githubCfg),
				slog.Any("docker", dockerCfg),
				slog.Any("workspace", workspaceCfg),
				slog.Any("controller", controllerCfg),
			)

			store, err := workspaceCfg.NewStore()
			if err != nil {
				return goerr.Wrap(err, "failed to open workspace store")
			}

			githubClient, err := githubCfg.NewClient(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to create GitHub client")
			}

			runtime, err := dockerCfg.NewRuntime()
			if err != nil {
				return goerr.Wrap(err, "failed to connect to container runtime")
			}

			cfg := usecase.DefaultConfig()
			dockerCfg.Apply(&cfg)
			controllerCfg.Apply(&cfg)

			commandUC := usecase.NewCommand(cfg, githubClient, store, runtime,
				usecase.WithNotifier(slackCfg.Notifier()),
			)

			dispatcher := async.NewDispatcher()
			processor := githubcontroller.NewEventProcessor(commandUC,
				githubcontroller.WithDispatcher(dispatcher),
			)

			server, err := controller.NewServer(
				ctx,
				processor,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithWebhookPath(serverCfg.WebhookPath),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// Running start sequences get a longer grace than HTTP requests
			waitCtx, cancelWait := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
			defer cancelWait()
			if err := dispatcher.Wait(waitCtx); err != nil {
				logger.Warn("Shutting down with commands still running", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
