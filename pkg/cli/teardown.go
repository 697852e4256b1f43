package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/cli/config"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
	"github.com/m-mizutani/testbed/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdTeardown() *cli.Command {
	var (
		dockerCfg    config.Docker
		workspaceCfg config.Workspace
		slackCfg     config.Slack
		repoName     string
		prNumber     int
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "pr",
			Usage:       "Pull request number",
			Required:    true,
			Destination: &prNumber,
		},
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Repository as owner/name, used in notifications",
			Value:       "GeyserMC/Geyser",
			Destination: &repoName,
		},
	}
	flags = append(flags, dockerCfg.Flags()...)
	flags = append(flags, workspaceCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:  "teardown",
		Usage: "Stop the test server of a pull request and delete its workspace",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			pr := types.PRNumber(prNumber)
			if !pr.Valid() {
				return goerr.New("invalid pull request number", goerr.V("pr", prNumber))
			}
			repo, err := parseRepository(repoName)
			if err != nil {
				return err
			}

			store, err := workspaceCfg.NewStore()
			if err != nil {
				return goerr.Wrap(err, "failed to open workspace store")
			}

			runtime, err := dockerCfg.NewRuntime()
			if err != nil {
				return goerr.Wrap(err, "failed to connect to container runtime")
			}

			cfg := usecase.DefaultConfig()
			dockerCfg.Apply(&cfg)

			// Teardown never calls GitHub
			commandUC := usecase.NewCommand(cfg, nil, store, runtime,
				usecase.WithNotifier(slackCfg.Notifier()),
			)

			res, err := commandUC.Teardown(ctx, repo, pr)
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Teardown finished", "pr", pr, "container", res.Name, "status", res.Status)
			switch res.Status {
			case model.TeardownRemoved:
				fmt.Fprintf(color.Output, "%s %s\n", color.GreenString("removed"), res.Name)
			case model.TeardownAbsent:
				fmt.Fprintf(color.Output, "%s %s\n", color.YellowString("not running"), res.Name)
			default:
				return goerr.Wrap(res.Err, "failed to remove container", goerr.V("name", res.Name))
			}
			return nil
		},
	}
}

func parseRepository(s string) (model.Repository, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return model.Repository{}, goerr.New("repository must be owner/name", goerr.V("repo", s))
	}
	return model.Repository{Owner: owner, Name: name}, nil
}
