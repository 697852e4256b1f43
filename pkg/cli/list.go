package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/cli/config"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
	"github.com/m-mizutani/testbed/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdList() *cli.Command {
	var (
		dockerCfg    config.Docker
		workspaceCfg config.Workspace
	)

	flags := append(dockerCfg.Flags(), workspaceCfg.Flags()...)

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Show test server containers and workspaces",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
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

			entries, err := collectEntries(ctx, usecase.NewContainerManager(runtime, cfg), store)
			if err != nil {
				return err
			}

			printEntries(color.Output, entries, cfg.PublicHost)
			return nil
		},
	}
}

// listEntry is one pull request that has a container, a workspace or both
type listEntry struct {
	PR        types.PRNumber
	Container *model.ContainerInfo
	Workspace bool
}

func collectEntries(ctx context.Context, containers *usecase.ContainerManager, store interfaces.WorkspaceStore) ([]*listEntry, error) {
	byPR := map[types.PRNumber]*listEntry{}
	get := func(pr types.PRNumber) *listEntry {
		if e, ok := byPR[pr]; ok {
			return e
		}
		e := &listEntry{PR: pr}
		byPR[pr] = e
		return e
	}

	list, err := containers.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range list {
		n, err := strconv.Atoi(info.Labels[usecase.LabelPullRequest])
		if err != nil {
			continue
		}
		get(types.PRNumber(n)).Container = info
	}

	prs, err := store.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list workspaces")
	}
	for _, pr := range prs {
		get(pr).Workspace = true
	}

	entries := make([]*listEntry, 0, len(byPR))
	for _, e := range byPR {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PR < entries[j].PR })
	return entries, nil
}

func printEntries(w io.Writer, entries []*listEntry, host string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No test servers")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, e := range entries {
		state := model.ContainerAbsent
		if e.Container != nil {
			state = e.Container.State()
		}

		var stateText string
		switch state {
		case model.ContainerRunning:
			stateText = green(string(state))
		case model.ContainerAbsent:
			stateText = red(string(state))
		default:
			stateText = yellow(string(state))
		}

		line := fmt.Sprintf("%s  %-8s", bold("PR #"+e.PR.String()), stateText)
		if e.Container != nil && e.Container.HostPort != 0 {
			server := &model.TestServer{Host: host, Port: e.Container.HostPort}
			line += "  " + server.Address()
		}
		if !e.Workspace {
			line += "  " + yellow("(no workspace)")
		}
		fmt.Fprintln(w, line)
	}
}
