package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// LabelPullRequest is set on every container with the PR number as value
const LabelPullRequest = "testbed.pull-request"

// ContainerManager owns the single container of each pull request. It keeps
// no state of its own; the runtime's name uniqueness is the only guard
// against duplicates.
type ContainerManager struct {
	runtime interfaces.ContainerRuntime
	cfg     Config
}

// NewContainerManager creates a ContainerManager
func NewContainerManager(runtime interfaces.ContainerRuntime, cfg Config) *ContainerManager {
	return &ContainerManager{
		runtime: runtime,
		cfg:     cfg,
	}
}

// ContainerName returns the deterministic container name of pr
func (m *ContainerManager) ContainerName(pr types.PRNumber) string {
	return m.cfg.ContainerPrefix + pr.String()
}

// State reports the lifecycle state of pr's container
func (m *ContainerManager) State(ctx context.Context, pr types.PRNumber) (model.ContainerState, error) {
	info, err := m.runtime.InspectContainer(ctx, m.ContainerName(pr))
	if err != nil {
		if errors.Is(err, model.ErrContainerNotFound) {
			return model.ContainerAbsent, nil
		}
		return model.ContainerAbsent, goerr.Wrap(err, "failed to get container state", goerr.V("pr", pr))
	}
	return info.State(), nil
}

// EnsureAbsent stops and removes pr's container if one exists. Failures are
// returned in the result rather than as an error: a failed stop usually means
// the container is already gone, and callers carry on regardless.
func (m *ContainerManager) EnsureAbsent(ctx context.Context, pr types.PRNumber) *model.TeardownResult {
	name := m.ContainerName(pr)
	logger := ctxlog.From(ctx).With("container", name)

	if _, err := m.runtime.InspectContainer(ctx, name); err != nil {
		if errors.Is(err, model.ErrContainerNotFound) {
			return &model.TeardownResult{Name: name, Status: model.TeardownAbsent}
		}
		logger.Warn("Failed to inspect container before teardown", "error", err)
	}

	if err := m.runtime.StopContainer(ctx, name, m.cfg.StopGrace); err != nil && !errors.Is(err, model.ErrContainerNotFound) {
		logger.Warn("Failed to stop container", "error", err)
	}

	if err := m.runtime.RemoveContainer(ctx, name, true); err != nil && !errors.Is(err, model.ErrContainerNotFound) {
		logger.Error("Failed to remove container", "error", err)
		return &model.TeardownResult{Name: name, Status: model.TeardownFailed, Err: err}
	}

	logger.Info("Removed container")
	return &model.TeardownResult{Name: name, Status: model.TeardownRemoved}
}

// CreateAndStart runs a new container for pr serving workspaceDir and returns
// its public address. A container that was created but could not be started
// or inspected is force-removed before returning the error.
func (m *ContainerManager) CreateAndStart(ctx context.Context, pr types.PRNumber, workspaceDir string) (*model.TestServer, error) {
	name := m.ContainerName(pr)
	logger := ctxlog.From(ctx).With("container", name)

	spec := &model.ContainerSpec{
		Name:          name,
		Image:         m.cfg.Image,
		Cmd:           m.cfg.Cmd,
		WorkingDir:    m.cfg.DataPath,
		MountSource:   workspaceDir,
		MountTarget:   m.cfg.DataPath,
		ContainerPort: m.cfg.GamePort,
		Protocol:      m.cfg.Protocol,
		Labels:        map[string]string{LabelPullRequest: pr.String()},
		Env:           []string{fmt.Sprintf("MOTD=Test PR #%d", pr)},
		AutoRemove:    true,
	}

	id, err := m.runtime.CreateContainer(ctx, spec)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create container", goerr.V("name", name))
	}
	logger.Info("Created container", "id", id)

	if err := m.runtime.StartContainer(ctx, id); err != nil {
		m.discard(ctx, id)
		return nil, goerr.Wrap(err, "failed to start container", goerr.V("name", name))
	}

	info, err := m.runtime.InspectContainer(ctx, id)
	if err != nil {
		m.discard(ctx, id)
		return nil, goerr.Wrap(err, "failed to inspect started container", goerr.V("name", name))
	}
	if info.HostPort == 0 {
		m.discard(ctx, id)
		return nil, goerr.New("container has no published port",
			goerr.V("name", name),
			goerr.V("status", info.Status),
		)
	}

	logger.Info("Started container", "id", id, "host_port", info.HostPort)
	return &model.TestServer{
		PRNumber:      pr,
		ContainerName: name,
		ContainerID:   id,
		Host:          m.cfg.PublicHost,
		Port:          info.HostPort,
	}, nil
}

func (m *ContainerManager) discard(ctx context.Context, id string) {
	if err := m.runtime.RemoveContainer(ctx, id, true); err != nil && !errors.Is(err, model.ErrContainerNotFound) {
		ctxlog.From(ctx).Error("Failed to remove broken container", "id", id, "error", err)
	}
}

// List returns every container managed by testbed
func (m *ContainerManager) List(ctx context.Context) ([]*model.ContainerInfo, error) {
	list, err := m.runtime.ListContainers(ctx, LabelPullRequest)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list test server containers")
	}
	return list, nil
}
