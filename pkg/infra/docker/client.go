package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
)

// removalWait bounds how long RemoveContainer waits for an auto-removing
// container to disappear so its name can be reused right away
const removalWait = 30 * time.Second

type runtime struct {
	docker *client.Client
}

var _ interfaces.ContainerRuntime = (*runtime)(nil)

// New connects to the docker daemon. host overrides DOCKER_HOST when non-empty.
func New(host string) (interfaces.ContainerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create docker client", goerr.V("host", host))
	}

	return &runtime{docker: cli}, nil
}

// CreateContainer creates a container from spec, pulling the image if the
// daemon does not have it yet
func (r *runtime) CreateContainer(ctx context.Context, spec *model.ContainerSpec) (string, error) {
	cfg, hostCfg := buildConfig(spec)

	resp, err := r.docker.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if errdefs.IsNotFound(err) {
		if pullErr := r.pullImage(ctx, spec.Image); pullErr != nil {
			return "", pullErr
		}
		resp, err = r.docker.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to create container",
			goerr.V("name", spec.Name),
			goerr.V("image", spec.Image),
		)
	}

	for _, w := range resp.Warnings {
		ctxlog.From(ctx).Warn("Docker warning on create", "name", spec.Name, "warning", w)
	}
	return resp.ID, nil
}

func (r *runtime) pullImage(ctx context.Context, ref string) error {
	ctxlog.From(ctx).Info("Pulling image", "image", ref)

	rc, err := r.docker.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return goerr.Wrap(err, "failed to pull image", goerr.V("image", ref))
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return goerr.Wrap(err, "failed to read image pull progress", goerr.V("image", ref))
	}
	return nil
}

// StartContainer starts a created container
func (r *runtime) StartContainer(ctx context.Context, name string) error {
	if err := r.docker.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return wrapNotFound(err, "failed to start container", name)
	}
	return nil
}

// InspectContainer returns the live state of a container
func (r *runtime) InspectContainer(ctx context.Context, name string) (*model.ContainerInfo, error) {
	info, err := r.docker.ContainerInspect(ctx, name)
	if err != nil {
		return nil, wrapNotFound(err, "failed to inspect container", name)
	}

	result := &model.ContainerInfo{
		ID:   info.ID,
		Name: strings.TrimPrefix(info.Name, "/"),
	}
	if info.State != nil {
		result.Status = info.State.Status
	}
	if info.Config != nil {
		result.Labels = info.Config.Labels
	}
	if info.NetworkSettings != nil {
		result.HostPort = firstHostPort(info.NetworkSettings.Ports)
	}

	return result, nil
}

// StopContainer stops a container, killing it after grace
func (r *runtime) StopContainer(ctx context.Context, name string, grace time.Duration) error {
	secs := int(grace.Seconds())
	if err := r.docker.ContainerStop(ctx, name, container.StopOptions{Timeout: &secs}); err != nil {
		return wrapNotFound(err, "failed to stop container", name)
	}
	return nil
}

// RemoveContainer deletes a container and waits until its name is free
func (r *runtime) RemoveContainer(ctx context.Context, name string, force bool) error {
	err := r.docker.ContainerRemove(ctx, name, container.RemoveOptions{Force: force})
	switch {
	case err == nil:
		return nil
	case errdefs.IsConflict(err):
		// auto-remove already in progress
		return r.waitRemoved(ctx, name)
	default:
		return wrapNotFound(err, "failed to remove container", name)
	}
}

func (r *runtime) waitRemoved(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, removalWait)
	defer cancel()

	waitC, errC := r.docker.ContainerWait(ctx, name, container.WaitConditionRemoved)
	select {
	case <-waitC:
		return nil
	case err := <-errC:
		if errdefs.IsNotFound(err) {
			return nil
		}
		return goerr.Wrap(err, "failed to wait for container removal", goerr.V("name", name))
	}
}

// ListContainers returns all containers, running or not, that carry label
func (r *runtime) ListContainers(ctx context.Context, label string) ([]*model.ContainerInfo, error) {
	list, err := r.docker.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", label)),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list containers", goerr.V("label", label))
	}

	result := make([]*model.ContainerInfo, 0, len(list))
	for _, c := range list {
		info := &model.ContainerInfo{
			ID:     c.ID,
			Status: c.State,
			Labels: c.Labels,
		}
		if len(c.Names) > 0 {
			info.Name = strings.TrimPrefix(c.Names[0], "/")
		}
		for _, p := range c.Ports {
			if p.PublicPort != 0 {
				info.HostPort = int(p.PublicPort)
				break
			}
		}
		result = append(result, info)
	}
	return result, nil
}

func buildConfig(spec *model.ContainerSpec) (*container.Config, *container.HostConfig) {
	proto := spec.Protocol
	if proto == "" {
		proto = "tcp"
	}
	port := nat.Port(fmt.Sprintf("%d/%s", spec.ContainerPort, proto))

	cfg := &container.Config{
		Image:        spec.Image,
		Cmd:          spec.Cmd,
		WorkingDir:   spec.WorkingDir,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}

	hostCfg := &container.HostConfig{
		AutoRemove: spec.AutoRemove,
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   spec.MountSource,
				Target:   spec.MountTarget,
				ReadOnly: false,
			},
		},
		// An empty HostPort lets the daemon pick a free one
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: ""}},
		},
	}

	return cfg, hostCfg
}

func firstHostPort(ports nat.PortMap) int {
	for _, bindings := range ports {
		for _, b := range bindings {
			if n, err := strconv.Atoi(b.HostPort); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func wrapNotFound(err error, msg, name string) error {
	if errdefs.IsNotFound(err) {
		return goerr.Wrap(model.ErrContainerNotFound, msg, goerr.V("name", name), goerr.V("cause", err.Error()))
	}
	return goerr.Wrap(err, msg, goerr.V("name", name))
}
