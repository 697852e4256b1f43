package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// ContainerRuntime is the subset of a container engine the lifecycle manager
// drives. Methods taking a name also accept a container ID. Implementations
// return model.ErrContainerNotFound (possibly wrapped) for missing containers.
type ContainerRuntime interface {
	CreateContainer(ctx context.Context, spec *model.ContainerSpec) (string, error)
	StartContainer(ctx context.Context, name string) error
	InspectContainer(ctx context.Context, name string) (*model.ContainerInfo, error)
	StopContainer(ctx context.Context, name string, grace time.Duration) error
	RemoveContainer(ctx context.Context, name string, force bool) error
	// ListContainers returns all containers carrying the given label key
	ListContainers(ctx context.Context, label string) ([]*model.ContainerInfo, error)
}

// WorkspaceStore maps pull requests onto per-PR directories
type WorkspaceStore interface {
	Path(pr types.PRNumber) string
	Prepare(ctx context.Context, pr types.PRNumber) (string, error)
	Destroy(ctx context.Context, pr types.PRNumber) (bool, error)
	List(ctx context.Context) ([]types.PRNumber, error)
}

// Notifier tells operators about provisioned and removed test servers
type Notifier interface {
	NotifyStarted(ctx context.Context, repo model.Repository, server *model.TestServer) error
	NotifyStopped(ctx context.Context, repo model.Repository, pr types.PRNumber, reason string) error
}
