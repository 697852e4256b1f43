package model

import (
	"fmt"
	"net"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// ErrContainerNotFound is returned by a ContainerRuntime when the named
// container does not exist (or is already being removed).
var ErrContainerNotFound = goerr.New("container not found")

// ContainerState is the lifecycle state of the container for one pull request
type ContainerState string

const (
	ContainerAbsent   ContainerState = "absent"
	ContainerCreating ContainerState = "creating"
	ContainerRunning  ContainerState = "running"
	ContainerStopping ContainerState = "stopping"
)

// ContainerStateFromRuntime maps a runtime status string (docker's
// State.Status) onto a ContainerState.
func ContainerStateFromRuntime(status string) ContainerState {
	switch status {
	case "created", "restarting":
		return ContainerCreating
	case "running", "paused":
		return ContainerRunning
	case "removing", "exited", "dead":
		return ContainerStopping
	default:
		return ContainerAbsent
	}
}

// ContainerSpec is everything the runtime needs to create a test server container
type ContainerSpec struct {
	Name          string
	Image         string
	Cmd           []string
	WorkingDir    string
	MountSource   string
	MountTarget   string
	ContainerPort int
	Protocol      string // "udp" or "tcp"
	Labels        map[string]string
	Env           []string
	AutoRemove    bool
}

// ContainerInfo is the live state of a container as reported by the runtime
type ContainerInfo struct {
	ID       string
	Name     string
	Status   string
	HostPort int // zero until the port is published
	Labels   map[string]string
}

// State maps the runtime status onto a ContainerState
func (c *ContainerInfo) State() ContainerState {
	return ContainerStateFromRuntime(c.Status)
}

// TestServer is a running, reachable test server for a pull request
type TestServer struct {
	PRNumber      types.PRNumber
	ContainerName string
	ContainerID   string
	Host          string
	Port          int
}

// Address returns the host:port clients connect to
func (s *TestServer) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DeepLink returns a link that adds the server to a Bedrock client's list
func (s *TestServer) DeepLink() string {
	return fmt.Sprintf("minecraft://?addExternalServer=Test PR%%23%d|%s", s.PRNumber, s.Address())
}

// TeardownStatus is the outcome of removing a pull request's container
type TeardownStatus string

const (
	TeardownRemoved TeardownStatus = "removed"
	TeardownAbsent  TeardownStatus = "absent"
	TeardownFailed  TeardownStatus = "failed"
)

// TeardownResult reports what EnsureAbsent did. Err is set only for TeardownFailed.
type TeardownResult struct {
	Name   string
	Status TeardownStatus
	Err    error
}
