package docker

import (
	"testing"

	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/testbed/pkg/domain/model"
)

func TestBuildConfig(t *testing.T) {
	spec := &model.ContainerSpec{
		Name:          "testbed-pr-42",
		Image:         "eclipse-temurin:21-jre",
		Cmd:           []string{"java", "-jar", "Geyser.jar"},
		WorkingDir:    "/data",
		MountSource:   "/srv/testbed/42",
		MountTarget:   "/data",
		ContainerPort: 19132,
		Protocol:      "udp",
		Labels:        map[string]string{"testbed.pull-request": "42"},
		Env:           []string{"MOTD=Test PR #42"},
		AutoRemove:    true,
	}

	cfg, hostCfg := buildConfig(spec)

	gt.Value(t, cfg.Image).Equal("eclipse-temurin:21-jre")
	gt.Value(t, cfg.WorkingDir).Equal("/data")
	gt.Value(t, cfg.Labels["testbed.pull-request"]).Equal("42")
	_, exposed := cfg.ExposedPorts[nat.Port("19132/udp")]
	gt.True(t, exposed)

	gt.True(t, hostCfg.AutoRemove)
	gt.Number(t, len(hostCfg.Mounts)).Equal(1)
	gt.Value(t, hostCfg.Mounts[0].Type).Equal(mount.TypeBind)
	gt.Value(t, hostCfg.Mounts[0].Source).Equal("/srv/testbed/42")
	gt.Value(t, hostCfg.Mounts[0].ReadOnly).Equal(false)

	bindings := hostCfg.PortBindings[nat.Port("19132/udp")]
	gt.Number(t, len(bindings)).Equal(1)
	gt.Value(t, bindings[0].HostPort).Equal("")
}

func TestBuildConfig_DefaultProtocol(t *testing.T) {
	cfg, _ := buildConfig(&model.ContainerSpec{ContainerPort: 8080})
	_, exposed := cfg.ExposedPorts[nat.Port("8080/tcp")]
	gt.True(t, exposed)
}

func TestFirstHostPort(t *testing.T) {
	gt.Number(t, firstHostPort(nil)).Equal(0)

	ports := nat.PortMap{
		nat.Port("19132/udp"): []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "49153"}},
	}
	gt.Number(t, firstHostPort(ports)).Equal(49153)

	unpublished := nat.PortMap{nat.Port("19132/udp"): nil}
	gt.Number(t, firstHostPort(unpublished)).Equal(0)
}
