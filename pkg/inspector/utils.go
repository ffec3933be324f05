package inspector

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"
	version2 "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
)

// MinAPIVersion is the oldest Engine API the ephemeral runs are tested against.
const MinAPIVersion = "1.25"

const defaultRemoveTimeout = 15 * time.Second

// NewDockerApi connects to the daemon described by the DOCKER_* environment
// and verifies that it answers.
func NewDockerApi(ctx context.Context) (*DockerApi, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Errorf("init docker environment failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}

	da := &DockerApi{
		DCli:          cli,
		RemoveTimeout: defaultRemoveTimeout,
	}

	if err := da.Ping(ctx); err != nil {
		cli.Close()
		return nil, err
	}

	return da, nil
}

// Ping checks that the daemon is reachable and speaks at least MinAPIVersion.
func (da *DockerApi) Ping(ctx context.Context) error {
	p, err := da.DCli.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}

	// Older daemons do not send the header
	if p.APIVersion == "" {
		return nil
	}

	current, err := version2.NewVersion(p.APIVersion)
	if err != nil {
		log.Debugf("unparsable api version %q: %v", p.APIVersion, err)
		return nil
	}

	minimum := version2.Must(version2.NewVersion(MinAPIVersion))
	if current.LessThan(minimum) {
		return fmt.Errorf("%w: api version %s is older than %s",
			ErrRuntimeUnavailable, p.APIVersion, MinAPIVersion)
	}

	return nil
}

func (da *DockerApi) Close() error {
	return da.DCli.Close()
}

func (da *DockerApi) removeTimeout() time.Duration {
	if da.RemoveTimeout <= 0 {
		return defaultRemoveTimeout
	}
	return da.RemoveTimeout
}
