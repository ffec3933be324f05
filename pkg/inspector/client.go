package inspector

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

var (
	// ErrTimeout is returned by RunEphemeral when the command outlives its deadline.
	ErrTimeout = errors.New("command timed out")

	// ErrImageNotFound is returned by Describe for references with no local image.
	ErrImageNotFound = errors.New("image not found")

	// ErrRuntimeUnavailable marks a daemon that cannot be reached or is too old.
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
)

// APIClient is the subset of the Docker Engine API used by the scanner.
type APIClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.ContainerWaitOKBody, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options types.ContainerLogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	Close() error
}

type DockerApi struct {
	DCli APIClient

	// RemoveTimeout bounds the clean-up of ephemeral containers, which runs
	// on a fresh context so that cancelled scans still remove them.
	RemoveTimeout time.Duration
}

// RunResult is the captured outcome of an ephemeral container run.
type RunResult struct {
	Stdout   string
	ExitCode int
}

// ImageInfo holds the descriptive metadata of a local image.
type ImageInfo struct {
	ID           string   `json:"id" yaml:"id"`
	Tags         []string `json:"tags" yaml:"tags"`
	RepoDigests  []string `json:"repo_digests" yaml:"repo_digests"`
	Created      string   `json:"created" yaml:"created"`
	SizeMB       float64  `json:"size_mb" yaml:"size_mb"`
	OS           string   `json:"os" yaml:"os"`
	Architecture string   `json:"architecture" yaml:"architecture"`
}
