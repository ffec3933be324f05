package inspector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	removed []string

	pingFunc    func(ctx context.Context) (types.Ping, error)
	inspectFunc func(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	createFunc  func(ctx context.Context, config *container.Config) (container.ContainerCreateCreatedBody, error)
	startFunc   func(ctx context.Context, containerID string) error
	waitFunc    func(ctx context.Context, containerID string) (<-chan container.ContainerWaitOKBody, <-chan error)
	logsFunc    func(ctx context.Context, containerID string) (io.ReadCloser, error)
}

func (f *fakeAPI) Ping(ctx context.Context) (types.Ping, error) {
	if f.pingFunc != nil {
		return f.pingFunc(ctx)
	}
	return types.Ping{APIVersion: "1.41"}, nil
}

func (f *fakeAPI) ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
	if f.inspectFunc != nil {
		return f.inspectFunc(ctx, imageID)
	}
	return types.ImageInspect{ID: "sha256:abc"}, nil, nil
}

func (f *fakeAPI) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
	networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, config)
	}
	return container.ContainerCreateCreatedBody{ID: "0123456789abcdef"}, nil
}

func (f *fakeAPI) ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error {
	if f.startFunc != nil {
		return f.startFunc(ctx, containerID)
	}
	return nil
}

func (f *fakeAPI) ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.ContainerWaitOKBody, <-chan error) {
	if f.waitFunc != nil {
		return f.waitFunc(ctx, containerID)
	}
	return exited(0)
}

func (f *fakeAPI) ContainerLogs(ctx context.Context, containerID string, options types.ContainerLogsOptions) (io.ReadCloser, error) {
	if f.logsFunc != nil {
		return f.logsFunc(ctx, containerID)
	}
	return muxed(""), nil
}

func (f *fakeAPI) ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *fakeAPI) Close() error {
	return nil
}

func exited(code int64) (<-chan container.ContainerWaitOKBody, <-chan error) {
	statusCh := make(chan container.ContainerWaitOKBody, 1)
	statusCh <- container.ContainerWaitOKBody{StatusCode: code}
	return statusCh, make(chan error)
}

func muxed(stdout string) io.ReadCloser {
	var buf bytes.Buffer
	w := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	_, _ = w.Write([]byte(stdout))
	return io.NopCloser(&buf)
}

func TestRunEphemeral(t *testing.T) {
	api := &fakeAPI{
		createFunc: func(ctx context.Context, config *container.Config) (container.ContainerCreateCreatedBody, error) {
			assert.Equal(t, "debian:11", config.Image)
			assert.Equal(t, []string{"dpkg-query", "-W"}, []string(config.Cmd))
			return container.ContainerCreateCreatedBody{ID: "c1"}, nil
		},
		logsFunc: func(ctx context.Context, containerID string) (io.ReadCloser, error) {
			return muxed("curl 7.64.0\nbash 5.0\n"), nil
		},
	}
	da := &DockerApi{DCli: api}

	res, err := da.RunEphemeral(context.Background(), "debian:11", []string{"dpkg-query", "-W"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "curl 7.64.0\nbash 5.0\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"c1"}, api.removed)
}

func TestRunEphemeralExitCode(t *testing.T) {
	api := &fakeAPI{
		waitFunc: func(ctx context.Context, containerID string) (<-chan container.ContainerWaitOKBody, <-chan error) {
			return exited(127)
		},
	}
	da := &DockerApi{DCli: api}

	res, err := da.RunEphemeral(context.Background(), "alpine", []string{"dpkg-query"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 127, res.ExitCode)
	assert.Len(t, api.removed, 1)
}

func TestRunEphemeralTimeout(t *testing.T) {
	api := &fakeAPI{
		waitFunc: func(ctx context.Context, containerID string) (<-chan container.ContainerWaitOKBody, <-chan error) {
			// never exits
			return make(chan container.ContainerWaitOKBody), make(chan error)
		},
	}
	da := &DockerApi{DCli: api}

	_, err := da.RunEphemeral(context.Background(), "debian", []string{"sleep"}, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Len(t, api.removed, 1, "container must be removed after a timeout")
}

func TestRunEphemeralCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeAPI{
		waitFunc: func(ctx context.Context, containerID string) (<-chan container.ContainerWaitOKBody, <-chan error) {
			cancel()
			return make(chan container.ContainerWaitOKBody), make(chan error)
		},
	}
	da := &DockerApi{DCli: api}

	_, err := da.RunEphemeral(ctx, "debian", []string{"sleep"}, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, api.removed, 1)
}

func TestRunEphemeralStartFailure(t *testing.T) {
	api := &fakeAPI{
		startFunc: func(ctx context.Context, containerID string) error {
			return errors.New("exec format error")
		},
	}
	da := &DockerApi{DCli: api}

	_, err := da.RunEphemeral(context.Background(), "debian", []string{"true"}, time.Second)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Len(t, api.removed, 1)
}

func TestRunEphemeralMissingExecutable(t *testing.T) {
	api := &fakeAPI{
		startFunc: func(ctx context.Context, containerID string) error {
			return errors.New(`OCI runtime create failed: exec: "dpkg-query": executable file not found in $PATH: unknown`)
		},
	}
	da := &DockerApi{DCli: api}

	res, err := da.RunEphemeral(context.Background(), "alpine", []string{"dpkg-query", "-W"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 127, res.ExitCode)
	assert.Len(t, api.removed, 1)
}

func TestRunEphemeralDaemonGone(t *testing.T) {
	api := &fakeAPI{
		createFunc: func(ctx context.Context, config *container.Config) (container.ContainerCreateCreatedBody, error) {
			return container.ContainerCreateCreatedBody{}, client.ErrorConnectionFailed("unix:///var/run/docker.sock")
		},
	}
	da := &DockerApi{DCli: api}

	_, err := da.RunEphemeral(context.Background(), "debian", []string{"true"}, time.Second)
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
	assert.Empty(t, api.removed)
}

func TestRunEphemeralCreateFailure(t *testing.T) {
	api := &fakeAPI{
		createFunc: func(ctx context.Context, config *container.Config) (container.ContainerCreateCreatedBody, error) {
			return container.ContainerCreateCreatedBody{}, errors.New("no space left")
		},
	}
	da := &DockerApi{DCli: api}

	_, err := da.RunEphemeral(context.Background(), "debian", []string{"true"}, time.Second)
	require.Error(t, err)
	assert.Empty(t, api.removed, "nothing was created")
}

func TestImageExists(t *testing.T) {
	type args struct {
		err error
	}

	tests := []struct {
		name    string
		args    args
		want    bool
		wantErr bool
	}{
		{
			name: "present",
			args: args{err: nil},
			want: true,
		},
		{
			name: "absent",
			args: args{err: errdefs.NotFound(errors.New("no such image"))},
			want: false,
		},
		{
			name:    "daemon error",
			args:    args{err: errors.New("connection refused")},
			want:    false,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				inspectFunc: func(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
					return types.ImageInspect{}, nil, tt.args.err
				},
			}
			da := &DockerApi{DCli: api}

			got, err := da.ImageExists(context.Background(), "nginx:latest")
			if (err != nil) != tt.wantErr {
				t.Errorf("ImageExists() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ImageExists() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	api := &fakeAPI{
		inspectFunc: func(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
			return types.ImageInspect{
				ID:           "sha256:0123",
				RepoTags:     []string{"python:3.9-slim"},
				RepoDigests:  []string{"python@sha256:feed"},
				Created:      "2022-08-01T00:00:00Z",
				Size:         3 * 1024 * 1024,
				Os:           "linux",
				Architecture: "amd64",
			}, nil, nil
		},
	}
	da := &DockerApi{DCli: api}

	info, err := da.Describe(context.Background(), "python:3.9-slim")
	require.NoError(t, err)
	assert.Equal(t, &ImageInfo{
		ID:           "sha256:0123",
		Tags:         []string{"python:3.9-slim"},
		RepoDigests:  []string{"python@sha256:feed"},
		Created:      "2022-08-01T00:00:00Z",
		SizeMB:       3,
		OS:           "linux",
		Architecture: "amd64",
	}, info)

	api.inspectFunc = func(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
		return types.ImageInspect{}, nil, errdefs.NotFound(errors.New("missing"))
	}
	_, err = da.Describe(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		ping    types.Ping
		err     error
		wantErr bool
	}{
		{name: "current", ping: types.Ping{APIVersion: "1.41"}},
		{name: "no header", ping: types.Ping{}},
		{name: "too old", ping: types.Ping{APIVersion: "1.12"}, wantErr: true},
		{name: "unreachable", err: errors.New("dial unix /var/run/docker.sock"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				pingFunc: func(ctx context.Context) (types.Ping, error) {
					return tt.ping, tt.err
				},
			}
			da := &DockerApi{DCli: api}

			err := da.Ping(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRuntimeUnavailable)
				return
			}
			assert.NoError(t, err)
		})
	}
}
