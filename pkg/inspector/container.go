package inspector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	log "github.com/sirupsen/logrus"
)

// RunEphemeral runs cmd in a throwaway container of ref and captures its
// standard output. The container is removed before returning on every path.
func (da *DockerApi) RunEphemeral(ctx context.Context, ref string, cmd []string, timeout time.Duration) (*RunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := da.DCli.ContainerCreate(runCtx,
		&container.Config{
			Image:        ref,
			Cmd:          cmd,
			AttachStdout: true,
			AttachStderr: true,
		},
		&container.HostConfig{
			NetworkMode: "none",
		}, nil, nil, "")
	if err != nil {
		return nil, da.runError(ctx, runCtx, "create container", err)
	}

	defer da.remove(created.ID)

	if err := da.DCli.ContainerStart(runCtx, created.ID, types.ContainerStartOptions{}); err != nil {
		if code, ok := startExitCode(err); ok && runCtx.Err() == nil {
			log.Debugf("%s cannot run %s: %v", ref, cmd[0], err)
			return &RunResult{ExitCode: code}, nil
		}
		return nil, da.runError(ctx, runCtx, "start container", err)
	}

	statusCh, errCh := da.DCli.ContainerWait(runCtx, created.ID, container.WaitConditionNotRunning)

	var exitCode int64
	select {
	case err := <-errCh:
		return nil, da.runError(ctx, runCtx, "wait container", err)
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("wait container: %s", status.Error.Message)
		}
		exitCode = status.StatusCode
	case <-runCtx.Done():
		return nil, da.runError(ctx, runCtx, "wait container", runCtx.Err())
	}

	rc, err := da.DCli.ContainerLogs(runCtx, created.ID, types.ContainerLogsOptions{
		ShowStdout: true,
	})
	if err != nil {
		return nil, da.runError(ctx, runCtx, "read container logs", err)
	}
	defer rc.Close()

	var stdout bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, io.Discard, rc); err != nil {
		return nil, da.runError(ctx, runCtx, "read container logs", err)
	}

	return &RunResult{
		Stdout:   stdout.String(),
		ExitCode: int(exitCode),
	}, nil
}

// runError tells a deadline on the run apart from a cancelled caller.
func (da *DockerApi) runError(parent, runCtx context.Context, op string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}

	if client.IsErrConnectionFailed(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrRuntimeUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func (da *DockerApi) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), da.removeTimeout())
	defer cancel()

	err := da.DCli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err != nil {
		log.Warnf("failed to remove container %s: %v", shortID(id), err)
	}
}

// startExitCode maps a start failure of the container process to the exit
// code the docker CLI reports for it.
func startExitCode(err error) (int, bool) {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "executable file not found"),
		strings.Contains(msg, "no such file or directory"):
		return 127, true
	case strings.Contains(msg, "permission denied"):
		return 126, true
	}
	return 0, false
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
