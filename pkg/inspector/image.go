package inspector

import (
	"context"
	"fmt"

	"github.com/docker/docker/errdefs"
)

// ImageExists reports whether ref resolves to a local image. It never pulls.
func (da *DockerApi) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, _, err := da.DCli.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return true, nil
	}

	if errdefs.IsNotFound(err) {
		return false, nil
	}

	return false, fmt.Errorf("inspect image %s: %w", ref, err)
}

// Describe returns the metadata of a local image.
func (da *DockerApi) Describe(ctx context.Context, ref string) (*ImageInfo, error) {
	ins, _, err := da.DCli.ImageInspectWithRaw(ctx, ref)
	if errdefs.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("inspect image %s: %w", ref, err)
	}

	info := &ImageInfo{
		ID:           ins.ID,
		Tags:         ins.RepoTags,
		RepoDigests:  ins.RepoDigests,
		Created:      ins.Created,
		SizeMB:       float64(ins.Size) / 1024 / 1024,
		OS:           ins.Os,
		Architecture: ins.Architecture,
	}

	return info, nil
}
