package packages

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kvesta/imagescan/pkg/inspector"
	log "github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single inventory run.
const DefaultTimeout = 30 * time.Second

// InventoryCommand lists installed dpkg packages as "<name> <version>" lines.
var InventoryCommand = []string{"dpkg-query", "-W", "-f=${Package} ${Version}\\n"}

// Runner runs a command in a throwaway container of an image.
type Runner interface {
	RunEphemeral(ctx context.Context, ref string, cmd []string, timeout time.Duration) (*inspector.RunResult, error)
}

// Extractor produces the installed-package inventory of an image.
type Extractor struct {
	Runtime Runner
	Timeout time.Duration
}

// Extract runs the inventory command against ref. Expected failures are
// reported through the Status; the error is only set for CommandFailed and
// for a runtime that cannot be reached.
func (e *Extractor) Extract(ctx context.Context, ref string) ([]Package, Status, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res, err := e.Runtime.RunEphemeral(ctx, ref, InventoryCommand, timeout)
	switch {
	case err == nil:
	case errors.Is(err, inspector.ErrTimeout):
		log.Warnf("dpkg-query in %s timed out after %s", ref, timeout)
		return []Package{}, CommandTimeout, nil
	default:
		return []Package{}, CommandFailed, err
	}

	if res.ExitCode != 0 {
		log.Warnf("dpkg-query exited with %d, the image is probably not Debian based", res.ExitCode)
		return []Package{}, ToolUnsupported, nil
	}

	return ParseInventory(res.Stdout), Success, nil
}

// ParseInventory turns "<name> <version>" lines into packages. The line is
// split on the first space only; lines without one are dropped.
func ParseInventory(out string) []Package {
	packs := []Package{}

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)

		index := strings.Index(line, " ")
		if index < 0 {
			continue
		}

		packs = append(packs, Package{
			Name:    line[:index],
			Version: line[index+1:],
		})
	}

	return packs
}
