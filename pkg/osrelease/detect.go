package osrelease

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/kvesta/imagescan/pkg/inspector"

	log "github.com/sirupsen/logrus"
)

const DefaultTimeout = 15 * time.Second

// Reference https://www.freedesktop.org/software/systemd/man/os-release.html
var paths = []string{"/etc/os-release", "/usr/lib/os-release", "/etc/centos-release", "/etc/photon-release"}

var versionRegex = regexp.MustCompile(`(\d+\.)?(\d+\.)?(\*|\d+)$`)

var ErrUnknownOS = errors.New("no os release file found")

type Runner interface {
	RunEphemeral(ctx context.Context, ref string, cmd []string, timeout time.Duration) (*inspector.RunResult, error)
}

// DetectOs reads the first release file present in image through a
// throwaway container.
func DetectOs(ctx context.Context, rt Runner, image string) (*OsVersion, error) {
	for _, p := range paths {
		res, err := rt.RunEphemeral(ctx, image, []string{"cat", p}, DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if res.ExitCode != 0 || strings.TrimSpace(res.Stdout) == "" {
			log.Debugf("detect os: %s not readable in %s", p, image)
			continue
		}

		return getOs(res.Stdout, p), nil
	}

	return nil, ErrUnknownOS
}

func parse(config, path string) map[string]string {
	m := make(map[string]string)

	for _, line := range strings.Split(config, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		switch path {
		case "/etc/os-release", "/usr/lib/os-release":
			index := strings.Index(line, "=")
			if index > -1 {
				m[line[:index]] = strings.Trim(line[index+1:], `"'`)
			}
		case "/etc/centos-release":
			m["NAME"] = "CentOS Linux"
			m["ID"] = "centos"
			m["VERSION_ID"] = versionRegex.FindString(line)
		case "/etc/photon-release":
			index := strings.Index(line, "=")
			if index > -1 {
				m["VERSION"] = strings.TrimSpace(line[index+1:])
			} else {
				m["NAME"] = "VMware Photon OS"
				m["ID"] = "photon"
				m["VERSION_ID"] = versionRegex.FindString(line)
			}
		default:
			// ignore
		}
	}

	return m
}

func getOs(config, path string) *OsVersion {
	os := &OsVersion{
		NAME: "Linux",
		OID:  "linux",
	}

	for k, v := range parse(config, path) {
		switch k {
		case "NAME":
			os.NAME = v
		case "ID":
			os.OID = v
		case "VERSION":
			os.VERSION = v
		case "VERSION_ID":
			os.VERSION_ID = v
		}
	}

	return os
}
