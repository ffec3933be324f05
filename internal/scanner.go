package internal

import (
	"context"
	"io"
	"os"

	"github.com/kvesta/imagescan/config"
	"github.com/kvesta/imagescan/internal/metrics"
	"github.com/kvesta/imagescan/internal/vulnscan"
	"github.com/kvesta/imagescan/pkg/inspector"
	"github.com/kvesta/imagescan/pkg/packages"
	"github.com/kvesta/imagescan/pkg/registry"
	"github.com/kvesta/imagescan/pkg/vulnlib"

	log "github.com/sirupsen/logrus"
)

// Runtime is what the commands need from the container daemon.
type Runtime interface {
	vulnscan.ImageChecker
	packages.Runner
	Describe(ctx context.Context, ref string) (*inspector.ImageInfo, error)
	Close() error
}

// Analyzer holds the collaborators shared by every command.
type Analyzer struct {
	Settings *config.Settings

	Runtime  Runtime
	Lookup   vulnlib.Lookup
	Registry *registry.Client
	Metrics  *metrics.Lookups

	Out io.Writer

	cache *vulnlib.Cache
}

// Options selects the parts of an image analysis that run.
type Options struct {
	CheckOfficial bool
	CheckVulns    bool
	NoCache       bool
}

// NewAnalyzer connects to the daemon and prepares the lookup client,
// the advisory cache and the registry client from s.
func NewAnalyzer(ctx context.Context, s *config.Settings, opts Options) (*Analyzer, error) {
	da, err := inspector.NewDockerApi(ctx)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		Settings: s,
		Runtime:  da,
		Registry: registry.NewClient(s.Registry.URL, s.Registry.Timeout),
		Metrics:  metrics.NewLookups(),
		Out:      os.Stdout,
	}

	a.Lookup = vulnlib.NewClient(
		vulnlib.WithURL(s.OSV.URL),
		vulnlib.WithTimeout(s.OSV.Timeout),
		vulnlib.WithRateLimit(s.OSV.Rate, burst(s)),
	)

	if s.Cache.Enabled && !opts.NoCache && opts.CheckVulns {
		cache, err := vulnlib.OpenCache(s.Cache.Path, s.Cache.TTL)
		if err != nil {
			log.Warnf("advisory cache disabled: %v", err)
		} else {
			a.cache = cache
			a.Lookup = &vulnlib.CachedLookup{Lookup: a.Lookup, Cache: cache}
		}
	}

	return a, nil
}

func (a *Analyzer) scanner() *vulnscan.Scanner {
	timeout := a.Settings.Extract.Timeout
	if timeout <= 0 {
		timeout = packages.DefaultTimeout
	}

	return &vulnscan.Scanner{
		Runtime: a.Runtime,
		Extractor: &packages.Extractor{
			Runtime: a.Runtime,
			Timeout: timeout,
		},
		VulnDB:      a.Lookup,
		Concurrency: a.Settings.Scan.Concurrency,
		Metrics:     a.Metrics,
	}
}

// Close releases the daemon connection and the cache.
func (a *Analyzer) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Debugf("close cache: %v", err)
		}
	}

	if a.Runtime != nil {
		if err := a.Runtime.Close(); err != nil {
			log.Debugf("close docker client: %v", err)
		}
	}
}

func burst(s *config.Settings) int {
	if s.Scan.Concurrency > 0 {
		return s.Scan.Concurrency
	}
	return vulnscan.DefaultConcurrency
}
