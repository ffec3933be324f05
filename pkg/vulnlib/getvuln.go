package vulnlib

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kvesta/imagescan/pkg/packages"
	log "github.com/sirupsen/logrus"
)

// CachedLookup answers from the cache when it can and stores every
// successful answer of the wrapped Lookup. Failures are never cached.
type CachedLookup struct {
	Lookup Lookup
	Cache  *Cache
}

func (cl *CachedLookup) Query(ctx context.Context, p packages.Package) ([]Finding, error) {
	findings, ok, err := cl.Cache.Get(ctx, p)
	if err != nil {
		log.WithField("package", p.Name).Debugf("cache read failed: %v", err)
	}
	if ok {
		return findings, nil
	}

	findings, err = cl.Lookup.Query(ctx, p)
	if err != nil {
		return findings, err
	}

	if err := cl.Cache.Put(ctx, p, findings); err != nil {
		log.WithField("package", p.Name).Debugf("cache write failed: %v", err)
	}

	return findings, nil
}

// DefaultCachePath is the cache location under the user's home directory.
func DefaultCachePath() string {
	dir, err := getHomeDir()
	if err != nil {
		log.Debugf("failed to get home dir, error: %v", err)
		dir = "."
	}

	if runtime.GOOS == "windows" {
		return filepath.Join(dir, "imagescandata", "cache.db")
	}
	return filepath.Join(dir, ".imagescan", "cache.db")
}

func getHomeDir() (string, error) {
	if runtime.GOOS == "windows" {
		return os.Getwd()
	}

	return os.UserHomeDir()
}
