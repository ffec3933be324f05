package vulnscan

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/kvesta/imagescan/config"
	"github.com/kvesta/imagescan/pkg/inspector"
	"github.com/kvesta/imagescan/pkg/packages"
	"github.com/kvesta/imagescan/pkg/vulnlib"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Scan runs extraction, lookup and aggregation against image. Expected
// outcomes, including a missing image or an unsupported package manager,
// come back as a ScanResult status. An error means the runtime failed or
// ctx was cancelled, and no result is published.
func (ps *Scanner) Scan(ctx context.Context, image string) (*ScanResult, error) {
	ps.enter(image, Start)

	ok, err := ps.Runtime.ImageExists(ctx, image)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warnf("image %s is not available locally", config.Yellow(image))
		ps.enter(image, ExtractionFailed)
		return failedResult(image, packages.ImageNotFound), nil
	}

	ps.enter(image, Extracting)
	log.Infof(config.Green("Extracting package list from %s"), image)

	packs, status, err := ps.Extractor.Extract(ctx, image)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, inspector.ErrRuntimeUnavailable) {
		return nil, err
	}
	if status != packages.Success {
		if err != nil {
			log.Errorf("extraction failed: %v", err)
		}
		ps.enter(image, ExtractionFailed)
		return failedResult(image, status), nil
	}

	ps.enter(image, Extracted)
	log.Infof("Found %d packages, checking them against the advisory service", len(packs))

	ps.enter(image, LookingUp)
	results, skipped, err := ps.lookup(ctx, packs)
	if err != nil {
		return nil, err
	}

	ps.enter(image, Aggregating)
	findings, count := Aggregate(results)

	ps.enter(image, Done)

	return &ScanResult{
		Image:              image,
		Status:             packages.Success,
		Packages:           packs,
		Findings:           findings,
		VulnerabilityCount: count,
		SkippedPackages:    skipped,
	}, nil
}

// lookup queries every package with bounded parallelism. Each goroutine
// writes its own slot so results keep the package order.
func (ps *Scanner) lookup(ctx context.Context, packs []packages.Package) ([][]vulnlib.Finding, int, error) {
	results := make([][]vulnlib.Finding, len(packs))
	var skipped int64

	limit := ps.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range packs {
		i, p := i, p

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			findings, err := ps.VulnDB.Query(gctx, p)
			ps.Metrics.Observe(len(findings), err, time.Since(start))

			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				atomic.AddInt64(&skipped, 1)
				log.WithFields(log.Fields{
					"package": p.Name,
					"version": p.Version,
				}).Warnf("lookup skipped: %v", err)

				results[i] = []vulnlib.Finding{}
				return nil
			}

			if findings == nil {
				findings = []vulnlib.Finding{}
			}
			results[i] = findings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	return results, int(skipped), nil
}

func (ps *Scanner) enter(image string, s State) {
	log.WithField("image", image).Debugf("scan state: %s", s)
}
