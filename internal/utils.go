package internal

import (
	"context"
	"errors"
	"os"

	"github.com/kvesta/imagescan/config"
	"github.com/kvesta/imagescan/internal/report"
	"github.com/kvesta/imagescan/pkg/inspector"
	"github.com/kvesta/imagescan/pkg/osrelease"
	"github.com/kvesta/imagescan/pkg/packages"
	"github.com/kvesta/imagescan/pkg/vulnlib"

	log "github.com/sirupsen/logrus"
)

// DoScan describes image and, as requested, checks it against the official
// images and scans its Debian packages.
func DoScan(ctx context.Context, a *Analyzer, image string, opts Options) error {
	log.Infof(config.Cyan("Analysing image: %s"), image)

	rep := &report.Report{}

	info, err := a.Runtime.Describe(ctx, image)
	switch {
	case errors.Is(err, inspector.ErrImageNotFound):
		log.Warnf("image %s not found locally", config.Yellow(image))
	case err != nil:
		return err
	default:
		rep.Image = info
		if a.table() {
			report.ResolveImageInfo(a.Out, info)
		}
	}

	if opts.CheckOfficial {
		log.Infof("Checking whether the image is official")

		res, err := a.Registry.Check(ctx, image)
		if err != nil {
			log.Debugf("registry check: %v", err)
		}
		rep.Official = res
		if a.table() {
			report.ResolveOfficial(a.Out, res, err)
		}
	}

	if opts.CheckVulns {
		log.Infof("Checking system packages for vulnerabilities")

		res, err := a.scanner().Scan(ctx, image)
		if err != nil {
			return err
		}
		rep.Scan = res
		if a.table() {
			report.ResolveScanData(a.Out, res)
		}

		if res.Status == packages.ToolUnsupported {
			rep.OS = a.detectOs(ctx, image)
		}

		a.writeMetrics()
	}

	return a.output(rep)
}

// DoDescribe prints the metadata of a local image.
func DoDescribe(ctx context.Context, a *Analyzer, image string) error {
	info, err := a.Runtime.Describe(ctx, image)
	if err != nil {
		return err
	}

	if a.table() {
		report.ResolveImageInfo(a.Out, info)
	}

	return a.output(&report.Report{Image: info})
}

// DoOfficial checks image against the Docker Hub official repositories.
func DoOfficial(ctx context.Context, a *Analyzer, image string) error {
	res, err := a.Registry.Check(ctx, image)
	if err != nil {
		log.Debugf("registry check: %v", err)
	}

	if a.table() {
		report.ResolveOfficial(a.Out, res, err)
	}

	return a.output(&report.Report{Official: res})
}

// DoPurgeCache removes the advisory cache database.
func DoPurgeCache(s *config.Settings) error {
	if _, err := os.Stat(s.Cache.Path); os.IsNotExist(err) {
		log.Infof("No cache at %s", s.Cache.Path)
		return nil
	}

	cache, err := vulnlib.OpenCache(s.Cache.Path, s.Cache.TTL)
	if err != nil {
		return err
	}

	if err := cache.Purge(); err != nil {
		return err
	}

	log.Infof(config.Green("Removed advisory cache %s"), s.Cache.Path)
	return nil
}

func (a *Analyzer) detectOs(ctx context.Context, image string) *osrelease.OsVersion {
	osVersion, err := osrelease.DetectOs(ctx, a.Runtime, image)
	if err != nil {
		log.Debugf("detect os: %v", err)
		return nil
	}

	log.Infof("Detect OS: %s", osVersion)
	if a.table() {
		report.ResolveOS(a.Out, osVersion)
	}

	return osVersion
}

func (a *Analyzer) table() bool {
	return a.Settings.Output.Format == config.FormatTable
}

func (a *Analyzer) output(rep *report.Report) error {
	if !a.table() {
		if err := report.Print(a.Out, rep, a.Settings.Output.Format); err != nil {
			return err
		}
	}

	if a.Settings.Output.File == "" {
		return nil
	}

	if _, err := report.SaveReport(rep, a.Settings.Output.File, a.Settings.Output.Format); err != nil {
		log.Errorf("saving error %v", err)
		return err
	}

	return nil
}

func (a *Analyzer) writeMetrics() {
	path := a.Settings.Metrics.Textfile
	if path == "" {
		return
	}

	if err := a.Metrics.WriteTextfile(path); err != nil {
		log.Warnf("failed to write metrics to %s: %v", path, err)
		return
	}
	log.Debugf("Lookup metrics written to %s", path)
}
