package vulnscan

import (
	"context"

	"github.com/kvesta/imagescan/internal/metrics"
	"github.com/kvesta/imagescan/pkg/packages"
	"github.com/kvesta/imagescan/pkg/vulnlib"
)

const DefaultConcurrency = 8

// ImageChecker resolves image references against the local runtime.
type ImageChecker interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
}

// Extractor produces the package inventory of an image.
type Extractor interface {
	Extract(ctx context.Context, ref string) ([]packages.Package, packages.Status, error)
}

type Scanner struct {
	Runtime   ImageChecker
	Extractor Extractor
	VulnDB    vulnlib.Lookup

	// Concurrency caps the lookups in flight.
	Concurrency int

	Metrics *metrics.Lookups
}

// ScanResult is the outcome of one scan. It is not modified after Scan returns.
type ScanResult struct {
	Image string `json:"image" yaml:"image"`

	Status             packages.Status    `json:"extraction_status" yaml:"extraction_status"`
	Packages           []packages.Package `json:"packages_found" yaml:"packages_found"`
	Findings           []vulnlib.Finding  `json:"findings" yaml:"findings"`
	VulnerabilityCount int                `json:"vulnerability_count" yaml:"vulnerability_count"`

	// SkippedPackages counts packages whose lookup failed.
	SkippedPackages int `json:"skipped_packages" yaml:"skipped_packages"`
}

// State is a step of the scan pipeline.
type State int

const (
	Start State = iota
	Extracting
	ExtractionFailed
	Extracted
	LookingUp
	Aggregating
	Done
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case Extracting:
		return "extracting"
	case ExtractionFailed:
		return "extraction failed"
	case Extracted:
		return "extracted"
	case LookingUp:
		return "looking up"
	case Aggregating:
		return "aggregating"
	case Done:
		return "done"
	}
	return "unknown"
}
