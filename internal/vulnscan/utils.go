package vulnscan

import (
	"github.com/kvesta/imagescan/pkg/packages"
	"github.com/kvesta/imagescan/pkg/vulnlib"
)

// Aggregate flattens per-package findings, keeping package order, and
// returns them with their total.
func Aggregate(results [][]vulnlib.Finding) ([]vulnlib.Finding, int) {
	total := 0
	for _, r := range results {
		total += len(r)
	}

	findings := make([]vulnlib.Finding, 0, total)
	for _, r := range results {
		findings = append(findings, r...)
	}

	return findings, len(findings)
}

func failedResult(image string, status packages.Status) *ScanResult {
	return &ScanResult{
		Image:    image,
		Status:   status,
		Packages: []packages.Package{},
		Findings: []vulnlib.Finding{},
	}
}
