package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kvesta/imagescan/config"
	"github.com/kvesta/imagescan/internal/vulnscan"
	"github.com/kvesta/imagescan/pkg/inspector"
	"github.com/kvesta/imagescan/pkg/osrelease"
	"github.com/kvesta/imagescan/pkg/packages"
	"github.com/kvesta/imagescan/pkg/registry"

	"github.com/olekukonko/tablewriter"
)

const maxSummary = 200

// ResolveImageInfo prints the metadata of a local image
func ResolveImageInfo(w io.Writer, info *inspector.ImageInfo) {
	fmt.Fprintf(w, "\n%s\n", config.Cyan("Image:"))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetRowLine(true)

	table.AppendBulk([][]string{
		{"ID", info.ID},
		{"Tags", joinOrDash(info.Tags)},
		{"RepoDigests", joinOrDash(info.RepoDigests)},
		{"Created", info.Created},
		{"Size", fmt.Sprintf("%.2f MB", info.SizeMB)},
		{"Platform", fmt.Sprintf("%s/%s", info.OS, info.Architecture)},
	})

	table.Render()
}

// ResolveOfficial prints the outcome of the Docker Hub lookup
func ResolveOfficial(w io.Writer, r *registry.Result, err error) {
	ref := fmt.Sprintf("%s:%s", r.Repository, r.Tag)

	switch r.Status {
	case registry.Official:
		fmt.Fprintf(w, "%s image '%s' is published in the official Docker Hub repository\n",
			config.Green("[OK]"), ref)
		if r.LastUpdated != "" {
			fmt.Fprintf(w, "     last updated: %s\n", r.LastUpdated)
		}
	case registry.NotOfficial:
		fmt.Fprintf(w, "%s image '%s' is not among the official images\n",
			config.Yellow("[!]"), ref)
	default:
		if err != nil {
			fmt.Fprintf(w, "%s official check for '%s' is indeterminate: %v\n",
				config.Red("[!]"), ref, err)
			return
		}
		fmt.Fprintf(w, "%s official check for '%s' is indeterminate\n", config.Red("[!]"), ref)
	}
}

// ResolveScanData prints the findings of an image scan
func ResolveScanData(w io.Writer, r *vulnscan.ScanResult) {
	switch r.Status {
	case packages.Success:
	case packages.ImageNotFound:
		fmt.Fprintf(w, "%s image '%s' not found\n", config.Red("[!]"), r.Image)
		return
	case packages.ToolUnsupported:
		fmt.Fprintf(w, "%s dpkg-query did not run, the image is probably not Debian based\n",
			config.Yellow("[!]"))
		return
	case packages.CommandTimeout:
		fmt.Fprintf(w, "%s package extraction timed out\n", config.Yellow("[!]"))
		return
	default:
		fmt.Fprintf(w, "%s package extraction failed\n", config.Red("[!]"))
		return
	}

	if len(r.Packages) == 0 {
		fmt.Fprintf(w, "%s\n", config.Yellow("No packages found."))
		return
	}

	for _, f := range r.Findings {
		fmt.Fprintf(w, "%s %s %s -> %s: %s\n", config.Red("[OSV]"),
			f.Package.Name, f.Package.Version, f.ID, f.Summary)
	}

	if len(r.Findings) > 0 {
		fmt.Fprintln(w)

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"ID", "Name", "Version", "Advisory", "Summary"})
		table.SetRowLine(true)
		table.SetAutoMergeCellsByColumnIndex([]int{1, 2})

		for i, f := range r.Findings {
			table.Append([]string{
				strconv.Itoa(i + 1), f.Package.Name, f.Package.Version,
				f.ID, truncate(f.Summary),
			})
		}

		table.Render()
	}

	fmt.Fprintf(w, "\nChecked %s packages", config.Yellow(len(r.Packages)))
	if r.SkippedPackages > 0 {
		fmt.Fprintf(w, " | Skipped: %s", config.Red(r.SkippedPackages))
	}
	fmt.Fprintf(w, "\nTotal vulnerabilities found via OSV: %s\n", config.Cyan(r.VulnerabilityCount))
}

// ResolveOS prints the distribution found in an image without dpkg
func ResolveOS(w io.Writer, o *osrelease.OsVersion) {
	fmt.Fprintf(w, "    detected OS: %s\n", config.Cyan(o.String()))
	if o.IsDebianFamily() {
		fmt.Fprintf(w, "    the image is %s based but dpkg-query is not available\n", o.OID)
	}
}

// truncate cuts s to maxSummary runes.
func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxSummary {
		return string(r[:maxSummary]) + " ..."
	}
	return s
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
