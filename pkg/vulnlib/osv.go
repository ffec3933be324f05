package vulnlib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/kvesta/imagescan/pkg/packages"
	"github.com/tidwall/gjson"
)

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// Query asks the advisory service about one package version. Every failure
// comes back wrapped in ErrLookupFailed together with zero findings.
func (c *Client) Query(ctx context.Context, p packages.Package) ([]Finding, error) {
	// The limiter only answers to the caller, Timeout bounds the exchange.
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return []Finding{}, fmt.Errorf("%w: %s: rate limiter: %v", ErrLookupFailed, p, err)
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resBody, err := c.osvRequest(ctx, p)
	if err != nil {
		return []Finding{}, fmt.Errorf("%w: %s: %v", ErrLookupFailed, p, err)
	}

	findings, err := parseVulns(resBody, p)
	if err != nil {
		return []Finding{}, fmt.Errorf("%w: %s: %v", ErrLookupFailed, p, err)
	}

	return findings, nil
}

func (c *Client) osvRequest(ctx context.Context, p packages.Package) ([]byte, error) {
	data, err := json.Marshal(osvQuery{
		Package: osvPackage{
			Name:      p.Name,
			Ecosystem: Ecosystem,
		},
		Version: p.Version,
	})
	if err != nil {
		return nil, err
	}

	url := c.URL
	if url == "" {
		url = OSVUrl
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	cli := c.Cli
	if cli == nil {
		cli = http.DefaultClient
	}

	res, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	return ioutil.ReadAll(res.Body)
}

// parseVulns maps the "vulns" array of a response onto findings. A missing
// or empty array is a clean result.
func parseVulns(body []byte, p packages.Package) ([]Finding, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}

	findings := []Finding{}

	gjson.GetBytes(body, "vulns").ForEach(func(_, vuln gjson.Result) bool {
		summary := vuln.Get("summary").String()
		if summary == "" {
			summary = NoDescription
		}

		findings = append(findings, Finding{
			Package: p,
			ID:      vuln.Get("id").String(),
			Summary: summary,
		})
		return true
	})

	return findings, nil
}
