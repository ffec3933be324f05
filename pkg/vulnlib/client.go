package vulnlib

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kvesta/imagescan/pkg/packages"
	"golang.org/x/time/rate"
)

const (
	OSVUrl = "https://api.osv.dev/v1/query"

	// Ecosystem is the OSV ecosystem every dpkg package is queried under.
	Ecosystem = "Debian"

	// NoDescription replaces summaries the advisory service leaves out.
	NoDescription = "no description"

	DefaultTimeout = 10 * time.Second
)

// ErrLookupFailed wraps every per-package lookup failure.
var ErrLookupFailed = errors.New("vulnerability lookup failed")

// Finding is one advisory matched against one package version.
type Finding struct {
	Package packages.Package `json:"package" yaml:"package"`
	ID      string           `json:"id" yaml:"id"`
	Summary string           `json:"summary" yaml:"summary"`
}

// Lookup queries the advisories of a single package version.
type Lookup interface {
	Query(ctx context.Context, p packages.Package) ([]Finding, error)
}

type Client struct {
	Cli *http.Client
	URL string

	// Timeout bounds one HTTP exchange. DefaultTimeout applies when unset.
	Timeout time.Duration

	limiter *rate.Limiter
}

type Option func(*Client)

// WithRateLimit caps the queries per second shared by all callers of the client.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.URL = url
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	tr := &http.Transport{
		IdleConnTimeout:     60 * time.Second,
		MaxIdleConnsPerHost: 16,
	}

	c := &Client{
		Cli: &http.Client{
			Transport: tr,
		},
		URL:     OSVUrl,
		Timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}
