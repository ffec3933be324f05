package registry

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DockerHubUrl = "https://hub.docker.com"

	tagPath = "%s/v2/repositories/library/%s/tags/%s/"

	DefaultTimeout = 10 * time.Second
)

// Status is the outcome of an official-image lookup.
type Status int

const (
	Indeterminate Status = iota
	Official
	NotOfficial
)

func (s Status) String() string {
	switch s {
	case Official:
		return "Official"
	case NotOfficial:
		return "NotOfficial"
	default:
		return "Indeterminate"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result describes whether repository:tag exists among the official images.
type Result struct {
	Repository  string `json:"repository" yaml:"repository"`
	Tag         string `json:"tag" yaml:"tag"`
	Status      Status `json:"status" yaml:"status"`
	StatusCode  int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	LastUpdated string `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
	Digest      string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

type Client struct {
	Cli     *http.Client
	BaseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DockerHubUrl
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		Cli:     &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Check looks the image tag up in the official library namespace. The
// returned Result is always usable; err explains an Indeterminate status.
func (c *Client) Check(ctx context.Context, image string) (*Result, error) {
	repo, tag := SplitReference(image)

	r := &Result{
		Repository: repo,
		Tag:        tag,
		Status:     Indeterminate,
	}

	url := fmt.Sprintf(tagPath, c.BaseURL, shortName(repo), tag)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return r, err
	}

	res, err := c.Cli.Do(req)
	if err != nil {
		return r, fmt.Errorf("failed to request url %s: %w", url, err)
	}
	defer res.Body.Close()

	r.StatusCode = res.StatusCode

	switch res.StatusCode {
	case http.StatusOK:
		r.Status = Official
	case http.StatusNotFound:
		r.Status = NotOfficial
		return r, nil
	default:
		return r, fmt.Errorf("unexpected status %s", res.Status)
	}

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return r, nil
	}

	r.LastUpdated = gjson.GetBytes(body, "last_updated").String()
	r.Digest = gjson.GetBytes(body, "digest").String()
	if r.Digest == "" {
		r.Digest = gjson.GetBytes(body, "images.0.digest").String()
	}

	return r, nil
}

// SplitReference splits an image reference into repository and tag. The
// tag defaults to "latest"; registry ports and digests are not tags.
func SplitReference(image string) (string, string) {
	if i := strings.Index(image, "@"); i > -1 {
		image = image[:i]
	}

	repo, tag := image, "latest"
	if i := strings.LastIndex(image, ":"); i > strings.LastIndex(image, "/") {
		repo, tag = image[:i], image[i+1:]
	}

	return repo, tag
}

func shortName(repo string) string {
	parts := strings.Split(repo, "/")
	return parts[len(parts)-1]
}
