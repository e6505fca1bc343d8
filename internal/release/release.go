// Package release looks up netcoredbg release assets on GitHub and downloads
// them.
package release

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"dapboot/internal/platform"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DefaultRepo    = "Samsung/netcoredbg"
)

var (
	ErrNoAsset         = errors.New("REL_NO_ASSET: release has no asset for this platform")
	ErrReleaseNotFound = errors.New("REL_NOT_FOUND: release not found")
)

type Asset struct {
	Name   string `json:"name"`
	URL    string `json:"browser_download_url"`
	Size   int64  `json:"size"`
	Digest string `json:"digest,omitempty"`
}

type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

type Client struct {
	client  *http.Client
	apiBase string
	repo    string
	token   string
}

// New builds a client for repo ("owner/name"). DAPBOOT_RELEASE_API overrides
// apiBase and GITHUB_TOKEN, when set, authenticates requests.
func New(client *http.Client, apiBase, repo string) *Client {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if repo == "" {
		repo = DefaultRepo
	}
	return &Client{
		client:  client,
		apiBase: resolveAPIBase(apiBase),
		repo:    repo,
		token:   os.Getenv("GITHUB_TOKEN"),
	}
}

func resolveAPIBase(apiBase string) string {
	if explicit := os.Getenv("DAPBOOT_RELEASE_API"); explicit != "" {
		apiBase = explicit
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return strings.TrimSuffix(apiBase, "/")
}

func (c *Client) releaseURL(version string) string {
	return fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.apiBase, c.repo, url.PathEscape(version))
}

// FindAsset returns the asset of release version built for triple.
func (c *Client) FindAsset(ctx context.Context, version string, triple platform.Triple) (Asset, error) {
	rel, err := c.fetchRelease(ctx, version)
	if err != nil {
		return Asset{}, err
	}
	name := platform.AssetName(triple)
	for _, a := range rel.Assets {
		if name != "" && a.Name == name {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %q not in release %s", ErrNoAsset, name, version)
}

func (c *Client) fetchRelease(ctx context.Context, version string) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releaseURL(version), nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("REL_FETCH: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Release{}, fmt.Errorf("%w: %s/%s", ErrReleaseNotFound, c.repo, version)
	}
	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("REL_FETCH: status %d", resp.StatusCode)
	}
	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("REL_DECODE: %w", err)
	}
	return rel, nil
}

// Download streams asset into w and verifies its sha256 digest when the
// release index publishes one.
func (c *Client) Download(ctx context.Context, asset Asset, w io.Writer) (int64, error) {
	resolved := asset.URL
	if u, err := url.Parse(asset.URL); err == nil && !u.IsAbs() {
		base, baseErr := url.Parse(c.apiBase + "/")
		if baseErr == nil {
			resolved = base.ResolveReference(u).String()
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/octet-stream")
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("REL_DOWNLOAD: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("REL_DOWNLOAD: status %d", resp.StatusCode)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(w, h), resp.Body)
	if err != nil {
		return n, fmt.Errorf("REL_DOWNLOAD: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("REL_DOWNLOAD: empty payload")
	}
	if err := verifyChecksum(h.Sum(nil), asset.Digest); err != nil {
		return n, err
	}
	return n, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func verifyChecksum(sum []byte, digest string) error {
	digest = strings.ToLower(strings.TrimSpace(digest))
	if !strings.HasPrefix(digest, "sha256:") {
		return nil
	}
	expected := strings.TrimPrefix(digest, "sha256:")
	actual := hex.EncodeToString(sum)
	if actual != expected {
		return fmt.Errorf("REL_CHECKSUM: expected %s got %s", expected, actual)
	}
	return nil
}
