package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Cache is a persistent HTTP cache for remote template sources, with
// ETag/Last-Modified revalidation. Entries are keyed by URL hash; each
// entry is a payload file plus a JSON metadata file.
type Cache struct {
	Dir    string
	Client *http.Client
}

// New returns a Cache rooted at dir with a default HTTP client. Template
// sources are small, so the timeout is short.
func New(dir string) *Cache {
	return &Cache{
		Dir: dir,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	DataFile     string `json:"data_file"`
}

// GetString fetches the URL and returns its body, reusing the cached copy
// when the server reports it unmodified. Returns (body, fromCache, error).
func (c *Cache) GetString(ctx context.Context, url string) (string, bool, error) {
	path, fromCache, err := c.Get(ctx, url)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	return string(b), fromCache, nil
}

// Get fetches the URL into the cache and returns the local file path.
func (c *Cache) Get(ctx context.Context, url string) (string, bool, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	dataPath := filepath.Join(c.Dir, key+".data")

	var m meta
	haveMeta := false
	if b, err := os.ReadFile(mpath); err == nil {
		if json.Unmarshal(b, &m) == nil && m.URL == url && fileExists(dataPath) {
			haveMeta = true
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	if haveMeta {
		if m.ETag != "" {
			req.Header.Set("If-None-Match", m.ETag)
		}
		if m.LastModified != "" {
			req.Header.Set("If-Modified-Since", m.LastModified)
		}
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		// Offline or flaky network: reuse the cached copy best-effort.
		if haveMeta {
			return dataPath, true, nil
		}
		return "", false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveMeta:
		return dataPath, true, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := streamToFile(resp.Body, dataPath, 0o644); err != nil {
			return "", false, err
		}
		nm := meta{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			DataFile:     filepath.Base(dataPath),
		}
		if err := writeMeta(mpath, nm); err != nil {
			return "", false, err
		}
		return dataPath, false, nil
	default:
		return "", false, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}
}

func streamToFile(r io.Reader, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
