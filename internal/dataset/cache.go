package dataset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/FlavioCFOliveira/fcnn-mnist/internal/errs"
)

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Cache is a Fetcher backed by a directory of files named after the MD5 of
// their source URL. Entries are never invalidated.
type Cache struct {
	Dir    string
	Client *http.Client
}

// NewCache returns a cache rooted at dir. An empty dir selects the system
// temporary directory and a nil client selects http.DefaultClient.
func NewCache(dir string, client *http.Client) *Cache {
	if dir == "" {
		dir = os.TempDir()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{Dir: dir, Client: client}
}

// Path returns the cache file used for url.
func (c *Cache) Path(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(c.Dir, hex.EncodeToString(sum[:]))
}

// Fetch returns the content of url, from disk when a non-empty entry exists
// and from the network otherwise. A downloaded body is written to a
// temporary file and renamed into place.
func (c *Cache) Fetch(ctx context.Context, url string) ([]byte, error) {
	path := c.Path(url)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.IO("read", path, err)
		}
		return data, nil
	}

	log.Printf("fetching %s", url)
	data, err := c.download(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.store(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Cache) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Network(url, err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errs.Network(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Network(url, fmt.Errorf("bad status: %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Network(url, err)
	}
	return data, nil
}

func (c *Cache) store(path string, data []byte) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return errs.IO("mkdir", c.Dir, err)
	}
	tmp, err := os.CreateTemp(c.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.IO("create", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.IO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IO("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.IO("rename", path, err)
	}
	return nil
}
