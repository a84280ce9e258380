// Package checksum verifies batch files against their sidecar checksum files.
// The walk treats verification as opaque; this package provides the MD5
// sidecar convention used by newspaper batches.
package checksum

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

var ErrMismatch = errors.New("checksum mismatch")

// MismatchError describes a file whose digest differs from its sidecar.
type MismatchError struct {
	File     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: sidecar has %s, file has %s", e.File, e.Expected, e.Actual)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// Verifier checks a file against its checksum sidecar.
type Verifier interface {
	Verify(ctx context.Context, file, sidecar string) error
}

// Cache computes each file's MD5 digest at most once. Concurrent callers
// asking for the same file share one computation. The shared computation is
// not tied to any single caller's context, so one cancelled batch cannot fail
// the others waiting on the same file.
type Cache struct {
	group   singleflight.Group
	mu      sync.Mutex
	digests map[string]string
	compute func(ctx context.Context, file string) (string, error)
}

func NewCache() *Cache {
	return &Cache{digests: make(map[string]string), compute: digestFile}
}

// Digest returns the lowercase hex MD5 digest of file. It returns ctx's error
// as soon as ctx is done, even while another caller's computation of the same
// file is still running.
func (c *Cache) Digest(ctx context.Context, file string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	if d, ok := c.digests[file]; ok {
		c.mu.Unlock()
		return d, nil
	}
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(file, func() (interface{}, error) {
		d, err := c.compute(detached, file)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.digests[file] = d
		c.mu.Unlock()
		return d, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func digestFile(ctx context.Context, file string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadSidecar returns the digest recorded in a sidecar file. Sidecars hold the
// hex digest, optionally followed by whitespace and a file name as written by
// md5sum.
func ReadSidecar(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read checksum sidecar %s: %w", path, err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return "", fmt.Errorf("checksum sidecar %s is empty", path)
	}
	digest := strings.ToLower(fields[0])
	if _, err := hex.DecodeString(digest); err != nil || len(digest) != md5.Size*2 {
		return "", fmt.Errorf("checksum sidecar %s does not contain an MD5 digest", path)
	}
	return digest, nil
}

// MD5Verifier verifies files against MD5 sidecars.
type MD5Verifier struct {
	cache *Cache
}

func NewMD5Verifier(cache *Cache) *MD5Verifier {
	if cache == nil {
		cache = NewCache()
	}
	return &MD5Verifier{cache: cache}
}

func (v *MD5Verifier) Verify(ctx context.Context, file, sidecar string) error {
	expected, err := ReadSidecar(sidecar)
	if err != nil {
		return err
	}
	actual, err := v.cache.Digest(ctx, file)
	if err != nil {
		return err
	}
	if actual != expected {
		return &MismatchError{File: file, Expected: expected, Actual: actual}
	}
	return nil
}
