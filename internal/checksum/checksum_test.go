package checksum

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestMD5Verifier_Verify(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.jp2")
	writeFile(t, file, "image bytes")

	t.Run("matching sidecar", func(t *testing.T) {
		sidecar := filepath.Join(dir, "ok.md5")
		writeFile(t, sidecar, md5Hex([]byte("image bytes"))+"  page.jp2\n")
		assert.NoError(t, NewMD5Verifier(nil).Verify(context.Background(), file, sidecar))
	})

	t.Run("uppercase digest", func(t *testing.T) {
		sidecar := filepath.Join(dir, "upper.md5")
		writeFile(t, sidecar, "  "+strings.ToUpper(md5Hex([]byte("image bytes"))))
		assert.NoError(t, NewMD5Verifier(nil).Verify(context.Background(), file, sidecar))
	})

	t.Run("mismatch", func(t *testing.T) {
		sidecar := filepath.Join(dir, "bad.md5")
		writeFile(t, sidecar, md5Hex([]byte("other bytes")))
		err := NewMD5Verifier(nil).Verify(context.Background(), file, sidecar)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMismatch))
		var mm *MismatchError
		require.True(t, errors.As(err, &mm))
		assert.Equal(t, file, mm.File)
	})

	t.Run("malformed sidecar", func(t *testing.T) {
		sidecar := filepath.Join(dir, "garbage.md5")
		writeFile(t, sidecar, "not-a-digest")
		err := NewMD5Verifier(nil).Verify(context.Background(), file, sidecar)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrMismatch))
	})

	t.Run("empty sidecar", func(t *testing.T) {
		sidecar := filepath.Join(dir, "empty.md5")
		writeFile(t, sidecar, "\n")
		assert.Error(t, NewMD5Verifier(nil).Verify(context.Background(), file, sidecar))
	})
}

func TestCache_DigestComputedOnce(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.jp2")
	writeFile(t, file, "first")

	cache := NewCache()
	first, err := cache.Digest(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, md5Hex([]byte("first")), first)

	// The cached digest survives a rewrite of the file.
	writeFile(t, file, "second")
	again, err := cache.Digest(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestCache_ConcurrentCallersAgree(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.jp2")
	writeFile(t, file, "shared")

	cache := NewCache()
	var wg sync.WaitGroup
	got := make([]string, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := cache.Digest(context.Background(), file)
			assert.NoError(t, err)
			got[i] = d
		}(i)
	}
	wg.Wait()
	for _, d := range got {
		assert.Equal(t, md5Hex([]byte("shared")), d)
	}
}

func TestCache_MissingFile(t *testing.T) {
	_, err := NewCache().Digest(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCache_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.jp2")
	writeFile(t, file, "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCache().Digest(ctx, file)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	cache := NewCache()
	cache.compute = func(ctx context.Context, file string) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "digest-of-" + filepath.Base(file), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.Digest(ctx, "/b/page.jp2")
		firstErr <- err
	}()
	<-started

	type result struct {
		digest string
		err    error
	}
	second := make(chan result, 1)
	go func() {
		d, err := cache.Digest(context.Background(), "/b/page.jp2")
		second <- result{d, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "digest-of-page.jp2", res.digest)
}
