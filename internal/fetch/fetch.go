// Package fetch loads documents and candidate texts. A source is "-" for standard input, an
// http(s) URL, or a path on disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// UserAgent identifies halluscan to web servers.
const UserAgent = "halluscan/0.1"

const (
	localLimit = 50 << 20  // files and stdin
	webLimit   = 100 << 20 // downloads, checked as bytes arrive when Content-Length is absent

	downloadTimeout = 30 * time.Second
)

// ErrTooLarge reports a source over its size limit.
var ErrTooLarge = errors.New("source exceeds size limit")

var client = &http.Client{
	Timeout: downloadTimeout,
	Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: downloadTimeout / 6}).DialContext,
		TLSHandshakeTimeout:   downloadTimeout / 6,
		ResponseHeaderTimeout: downloadTimeout / 2,
		DisableKeepAlives:     true,
	},
}

// IsURL reports whether source is downloaded rather than read locally.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// GetContent opens source for reading. The caller closes the reader; reading past the
// source's size limit fails with ErrTooLarge.
func GetContent(ctx context.Context, source string) (io.ReadCloser, error) {
	if source == "-" {
		return &cappedReader{ReadCloser: io.NopCloser(os.Stdin), limit: localLimit, name: "stdin"}, nil
	}
	if IsURL(source) {
		return download(ctx, source)
	}
	return openFile(source)
}

// ReadAll loads a whole source into memory.
func ReadAll(ctx context.Context, source string) ([]byte, error) {
	rc, err := GetContent(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", source, err)
	}

	slog.Debug("Source read", "source", source, "bytes", len(data))
	return data, nil
}

// cappedReader errors once more than limit bytes have come through.
type cappedReader struct {
	io.ReadCloser
	limit int64
	read  int64
	name  string
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		return n, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, c.name, c.limit)
	}
	return n, err
}

func download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %q: %w", url, err)
	}

	switch {
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download %q: %s", url, resp.Status)
	case resp.ContentLength > webLimit:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %q declares %d bytes, limit is %d", ErrTooLarge, url, resp.ContentLength, webLimit)
	}

	return &cappedReader{ReadCloser: resp.Body, limit: webLimit, name: url}, nil
}

func openFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file %q does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	info, err := file.Stat()
	switch {
	case err != nil:
		file.Close()
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	case info.IsDir():
		file.Close()
		return nil, fmt.Errorf("%q is a directory", path)
	case info.Size() > localLimit:
		file.Close()
		return nil, fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrTooLarge, path, info.Size(), localLimit)
	}

	return file, nil
}
