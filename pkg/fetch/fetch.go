// Package fetch retrieves compressed feed archives over HTTP and hands back
// their decompressed contents.
package fetch

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
)

// ErrFetch wraps every network or decompression failure. The orchestrator
// treats it as fatal for the whole run.
var ErrFetch = errors.New("fetch error")

const defaultTimeout = 5 * time.Minute

type Client struct {
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

func NewClient(opts ...Option) Client {
	client := Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&client)
	}
	return client
}

// FetchGzip downloads a gzip archive and returns the decompressed bytes.
func (c Client) FetchGzip(ctx context.Context, url string) ([]byte, error) {
	eb := oops.With("url", url)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	gr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "gzip open error")
	}
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "gzip read error")
	}
	return raw, nil
}

// FetchZip downloads a zip container and returns the contents of its first
// entry, which is how the weakness catalog is published.
func (c Client) FetchZip(ctx context.Context, url string) ([]byte, error) {
	eb := oops.With("url", url)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "zip open error")
	}
	if len(zr.File) == 0 {
		return nil, eb.Wrapf(ErrFetch, "empty zip archive")
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "zip entry open error")
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "zip entry read error")
	}
	return raw, nil
}

func (c Client) get(ctx context.Context, url string) ([]byte, error) {
	eb := oops.With("url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "request build error")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "http get error")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eb.With("status", resp.StatusCode).Wrapf(ErrFetch, "unexpected response status")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eb.Wrapf(errors.Join(ErrFetch, err), "body read error")
	}
	return body, nil
}
