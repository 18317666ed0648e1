package fetch_test

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulncatalog/vulncatalog/pkg/fetch"
)

func gzipBytes(t *testing.T, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(content)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func zipBytes(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(name)
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetchGzip(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		wantErr bool
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(gzipBytes(t, []byte(`{"CVE_Items": []}`)))
			},
			want: `{"CVE_Items": []}`,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantErr: true,
		},
		{
			name: "not gzip",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text"))
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			client := fetch.NewClient(fetch.WithHTTPClient(ts.Client()))
			raw, err := client.FetchGzip(context.Background(), ts.URL)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, fetch.ErrFetch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestFetchZip(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		wantErr bool
	}{
		{
			name: "happy path returns first entry",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(zipBytes(t, "cwec_v4.12.xml", []byte(`<Weakness_Catalog/>`)))
			},
			want: `<Weakness_Catalog/>`,
		},
		{
			name: "empty archive",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var buf bytes.Buffer
				zw := zip.NewWriter(&buf)
				require.NoError(t, zw.Close())
				w.Write(buf.Bytes())
			},
			wantErr: true,
		},
		{
			name: "not a zip",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text"))
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			client := fetch.NewClient(fetch.WithHTTPClient(ts.Client()))
			raw, err := client.FetchZip(context.Background(), ts.URL)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, fetch.ErrFetch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestFetchContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := fetch.NewClient(fetch.WithHTTPClient(ts.Client()))
	_, err := client.FetchGzip(ctx, ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrFetch))
}
