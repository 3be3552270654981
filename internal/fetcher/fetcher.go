// Package fetcher downloads dataset files over HTTP or FTP and unpacks
// archives and tabular files into rows.
package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Downloader writes a remote resource to a local file.
type Downloader interface {
	// DownloadToFile fetches rawURL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error)
}

// IsRemote reports whether location is an http(s) or ftp URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return true
	default:
		return false
	}
}

// Mux dispatches downloads to the HTTP or FTP fetcher by URL scheme.
type Mux struct {
	HTTP Downloader
	FTP  Downloader
}

// NewMux returns a Mux with default HTTP and FTP fetchers.
func NewMux(httpOpts HTTPOptions, ftpOpts FTPOptions) *Mux {
	return &Mux{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// DownloadToFile implements Downloader.
func (m *Mux) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: parse url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if m.HTTP == nil {
			return 0, eris.New("fetcher: no http downloader configured")
		}
		return m.HTTP.DownloadToFile(ctx, rawURL, path)
	case "ftp":
		if m.FTP == nil {
			return 0, eris.New("fetcher: no ftp downloader configured")
		}
		return m.FTP.DownloadToFile(ctx, rawURL, path)
	default:
		return 0, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
