package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher. Empty credentials mean anonymous.
type FTPOptions struct {
	Timeout  time.Duration
	Username string
	Password string
}

// FTPFetcher downloads from and archives to an FTP server.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Username == "" {
		opts.Username = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, p string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	p = u.Path
	if p == "" {
		return "", "", eris.New("empty path in ftp url")
	}

	return host, p, nil
}

func (f *FTPFetcher) connect(ctx context.Context, host string) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login(f.opts.Username, f.opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp login")
	}
	return conn, nil
}

// ftpConnReader wraps an FTP response and connection so that closing the
// reader also closes the FTP response and disconnects from the server.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

// Download connects to the FTP server, retrieves the file, and returns a
// reader. The caller must close it to release the FTP connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, p, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", p))

	conn, err := f.connect(ctx, host)
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(p)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// DownloadToFile downloads the FTP URL to a local file. Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, localPath string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	file, err := os.Create(localPath)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, rc)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}

	return n, nil
}

// Upload stores r under the directory named by ftpURL, as name.
func (f *FTPFetcher) Upload(ctx context.Context, ftpURL, name string, r io.Reader) error {
	host, dir, err := parseFTPURL(ftpURL)
	if err != nil {
		return err
	}

	conn, err := f.connect(ctx, host)
	if err != nil {
		return err
	}
	defer conn.Quit() //nolint:errcheck

	target := path.Join(dir, name)
	if err := conn.Stor(target, r); err != nil {
		return eris.Wrapf(err, "ftp store %s", target)
	}

	zap.L().Info("ftp: uploaded snapshot", zap.String("path", target))
	return nil
}

// ArchiveEntry describes one remote file considered by Cleanup.
type ArchiveEntry struct {
	Name     string
	Size     uint64
	Modified time.Time
}

// List returns the entries of the archive directory that match pattern
// (path.Match syntax). Directories are skipped.
func (f *FTPFetcher) List(ctx context.Context, ftpURL, pattern string) ([]ArchiveEntry, error) {
	host, dir, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	conn, err := f.connect(ctx, host)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	entries, err := conn.List(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ftp list %s", dir)
	}

	var out []ArchiveEntry
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		ok, err := path.Match(pattern, e.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "bad archive pattern %q", pattern)
		}
		if !ok {
			continue
		}
		out = append(out, ArchiveEntry{Name: e.Name, Size: e.Size, Modified: e.Time})
	}
	return out, nil
}

// Cleanup deletes matching archive files older than maxAge. A file whose
// deletion fails is logged and skipped; the sweep continues. Returns the
// number of files deleted.
func (f *FTPFetcher) Cleanup(ctx context.Context, ftpURL, pattern string, maxAge time.Duration, now time.Time) (int, error) {
	host, dir, err := parseFTPURL(ftpURL)
	if err != nil {
		return 0, err
	}

	conn, err := f.connect(ctx, host)
	if err != nil {
		return 0, err
	}
	defer conn.Quit() //nolint:errcheck

	entries, err := conn.List(dir)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp list %s", dir)
	}

	cutoff := now.Add(-maxAge)
	deleted := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return deleted, eris.Wrap(ctx.Err(), "ftp cleanup cancelled")
		}
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		ok, err := path.Match(pattern, e.Name)
		if err != nil {
			return deleted, eris.Wrapf(err, "bad archive pattern %q", pattern)
		}
		if !ok || !e.Time.Before(cutoff) {
			continue
		}

		target := path.Join(dir, e.Name)
		if err := conn.Delete(target); err != nil {
			zap.L().Warn("ftp: delete failed, skipping",
				zap.String("path", target),
				zap.Error(err),
			)
			continue
		}
		deleted++
		zap.L().Debug("ftp: deleted expired snapshot", zap.String("path", target))
	}

	return deleted, nil
}
