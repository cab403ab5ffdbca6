package geolite

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultDownloadURL = "https://download.maxmind.com/app/geoip_download"
	asnEditionID       = "GeoLite2-ASN"
	userAgent          = "asnlookup-geolite-updater/1.0"
)

// ErrNoLicenseKey indicates that no MaxMind license key has been configured.
var ErrNoLicenseKey = errors.New("geolite: license key is not configured")

// Updater downloads the GeoLite2-ASN edition into a Resolver's path.
type Updater struct {
	LicenseKey  string
	DownloadURL string
	Client      *http.Client

	group singleflight.Group
}

func NewUpdater(licenseKey string) *Updater {
	return &Updater{
		LicenseKey:  strings.TrimSpace(licenseKey),
		DownloadURL: DefaultDownloadURL,
		Client:      &http.Client{Timeout: 2 * time.Minute},
	}
}

// Update downloads the current edition to destPath, replacing the file
// atomically. Concurrent calls share one download.
func (u *Updater) Update(ctx context.Context, destPath string) error {
	_, err, _ := u.group.Do(destPath, func() (interface{}, error) {
		if u.LicenseKey == "" {
			return nil, ErrNoLicenseKey
		}
		return nil, u.download(ctx, destPath)
	})
	return err
}

func (u *Updater) download(ctx context.Context, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.buildDownloadURL(), nil)
	if err != nil {
		return fmt.Errorf("geolite: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("geolite: download %s: %w", asnEditionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("geolite: download %s: unexpected status %d: %s", asnEditionID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	gzipReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("geolite: open gzip: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	wantName := asnEditionID + ".mmdb"
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("geolite: read tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg || filepath.Base(header.Name) != wantName {
			continue
		}
		if err := writeToFile(destPath, tarReader); err != nil {
			return fmt.Errorf("geolite: write %s: %w", destPath, err)
		}
		return nil
	}

	return fmt.Errorf("geolite: %s not found in archive", wantName)
}

func (u *Updater) buildDownloadURL() string {
	base := u.DownloadURL
	if base == "" {
		base = DefaultDownloadURL
	}
	return fmt.Sprintf("%s?edition_id=%s&license_key=%s&suffix=tar.gz", base, asnEditionID, u.LicenseKey)
}

func writeToFile(destPath string, data io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), "geolite-*.mmdb")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := io.Copy(tmpFile, data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), destPath); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
