package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ErrFileReference is returned when no file id can be parsed from a resume link.
var ErrFileReference = errors.New("cannot resolve file id from link")

const googleDocMimeType = "application/vnd.google-apps.document"

// Fetcher downloads a referenced file into a local path.
type Fetcher interface {
	Fetch(ctx context.Context, fileID, dest string) error
}

// ParseFileID extracts a Drive file id from a resume link. An explicit
// "id=" parameter wins; otherwise the path segment after "/d/" is used.
func ParseFileID(link string) (string, error) {
	link = strings.TrimSpace(link)

	if _, rest, ok := strings.Cut(link, "id="); ok {
		id, _, _ := strings.Cut(rest, "&")
		if id != "" {
			return id, nil
		}
		return "", fmt.Errorf("%w: %s", ErrFileReference, link)
	}

	if _, rest, ok := strings.Cut(link, "/d/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		id, _, _ = strings.Cut(id, "?")
		if id != "" {
			return id, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrFileReference, link)
}

// DriveFetcher downloads resume files from Google Drive.
type DriveFetcher struct {
	service *drive.Service
}

// NewDriveFetcher creates a fetcher backed by the Drive API.
func NewDriveFetcher(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*DriveFetcher, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}
	return &DriveFetcher{service: srv}, nil
}

// Fetch streams the file content into dest. Native Google Docs are
// exported as plain text.
func (d *DriveFetcher) Fetch(ctx context.Context, fileID, dest string) error {
	meta, err := d.service.Files.Get(fileID).
		Fields("name", "mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to read file metadata %s: %w", fileID, err)
	}

	var resp *http.Response
	if meta.MimeType == googleDocMimeType {
		resp, err = d.service.Files.Export(fileID, "text/plain").Context(ctx).Download()
	} else {
		resp, err = d.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return copyAndClose(f, resp.Body)
}

// copyAndClose copies src into dst and reports the close error when the
// copy itself succeeded.
func copyAndClose(dst io.WriteCloser, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
