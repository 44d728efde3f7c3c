package relocate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kgay-travel/shoreline/internal/common"
	"kgay-travel/shoreline/internal/constants"
)

// BlobStore is the narrow storage contract the relocator consumes:
// a flat namespace with folder-like path prefixes. Bucket lifecycle is
// not managed here.
type BlobStore interface {
	// Download fetches the bytes and content type behind a URL
	Download(ctx context.Context, sourceURL string) ([]byte, string, error)

	// Upload stores bytes under a path with replace-if-exists semantics
	// and returns the public URL of the stored object
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// HTTPBlobStore talks plain HTTP: GET for downloads, PUT for uploads
// against an upload base, with objects served from a public base.
type HTTPBlobStore struct {
	Client     *http.Client
	UploadBase string
	PublicBase string
}

// Ensure HTTPBlobStore implements BlobStore
var _ BlobStore = (*HTTPBlobStore)(nil)

func NewHTTPBlobStore(uploadBase string, publicBase string) *HTTPBlobStore {
	return &HTTPBlobStore{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		UploadBase: strings.TrimRight(uploadBase, "/"),
		PublicBase: strings.TrimRight(publicBase, "/"),
	}
}

// Download fetches a source asset. Network faults and upstream 5xx map
// to transient errors; malformed URLs and other 4xx are permanent.
func (s *HTTPBlobStore) Download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, "", common.Permanent("download", constants.ErrCodeMalformedURL,
			fmt.Errorf("invalid source url %q", sourceURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", common.Permanent("download", constants.ErrCodeMalformedURL, err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, "", common.Transient("download", constants.ErrCodeNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", common.Transient("download", constants.ErrCodeNetworkError, err)
		}
		return data, resp.Header.Get("Content-Type"), nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", common.Transient("download", constants.ErrCodeRateLimited,
			fmt.Errorf("source returned %d", resp.StatusCode))

	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return nil, "", common.Transient("download", constants.ErrCodeNetworkError,
			fmt.Errorf("source returned %d", resp.StatusCode))

	default:
		// 404 and friends: the source is gone, retrying cannot help
		return nil, "", common.Permanent("download", constants.ErrCodeSourceGone,
			fmt.Errorf("source returned %d", resp.StatusCode))
	}
}

// Upload PUTs bytes under the upload base. Re-running overwrites the
// object at the same path rather than duplicating it.
func (s *HTTPBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	target := s.UploadBase + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", common.Permanent("upload", constants.ErrCodeUploadFailed, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", common.Transient("upload", constants.ErrCodeNetworkError, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return s.PublicBase + "/" + strings.TrimLeft(path, "/"), nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", common.Transient("upload", constants.ErrCodeUploadFailed,
			fmt.Errorf("target returned %d", resp.StatusCode))

	default:
		return "", common.Permanent("upload", constants.ErrCodeUploadFailed,
			fmt.Errorf("target returned %d", resp.StatusCode))
	}
}
