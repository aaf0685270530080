package illustraitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultImageName is the file name used when the caller does not pick one.
func DefaultImageName(now time.Time) string {
	return fmt.Sprintf("illustraitor_%d.png", now.UnixMilli())
}

// Download streams the image at imageURL into w and returns the bytes written.
// It shares the client's time budget and error kinds.
func (c *Client) Download(ctx context.Context, imageURL string, w io.Writer) (int64, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return 0, validationError("not a downloadable image URL: %q", imageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, validationError("building download request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &Error{
			Kind:       KindServer,
			Message:    fmt.Sprintf("image download failed: HTTP %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, c.transportError(ctx, err)
	}
	return n, nil
}
