package illustraitor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SupportedServiceVersions is the range of service versions this client speaks.
const SupportedServiceVersions = ">= 2.0.0, < 3.0.0"

// Health reports the service's own view of its status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	raw, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/health",
		route:  "/health",
	})
	if err != nil {
		return nil, err
	}
	var h Health
	if err := decode(raw, &h); err != nil {
		return nil, err
	}
	h.raw = raw
	return &h, nil
}

// Compatible checks the reported version against SupportedServiceVersions.
func (h Health) Compatible() (bool, error) {
	if strings.TrimSpace(h.Version) == "" {
		return false, fmt.Errorf("service did not report a version")
	}
	v, err := semver.NewVersion(h.Version)
	if err != nil {
		return false, fmt.Errorf("parsing service version %q: %w", h.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedServiceVersions)
	if err != nil {
		return false, err
	}
	return constraint.Check(v), nil
}
