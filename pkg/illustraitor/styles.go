package illustraitor

import (
	"context"
	"net/http"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultStyleID is the style offered when the catalog cannot be fetched.
const DefaultStyleID = "creative"

// Catalog is the set of styles offered by the service.
type Catalog struct {
	Styles []Style `json:"styles"`
	// Fallback is set when the catalog is the built-in default rather than the service's.
	Fallback bool `json:"-"`

	raw []byte
}

// FallbackCatalog returns the single-style catalog used when the service's
// catalog is unavailable.
func FallbackCatalog() Catalog {
	return Catalog{
		Styles: []Style{{
			ID:          DefaultStyleID,
			Name:        "Creative",
			CreditsCost: 1,
			Description: "artistic, imaginative, colorful, abstract",
		}},
		Fallback: true,
	}
}

func (c Catalog) RawJSON() string { return string(c.raw) }

// Lookup returns the style with the given id.
func (c Catalog) Lookup(id string) (Style, bool) {
	return lo.Find(c.Styles, func(s Style) bool { return s.ID == id })
}

// Has reports whether id names a style in the catalog.
func (c Catalog) Has(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// IDs lists the style ids in catalog order.
func (c Catalog) IDs() []string {
	return lo.Map(c.Styles, func(s Style, _ int) string { return s.ID })
}

// Catalog returns the active catalog: the last one fetched successfully,
// or the fallback catalog if none has been.
func (c *Client) Catalog() Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog
}

// FetchStyles retrieves the style catalog. The returned catalog is never
// empty: on any failure it is the fallback catalog and err describes the
// failure, so callers can still offer a choice while reporting a timeout
// differently from other errors. A successful fetch replaces the active
// catalog wholesale.
func (c *Client) FetchStyles(ctx context.Context) (Catalog, error) {
	raw, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/styles",
		route:  "/styles",
		hc:     c.stylesClient,
	})
	if err != nil {
		return c.fallback(err)
	}

	var catalog Catalog
	if err := decode(raw, &catalog); err != nil {
		return c.fallback(err)
	}
	catalog.Styles = lo.Filter(catalog.Styles, func(s Style, _ int) bool { return s.ID != "" })
	if len(catalog.Styles) == 0 {
		return c.fallback(parseError("service returned no styles", nil))
	}
	for i := range catalog.Styles {
		if catalog.Styles[i].Name == "" {
			catalog.Styles[i].Name = catalog.Styles[i].ID
		}
		if catalog.Styles[i].CreditsCost < 0 {
			catalog.Styles[i].CreditsCost = 0
		}
	}
	catalog.raw = raw

	c.mu.Lock()
	c.catalog = catalog
	c.mu.Unlock()

	c.logger.Debug("style catalog replaced", zap.Int("styles", len(catalog.Styles)))
	return catalog, nil
}

func (c *Client) fallback(err error) (Catalog, error) {
	c.logger.Debug("using fallback style catalog", zap.Error(err))
	return FallbackCatalog(), err
}
