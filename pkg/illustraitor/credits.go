package illustraitor

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// CheckCredits asks the service for the balance of key. A missing key fails
// with a ValidationError and a key rejected with a 4xx status with a
// ServerError; both wrap ErrInvalidKey. A 5xx status is a plain ServerError,
// and transport problems are network or timeout errors, so callers can tell
// "bad key" from "service down".
func (c *Client) CheckCredits(ctx context.Context, key string) (*Balance, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &Error{Kind: KindValidation, Message: "invalid key: no API key provided", Err: ErrInvalidKey}
	}
	if IsMasked(key) {
		return nil, &Error{Kind: KindValidation, Message: "invalid key: masked display copy", Err: ErrInvalidKey}
	}

	raw, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/credits/" + url.PathEscape(key),
		route:  "/credits/{key}",
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Kind == KindServer && e.StatusCode >= 400 && e.StatusCode < 500 {
			return nil, &Error{Kind: KindServer, Message: "invalid key", StatusCode: e.StatusCode, Err: ErrInvalidKey}
		}
		return nil, err
	}

	var b Balance
	if err := decode(raw, &b); err != nil {
		return nil, err
	}
	if b.Credits < 0 {
		b.Credits = 0
	}
	b.raw = raw
	return &b, nil
}

// Register creates an account and returns its API key and starting credits.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = "User"
	}
	if err := validate.Struct(in); err != nil {
		return nil, fieldError(err)
	}

	raw, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/register",
		route:  "/register",
		body:   in,
	})
	if err != nil {
		return nil, err
	}

	var reg Registration
	if err := decode(raw, &reg); err != nil {
		return nil, err
	}
	if reg.APIKey == "" {
		return nil, parseError("registration response has no api_key", nil)
	}
	reg.raw = raw
	return &reg, nil
}
