package illustraitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type generatePayload struct {
	Text        string `json:"text"`
	Style       string `json:"style"`
	APIKey      string `json:"api_key,omitempty"`
	UnsplashKey string `json:"unsplash_key,omitempty"`
	Size        string `json:"size,omitempty"`
	Quality     string `json:"quality,omitempty"`
}

type generateResponse struct {
	GenerationResult
	Status string `json:"status"`
}

// Generate submits one generation request. Input is validated before any
// network I/O: the prompt must be non-blank and the style must be in the
// active catalog. The raw stored key is sent when req.APIKey is empty,
// unless req.NoKey is set; display-masked keys are rejected.
//
// Credits reported in the result are informational; the cached balance is
// only ever refreshed by CheckCredits.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, validationError("prompt is empty")
	}
	style := strings.TrimSpace(req.Style)
	if style == "" {
		return nil, validationError("no style selected")
	}
	catalog := c.Catalog()
	if !catalog.Has(style) {
		return nil, validationError("unknown style %q (available: %s)", style, strings.Join(catalog.IDs(), ", "))
	}
	if err := validate.Struct(req); err != nil {
		return nil, fieldError(err)
	}

	key, err := c.resolveKey(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/generate",
		route:  "/generate",
		body: generatePayload{
			Text:        text,
			Style:       style,
			APIKey:      key,
			UnsplashKey: strings.TrimSpace(req.UnsplashKey),
			Size:        req.Size,
			Quality:     req.Quality,
		},
	})
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := decode(raw, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "success" {
		msg := resp.Message
		if msg == "" {
			msg = "generation failed with status " + resp.Status
		}
		return nil, &Error{Kind: KindServer, Message: msg, StatusCode: http.StatusOK}
	}
	if resp.ImageURL == "" {
		return nil, parseError("service did not return an image", nil)
	}

	result := resp.GenerationResult
	result.raw = raw
	c.logger.Debug("generation finished",
		zap.String("mode", result.Mode),
		zap.Bool("uses_user_key", result.UsesUserKey),
		zap.String("service_request_id", result.RequestID),
	)
	return &result, nil
}

func (c *Client) resolveKey(ctx context.Context, req GenerationRequest) (string, error) {
	if req.NoKey {
		return "", nil
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" && c.keys != nil {
		stored, ok, err := c.keys.APIKey(ctx)
		if err != nil {
			return "", &Error{Kind: KindValidation, Message: "reading stored API key", Err: err}
		}
		if ok {
			key = stored
		}
	}
	if IsMasked(key) {
		return "", validationError("API key is a masked display copy; enter the full key")
	}
	return key, nil
}

// fieldError renders validator errors the same way for every request type.
func fieldError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed the '%s' rule (%s)", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed the '%s' rule", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return &Error{Kind: KindValidation, Message: strings.Join(msgs, "; "), Err: err}
}
