package illustraitor

import (
	"encoding/json"
	"strings"
)

// Mode values reported by the service.
const (
	ModeOpenAI = "openai"
	ModeMock   = "mock"
	ModeDemo   = "demo"
)

// Style is a rendering preset offered by the service.
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreditsCost int    `json:"credits_cost"`
	Description string `json:"description"`
	DemoImage   string `json:"demo_image,omitempty"`
}

// GenerationRequest holds the user's input for a single generation.
type GenerationRequest struct {
	Text  string
	Style string
	// APIKey overrides the stored key for this request.
	APIKey string
	// NoKey sends the request without any credential, even if one is stored.
	NoKey bool

	Size        string `validate:"omitempty,oneof=1024x1024 1792x1024 1024x1792"`
	Quality     string `validate:"omitempty,oneof=standard hd"`
	UnsplashKey string
}

// GenerationResult is the outcome of a successful generation.
type GenerationResult struct {
	ImageURL       string  `json:"image_url"`
	Style          string  `json:"style,omitempty"`
	StyleName      string  `json:"style_name"`
	Mode           string  `json:"mode"`
	CreditsUsed    *int    `json:"credits_used,omitempty"`
	UsesUserKey    bool    `json:"uses_user_key"`
	Message        string  `json:"message,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`
	GenerationTime float64 `json:"generation_time,omitempty"`
	Model          string  `json:"model,omitempty"`

	raw []byte
}

// RawJSON returns the response body as received.
func (r GenerationResult) RawJSON() string { return string(r.raw) }

// IsAI reports whether the image came from a real generation backend.
func (r GenerationResult) IsAI() bool {
	return r.Mode == ModeOpenAI
}

// ModeLabel is the user-facing name of the backend that produced the image.
func (r GenerationResult) ModeLabel() string {
	switch {
	case r.Mode == ModeOpenAI:
		return "AI generation"
	case r.Mode == ModeDemo || strings.Contains(r.Mode, ModeMock):
		return "demo (stock imagery)"
	case r.Mode == "":
		return "unknown"
	default:
		return r.Mode
	}
}

// KeySource describes whose credential paid for an AI generation.
// It is empty for demo results.
func (r GenerationResult) KeySource() string {
	if !r.IsAI() {
		return ""
	}
	if r.UsesUserKey {
		return "your key"
	}
	return "server key"
}

// Balance is the server-side credit balance for a key.
type Balance struct {
	Credits int    `json:"credits"`
	Name    string `json:"name"`

	raw []byte
}

func (b Balance) RawJSON() string { return string(b.raw) }

// RegisterInput is the payload of a registration call.
type RegisterInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=100"`
}

// Registration is the account created by a registration call.
type Registration struct {
	APIKey  string   `json:"api_key"`
	Credits int      `json:"credits"`
	UserID  StringID `json:"user_id"`

	raw []byte
}

func (r Registration) RawJSON() string { return string(r.raw) }

// Health is the service's self-reported status.
type Health struct {
	Status    string   `json:"status"`
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Timestamp string   `json:"timestamp"`
	Features  []string `json:"features"`

	raw []byte
}

func (h Health) RawJSON() string { return string(h.raw) }

// StringID accepts both JSON strings and numbers.
type StringID string

func (s *StringID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = StringID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = StringID(n.String())
	return nil
}
