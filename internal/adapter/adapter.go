// Package adapter drives the client library on behalf of a user interface.
// It owns the generation guard and the credit refresh schedule, persists
// what the service returns, and reports every call to a Renderer as a
// loading event followed by exactly one success or error event.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/store"
)

const (
	// DefaultWatchInterval is how often WatchCredits refreshes the balance.
	DefaultWatchInterval = 30 * time.Second

	hintCheckCredits = "Check your balance with: illustraitor credits check"
	hintSetKey       = "Save a valid key with: illustraitor key set"
	hintRegister     = "No key saved. Run: illustraitor register --email you@example.com"
)

var (
	// ErrBusy is returned when a generation is requested while one is in flight.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrNoKey is returned by operations that need a saved key when there is none.
	ErrNoKey = errors.New("no API key saved")
)

// Service is the subset of *illustraitor.Client the adapter calls.
type Service interface {
	FetchStyles(ctx context.Context) (illustraitor.Catalog, error)
	Generate(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error)
	CheckCredits(ctx context.Context, key string) (*illustraitor.Balance, error)
	Register(ctx context.Context, in illustraitor.RegisterInput) (*illustraitor.Registration, error)
	Health(ctx context.Context) (*illustraitor.Health, error)
}

// KeyStore is the subset of *store.Store the adapter reads and writes.
type KeyStore interface {
	APIKey(ctx context.Context) (string, bool, error)
	SetAPIKey(ctx context.Context, key string) error
	ClearAPIKey(ctx context.Context) error
	Credits(ctx context.Context) (int, bool, error)
	SetCredits(ctx context.Context, n int) error
	AddCredits(ctx context.Context, n int) (int, error)
	SetUser(ctx context.Context, u store.User) error
}

// Adapter is safe for concurrent use.
type Adapter struct {
	svc          Service
	keys         KeyStore
	renderer     Renderer
	logger       *zap.Logger
	defaultStyle string

	generating atomic.Bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDefaultStyle sets the style used when a generation names none.
func WithDefaultStyle(id string) Option {
	return func(a *Adapter) {
		if id = strings.TrimSpace(id); id != "" {
			a.defaultStyle = id
		}
	}
}

// New creates an Adapter. A nil renderer discards events.
func New(svc Service, keys KeyStore, r Renderer, opts ...Option) *Adapter {
	if r == nil {
		r = RendererFunc(func(Event) {})
	}
	a := &Adapter{
		svc:          svc,
		keys:         keys,
		renderer:     r,
		logger:       zap.NewNop(),
		defaultStyle: illustraitor.DefaultStyleID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) loading(op Operation, msg string) {
	a.renderer.Render(Event{Op: op, State: StateLoading, Message: msg})
}

func (a *Adapter) success(op Operation, msg string, result any) {
	a.renderer.Render(Event{Op: op, State: StateSuccess, Message: msg, Result: result})
}

// fail reports err and returns it unchanged.
func (a *Adapter) fail(op Operation, err error, result any) error {
	e := Event{
		Op:      op,
		State:   StateError,
		Kind:    illustraitor.KindOf(err),
		Message: illustraitor.UserMessage(err),
		Hint:    HintFor(err),
		Result:  result,
		Err:     err,
	}
	a.logger.Debug("operation failed", zap.String("op", string(op)), zap.Stringer("kind", e.Kind), zap.Error(err))
	a.renderer.Render(e)
	return err
}

// HintFor suggests a next step for err, or returns "" when there is none.
func HintFor(err error) string {
	switch {
	case illustraitor.IsInsufficientCredits(err):
		return hintCheckCredits
	case errors.Is(err, ErrNoKey):
		return hintRegister
	case errors.Is(err, illustraitor.ErrInvalidKey), errors.Is(err, store.ErrMaskedKey):
		return hintSetKey
	case illustraitor.IsTimeout(err):
		return "If the service is slow to start, raise --timeout."
	}
	return ""
}

// LoadStyles fetches the catalog. On failure the fallback catalog is
// returned along with the error and is attached to the error event.
func (a *Adapter) LoadStyles(ctx context.Context) (illustraitor.Catalog, error) {
	a.loading(OpStyles, "Loading styles")
	catalog, err := a.svc.FetchStyles(ctx)
	if err != nil {
		return catalog, a.fail(OpStyles, err, catalog)
	}
	a.success(OpStyles, fmt.Sprintf("%d styles available", len(catalog.Styles)), catalog)
	return catalog, nil
}

// Generate runs one generation. Only one may be in flight per Adapter; a
// concurrent call fails with ErrBusy without touching the service. The
// cached credit balance is left alone whatever the service reports.
func (a *Adapter) Generate(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error) {
	if !a.generating.CompareAndSwap(false, true) {
		return nil, a.fail(OpGenerate, ErrBusy, nil)
	}
	defer a.generating.Store(false)

	if strings.TrimSpace(req.Style) == "" {
		req.Style = a.defaultStyle
	}

	a.loading(OpGenerate, "Generating image")
	res, err := a.svc.Generate(ctx, req)
	if err != nil {
		return nil, a.fail(OpGenerate, err, nil)
	}
	a.success(OpGenerate, "Image ready", res)
	return res, nil
}

// CheckCredits refreshes the balance of the saved key. The cache is only
// overwritten on success; on failure the cached value, if any, rides along
// on the error event.
func (a *Adapter) CheckCredits(ctx context.Context) (CreditsView, error) {
	a.loading(OpCredits, "Checking credits")

	key, ok, err := a.keys.APIKey(ctx)
	if err != nil {
		return CreditsView{}, a.fail(OpCredits, err, nil)
	}
	if !ok {
		return CreditsView{}, a.fail(OpCredits, ErrNoKey, nil)
	}

	bal, err := a.svc.CheckCredits(ctx, key)
	if err != nil {
		var cached any
		if n, ok, cerr := a.keys.Credits(ctx); cerr == nil && ok {
			cached = CreditsView{Credits: n, Cached: true}
		}
		return CreditsView{}, a.fail(OpCredits, err, cached)
	}

	if err := a.keys.SetCredits(ctx, bal.Credits); err != nil {
		return CreditsView{}, a.fail(OpCredits, fmt.Errorf("cache balance: %w", err), nil)
	}
	view := CreditsView{Credits: bal.Credits, Name: bal.Name}
	a.success(OpCredits, fmt.Sprintf("%d credits", bal.Credits), view)
	return view, nil
}

// TestKey checks key against the service without saving it. An empty key
// tests the saved one. The cached balance is updated only when the tested
// key is the saved key.
func (a *Adapter) TestKey(ctx context.Context, key string) (CreditsView, error) {
	key = strings.TrimSpace(key)
	stored, ok, err := a.keys.APIKey(ctx)
	if err != nil {
		return CreditsView{}, a.fail(OpKey, err, nil)
	}
	if key == "" {
		if !ok {
			return CreditsView{}, a.fail(OpKey, ErrNoKey, nil)
		}
		key = stored
	}

	a.loading(OpKey, "Testing key")
	bal, err := a.svc.CheckCredits(ctx, key)
	if err != nil {
		return CreditsView{}, a.fail(OpKey, err, nil)
	}
	if ok && key == stored {
		if err := a.keys.SetCredits(ctx, bal.Credits); err != nil {
			a.logger.Debug("caching balance failed", zap.Error(err))
		}
	}
	view := CreditsView{Credits: bal.Credits, Name: bal.Name}
	a.success(OpKey, fmt.Sprintf("Key is valid, %d credits", bal.Credits), view)
	return view, nil
}

// SaveKey persists key and returns a format warning, if any. The warning
// never prevents saving.
func (a *Adapter) SaveKey(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if err := a.keys.SetAPIKey(ctx, key); err != nil {
		return "", a.fail(OpKey, err, nil)
	}
	hint := illustraitor.KeyHint(key)
	a.renderer.Render(Event{Op: OpKey, State: StateSuccess, Message: "API key saved", Hint: hint})
	return hint, nil
}

// ClearKey removes the saved key.
func (a *Adapter) ClearKey(ctx context.Context) error {
	if err := a.keys.ClearAPIKey(ctx); err != nil {
		return a.fail(OpKey, err, nil)
	}
	a.success(OpKey, "API key removed", nil)
	return nil
}

// Register creates an account and saves its key, balance and details.
func (a *Adapter) Register(ctx context.Context, email, name string) (*illustraitor.Registration, error) {
	a.loading(OpRegister, "Registering")
	reg, err := a.svc.Register(ctx, illustraitor.RegisterInput{Email: email, Name: name})
	if err != nil {
		return nil, a.fail(OpRegister, err, nil)
	}

	if err := a.keys.SetAPIKey(ctx, reg.APIKey); err != nil {
		return nil, a.fail(OpRegister, fmt.Errorf("save API key: %w", err), nil)
	}
	if err := a.keys.SetCredits(ctx, reg.Credits); err != nil {
		return nil, a.fail(OpRegister, fmt.Errorf("cache balance: %w", err), nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "User"
	}
	u := store.User{Email: strings.TrimSpace(email), Name: name, ID: string(reg.UserID)}
	if err := a.keys.SetUser(ctx, u); err != nil {
		return nil, a.fail(OpRegister, fmt.Errorf("save account: %w", err), nil)
	}

	a.success(OpRegister, fmt.Sprintf("Registered with %d credits; key saved", reg.Credits), reg)
	return reg, nil
}

// TopUp adds n credits to the cached balance. This is a local, optimistic
// change; the next CheckCredits replaces it with the service's figure.
func (a *Adapter) TopUp(ctx context.Context, n int) (CreditsView, error) {
	if n <= 0 {
		return CreditsView{}, a.fail(OpTopUp, &illustraitor.Error{
			Kind:    illustraitor.KindValidation,
			Message: fmt.Sprintf("top-up amount must be positive, got %d", n),
		}, nil)
	}
	_, ok, err := a.keys.APIKey(ctx)
	if err != nil {
		return CreditsView{}, a.fail(OpTopUp, err, nil)
	}
	if !ok {
		return CreditsView{}, a.fail(OpTopUp, ErrNoKey, nil)
	}

	total, err := a.keys.AddCredits(ctx, n)
	if err != nil {
		return CreditsView{}, a.fail(OpTopUp, err, nil)
	}
	view := CreditsView{Credits: total, Cached: true}
	a.success(OpTopUp, fmt.Sprintf("Added %d credits, %d in total", n, total), view)
	return view, nil
}

// WatchCredits refreshes the balance now and then every interval until ctx
// is done. Each refresh re-reads the saved key, so a key changed elsewhere
// is picked up on the next tick. Refresh failures are reported and do not
// stop the watch. A tick that would overlap a slow refresh is skipped.
func (a *Adapter) WatchCredits(ctx context.Context, interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("watch interval must be at least 1s, got %s", interval)
	}
	if interval%time.Second != 0 {
		return fmt.Errorf("watch interval must be a whole number of seconds, got %s", interval)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	refresh := func() {
		if ctx.Err() != nil {
			return
		}
		_, _ = a.CheckCredits(ctx)
	}
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), refresh); err != nil {
		return fmt.Errorf("schedule credit refresh: %w", err)
	}

	refresh()
	c.Start()
	a.logger.Debug("credit watch started", zap.Duration("interval", interval))

	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Debug("credit watch stopped")
	return nil
}

// Health probes the service and checks its version.
func (a *Adapter) Health(ctx context.Context) (HealthView, error) {
	a.loading(OpHealth, "Checking service")
	h, err := a.svc.Health(ctx)
	if err != nil {
		return HealthView{}, a.fail(OpHealth, err, nil)
	}
	view := HealthView{Health: h}
	ok, verr := h.Compatible()
	view.Compatible = ok
	switch {
	case verr != nil:
		a.renderer.Render(Event{Op: OpHealth, State: StateSuccess, Message: "Service is up",
			Hint: "Could not verify service version: " + verr.Error(), Result: view})
	case !ok:
		a.renderer.Render(Event{Op: OpHealth, State: StateSuccess, Message: "Service is up",
			Hint: fmt.Sprintf("Service version %s is outside the supported range %s", h.Version, illustraitor.SupportedServiceVersions),
			Result: view})
	default:
		a.success(OpHealth, "Service is up", view)
	}
	return view, nil
}
