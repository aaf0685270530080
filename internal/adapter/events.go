package adapter

import (
	"github.com/illustraitor/cli/pkg/illustraitor"
)

// State is the phase of a call reported to the renderer.
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Operation names the call an event belongs to.
type Operation string

const (
	OpStyles   Operation = "styles"
	OpGenerate Operation = "generate"
	OpCredits  Operation = "credits"
	OpKey      Operation = "key"
	OpRegister Operation = "register"
	OpTopUp    Operation = "topup"
	OpHealth   Operation = "health"
)

// Event is emitted for every phase of every call. Result holds the
// operation's value on success:
//
//	OpStyles    illustraitor.Catalog (also set on error: the fallback catalog)
//	OpGenerate  *illustraitor.GenerationResult
//	OpCredits   CreditsView (on error: the cached balance, if any)
//	OpTopUp     CreditsView
//	OpRegister  *illustraitor.Registration
//	OpHealth    HealthView
//	OpKey       nil
type Event struct {
	Op      Operation
	State   State
	Kind    illustraitor.ErrorKind
	Message string
	// Hint is a follow-up action for the user, if one applies.
	Hint   string
	Result any
	Err    error
}

// CreditsView is a balance as shown to the user.
type CreditsView struct {
	Credits int
	Name    string
	// Cached is set when the value comes from the local cache rather than the service.
	Cached bool
}

// HealthView is a health probe result with the client compatibility verdict.
type HealthView struct {
	*illustraitor.Health
	Compatible bool
}

// Renderer presents events. Implementations must be safe for concurrent use
// because the credit watch renders from its own goroutine.
type Renderer interface {
	Render(Event)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Event)

func (f RendererFunc) Render(e Event) { f(e) }
