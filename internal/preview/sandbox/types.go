package sandbox

import (
	"time"

	"github.com/GriffinCanCode/webide/backend/internal/preview"
)

// DefaultTimeoutMs is used when a request does not set its own timeout.
const DefaultTimeoutMs = 5000

// Config defines sandbox configuration
type Config struct {
	Timeout       time.Duration // Default execution timeout
	MaxCallStack  int           // goja call stack limit
	EnableConsole bool          // Install the console shim
	EnableDOM     bool          // Expose document over the request's htmlContext
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeoutMs * time.Millisecond,
		MaxCallStack:  1024,
		EnableConsole: true,
		EnableDOM:     true,
	}
}

// ExecutionRequest is one preview run.
type ExecutionRequest struct {
	SourceCode  string `json:"sourceCode"`
	FileName    string `json:"fileName"`
	TimeoutMs   int    `json:"timeoutMs,omitempty"`
	HTMLContext string `json:"htmlContext,omitempty"`
}

// timeout resolves the effective timeout for the request.
func (r ExecutionRequest) timeout(fallback time.Duration) time.Duration {
	if r.TimeoutMs > 0 {
		return time.Duration(r.TimeoutMs) * time.Millisecond
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeoutMs * time.Millisecond
}

// ExecutionResult is the structured outcome of a run. It is always populated,
// whatever went wrong.
type ExecutionResult struct {
	Success         bool              `json:"success"`
	Output          string            `json:"output"`
	Errors          []string          `json:"errors"`
	ExecutionTimeMs float64           `json:"executionTimeMs"`
	ReturnValue     any               `json:"returnValue,omitempty"`
	ErrorKind       preview.ErrorKind `json:"errorKind,omitempty"`
	Console         []LogEntry        `json:"console,omitempty"`
	DOMChanges      []DOMChange       `json:"domChanges,omitempty"`
	Document        string            `json:"document,omitempty"`
}

// LogEntry represents console output
type LogEntry struct {
	Level   string `json:"level"`   // log, warn, error, info, debug
	Message string `json:"message"` // Formatted arguments
}

// DOMChange represents a DOM modification
type DOMChange struct {
	Type     string `json:"type"`     // set_attribute, set_text
	Selector string `json:"selector"` // Selector the element was found with
	Property string `json:"property,omitempty"`
	Value    string `json:"value"`
}

// State is a position in the execution lifecycle.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateTimedOut
	StateCancelled
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}
