package runtime

import (
	"time"
)

// Config defines preflight configuration
type Config struct {
	Timeout          time.Duration // Wall clock budget for script plus handlers
	MaxCallStackSize int           // goja call stack limit
	CaptureConsole   bool          // Record console.* calls
	ExerciseHandlers bool          // Fire registered click/input/change listeners once
	MaxConsole       int           // Console entries kept per run
	MaxScriptSize    int           // Scripts larger than this are not run
	MaxHeapGrowth    uint64        // Heap growth in bytes that interrupts a run
	MemoryCheck      time.Duration // How often the watchdog samples the heap
}

// Content is the part of a mini-app preflight looks at
type Content struct {
	HTML string
	JS   string
}

// Phase tells where a script error happened
type Phase string

const (
	PhaseScript  Phase = "script"  // top-level code
	PhaseLoad    Phase = "load"    // DOMContentLoaded / load listeners
	PhaseHandler Phase = "handler" // user interaction listeners
	PhaseTimeout Phase = "timeout"
	PhaseMemory  Phase = "memory"
)

// ScriptError is an exception raised by app code during preflight
type ScriptError struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Event   string `json:"event,omitempty"`
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Result holds the outcome of one preflight run
type Result struct {
	OK             bool          `json:"ok"`
	Errors         []ScriptError `json:"errors"`
	Console        []LogEntry    `json:"console"`
	Listeners      int           `json:"listeners"`
	Timers         int           `json:"timers"`
	TimedOut       bool          `json:"timedOut"`
	MemoryExceeded bool          `json:"memoryExceeded"`
	Duration       time.Duration `json:"duration"`
}

// HasPhase reports whether any error happened in phase p
func (r *Result) HasPhase(p Phase) bool {
	for _, e := range r.Errors {
		if e.Phase == p {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used by the server
func DefaultConfig() Config {
	return Config{
		Timeout:          2 * time.Second,
		MaxCallStackSize: 1024,
		CaptureConsole:   true,
		ExerciseHandlers: true,
		MaxConsole:       100,
		MaxScriptSize:    256 << 10,
		MaxHeapGrowth:    64 << 20,
		MemoryCheck:      5 * time.Millisecond,
	}
}
