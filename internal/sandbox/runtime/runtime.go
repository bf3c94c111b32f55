package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/metrics"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

var (
	// ErrTimeout is the interrupt value used when the budget runs out
	ErrTimeout = errors.New("preflight timeout exceeded")
	// ErrMemoryLimit is the interrupt value used when the heap grows too far
	ErrMemoryLimit = errors.New("preflight memory limit exceeded")
)

const heapMetric = "/memory/classes/heap/objects:bytes"

// heapBytes reads the bytes held by heap objects, live or not yet swept.
// It is cheap enough to sample every few milliseconds.
func heapBytes() uint64 {
	sample := []metrics.Sample{{Name: heapMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return sample[0].Value.Uint64()
}

// Runtime wraps a goja VM with the globals a mini-app expects
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console []LogEntry
	timers  int
}

// New creates a new preflight runtime
func New(config Config) (*Runtime, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxConsole <= 0 {
		config.MaxConsole = DefaultConfig().MaxConsole
	}
	if config.MaxScriptSize <= 0 {
		config.MaxScriptSize = DefaultConfig().MaxScriptSize
	}
	if config.MaxHeapGrowth == 0 {
		config.MaxHeapGrowth = DefaultConfig().MaxHeapGrowth
	}
	if config.MemoryCheck <= 0 {
		config.MemoryCheck = DefaultConfig().MemoryCheck
	}

	r := &Runtime{config: config}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Preflight runs the app's script against a DOM built from its markup and
// reports exceptions, console output and registered listeners. A context
// error is returned as err; script problems are reported in the Result.
//
// The heap is sampled while the script runs and the VM is interrupted once
// it grows past MaxHeapGrowth. The sample is process wide, so concurrent
// work can trip the limit early; that costs a finding, never a crash.
func (r *Runtime) Preflight(ctx context.Context, c Content) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, errors.New("runtime closed")
	}

	start := time.Now()
	result := &Result{Errors: []ScriptError{}, Console: []LogEntry{}}

	if len(c.JS) > r.config.MaxScriptSize {
		result.Errors = append(result.Errors, ScriptError{
			Phase:   PhaseScript,
			Message: fmt.Sprintf("script is %d bytes, limit is %d", len(c.JS), r.config.MaxScriptSize),
		})
		result.Duration = time.Since(start)
		return result, nil
	}

	dom, err := NewDOM(r.vm, c.HTML)
	if err != nil {
		return nil, err
	}
	r.installDOM(dom)

	// Watchdog interrupts the VM on timeout, heap growth or cancellation. It
	// is joined before returning so a late interrupt cannot leak into the
	// next run.
	done := make(chan struct{})
	var wg sync.WaitGroup
	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()
	ticker := time.NewTicker(r.config.MemoryCheck)
	defer ticker.Stop()
	baseline := heapBytes()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-timer.C:
				r.vm.Interrupt(ErrTimeout)
				return
			case <-ctx.Done():
				r.vm.Interrupt(ctx.Err())
				return
			case <-ticker.C:
				if heap := heapBytes(); heap > baseline && heap-baseline > r.config.MaxHeapGrowth {
					r.vm.Interrupt(ErrMemoryLimit)
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer func() {
		close(done)
		wg.Wait()
		r.vm.ClearInterrupt()
	}()

	interrupted := func(err error) (bool, error) {
		var ie *goja.InterruptedError
		if !errors.As(err, &ie) {
			return false, nil
		}
		cause, _ := ie.Value().(error)
		if errors.Is(cause, ErrMemoryLimit) {
			result.MemoryExceeded = true
			result.Errors = append(result.Errors, ScriptError{Phase: PhaseMemory, Message: fmt.Sprintf("script grew the heap by more than %d bytes", r.config.MaxHeapGrowth)})
			return true, nil
		}
		if cause != nil && !errors.Is(cause, ErrTimeout) {
			return true, cause
		}
		result.TimedOut = true
		result.Errors = append(result.Errors, ScriptError{Phase: PhaseTimeout, Message: "script did not finish within " + r.config.Timeout.String()})
		return true, nil
	}

	if _, err := r.vm.RunScript("app.js", c.JS); err != nil {
		if stop, cause := interrupted(err); stop {
			if cause != nil {
				return nil, cause
			}
			return r.finish(result, dom, start), nil
		}
		result.Errors = append(result.Errors, toScriptError(PhaseScript, "", err))
	}

	for _, event := range []string{"DOMContentLoaded", "load"} {
		for _, err := range dom.dispatch(event) {
			if stop, cause := interrupted(err); stop {
				if cause != nil {
					return nil, cause
				}
				return r.finish(result, dom, start), nil
			}
			result.Errors = append(result.Errors, toScriptError(PhaseLoad, event, err))
		}
	}

	if r.config.ExerciseHandlers {
		for _, event := range []string{"click", "input", "change", "submit", "keydown"} {
			for _, err := range dom.dispatch(event) {
				if stop, cause := interrupted(err); stop {
					if cause != nil {
						return nil, cause
					}
					return r.finish(result, dom, start), nil
				}
				result.Errors = append(result.Errors, toScriptError(PhaseHandler, event, err))
			}
		}
	}

	return r.finish(result, dom, start), nil
}

func (r *Runtime) finish(result *Result, dom *DOM, start time.Time) *Result {
	result.Console = append(result.Console, r.console...)
	result.Listeners = dom.listenerCount()
	result.Timers = r.timers
	result.Duration = time.Since(start)
	result.OK = len(result.Errors) == 0
	return result
}

func toScriptError(phase Phase, event string, err error) ScriptError {
	se := ScriptError{Phase: phase, Event: event, Message: err.Error()}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		if v := exc.Value(); v != nil {
			se.Message = v.String()
		}
		if frames := exc.Stack(); len(frames) > 0 {
			se.Line = frames[0].Position().Line
		}
	}
	return se
}

// reset builds a fresh VM with the safe global surface
func (r *Runtime) reset() error {
	vm := goja.New()
	if r.config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}

	r.vm = vm
	r.console = nil
	r.timers = 0

	global := vm.GlobalObject()

	// Host escape hatches are removed; parent and top mirror the bridge,
	// which nulls them for app code.
	for _, name := range []string{"require", "process", "module", "exports", "fetch", "XMLHttpRequest", "WebSocket"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}
	_ = vm.Set("window", global)
	_ = vm.Set("self", global)
	_ = vm.Set("parent", goja.Null())
	_ = vm.Set("top", goja.Null())

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, r.makeConsoleFunc(level))
	}
	_ = vm.Set("console", console)

	// Timers never fire during preflight; ids are still handed out
	timer := func(goja.FunctionCall) goja.Value {
		r.timers++
		return vm.ToValue(r.timers)
	}
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = vm.Set("setTimeout", timer)
	_ = vm.Set("setInterval", timer)
	_ = vm.Set("requestAnimationFrame", timer)
	_ = vm.Set("clearTimeout", noop)
	_ = vm.Set("clearInterval", noop)
	_ = vm.Set("cancelAnimationFrame", noop)
	_ = vm.Set("alert", noop)
	_ = vm.Set("confirm", func(goja.FunctionCall) goja.Value { return vm.ToValue(false) })
	_ = vm.Set("prompt", func(goja.FunctionCall) goja.Value { return goja.Null() })

	navigator := vm.NewObject()
	_ = navigator.Set("userAgent", "AppFeedPreflight/1.0")
	_ = navigator.Set("language", "en-US")
	_ = vm.Set("navigator", navigator)

	return nil
}

func (r *Runtime) installDOM(dom *DOM) {
	_ = r.vm.Set("document", dom.document)

	global := r.vm.GlobalObject()
	_ = global.Set("addEventListener", dom.listenerFunc(dom.windowTarget))
	_ = global.Set("removeEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.config.CaptureConsole || len(r.console) >= r.config.MaxConsole {
			return goja.Undefined()
		}

		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		return goja.Undefined()
	}
}

// Reset discards all state from the previous run
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reset()
}

// Close releases the VM
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}
