package runtime

import (
	"context"
	"strings"
	"testing"
	"time"
)

const calculatorHTML = `
<div class="tip-calculator">
  <h2>Tip Calculator</h2>
  <input type="number" id="billAmount" value="100">
  <input type="number" id="tipPercent" value="15">
  <button id="calculate" class="btn">Calculate</button>
  <div id="result" class="hidden"></div>
  <ul id="list"></ul>
</div>`

func newRuntime(t *testing.T, mutate func(*Config)) *Runtime {
	t.Helper()
	config := DefaultConfig()
	if mutate != nil {
		mutate(&config)
	}
	rt, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestPreflightCleanScript(t *testing.T) {
	rt := newRuntime(t, nil)

	script := `
		function calculate() {
			const bill = parseFloat(document.getElementById('billAmount').value);
			const pct = parseFloat(document.getElementById('tipPercent').value);
			const out = document.getElementById('result');
			out.textContent = 'Tip: $' + (bill * pct / 100).toFixed(2);
			out.classList.remove('hidden');
		}
		document.getElementById('calculate').addEventListener('click', calculate);
		console.log('ready');
	`

	result, err := rt.Preflight(context.Background(), Content{HTML: calculatorHTML, JS: script})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}

	if !result.OK {
		t.Fatalf("Expected clean preflight, got errors: %+v", result.Errors)
	}
	if result.Listeners != 1 {
		t.Errorf("Expected 1 listener, got %d", result.Listeners)
	}
	if len(result.Console) != 1 || result.Console[0].Message != "ready" {
		t.Errorf("Unexpected console output: %+v", result.Console)
	}
}

func TestPreflightHandlerMutatesDOM(t *testing.T) {
	rt := newRuntime(t, nil)

	script := `
		document.getElementById('calculate').addEventListener('click', function () {
			const out = document.getElementById('result');
			out.textContent = 'Tip: $' + (100 * 15 / 100).toFixed(2);
			out.classList.remove('hidden');
		});
	`

	dom, err := NewDOM(rt.vm, calculatorHTML)
	if err != nil {
		t.Fatalf("NewDOM() error = %v", err)
	}
	rt.installDOM(dom)

	if _, err := rt.vm.RunString(script); err != nil {
		t.Fatalf("script error = %v", err)
	}
	if errs := dom.dispatch("click"); len(errs) != 0 {
		t.Fatalf("handler errors: %v", errs)
	}

	got := dom.Find("#result")
	if got.Text() != "Tip: $15.00" {
		t.Errorf("Expected handler to set text, got %q", got.Text())
	}
	if got.HasClass("hidden") {
		t.Error("Expected hidden class to be removed")
	}
}

func TestPreflightReportsErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		phase  Phase
	}{
		{
			name:   "top-level throw",
			script: "throw new Error('boom');",
			phase:  PhaseScript,
		},
		{
			name:   "missing element",
			script: "document.getElementById('nope').textContent = 'x';",
			phase:  PhaseScript,
		},
		{
			name:   "syntax error",
			script: "function (",
			phase:  PhaseScript,
		},
		{
			name:   "load listener",
			script: "window.addEventListener('load', function () { undefinedFn(); });",
			phase:  PhaseLoad,
		},
		{
			name:   "onload property",
			script: "window.onload = function () { null.x; };",
			phase:  PhaseLoad,
		},
		{
			name:   "click handler",
			script: "document.querySelector('#calculate').addEventListener('click', function () { missing.call(); });",
			phase:  PhaseHandler,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t, nil)

			result, err := rt.Preflight(context.Background(), Content{HTML: calculatorHTML, JS: tt.script})
			if err != nil {
				t.Fatalf("Preflight() error = %v", err)
			}
			if result.OK {
				t.Fatal("Expected preflight to fail")
			}
			if !result.HasPhase(tt.phase) {
				t.Errorf("Expected an error in phase %s, got %+v", tt.phase, result.Errors)
			}
		})
	}
}

func TestPreflightErrorLine(t *testing.T) {
	rt := newRuntime(t, nil)

	result, err := rt.Preflight(context.Background(), Content{JS: "var a = 1;\nvar b = 2;\nthrow new TypeError('line three');"})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %+v", result.Errors)
	}
	if result.Errors[0].Line != 3 {
		t.Errorf("Expected line 3, got %d", result.Errors[0].Line)
	}
	if !strings.Contains(result.Errors[0].Message, "line three") {
		t.Errorf("Unexpected message %q", result.Errors[0].Message)
	}
}

func TestPreflightBlocksHostGlobals(t *testing.T) {
	rt := newRuntime(t, nil)

	scripts := []string{
		"require('fs')",
		"process.exit(1)",
		"fetch('https://example.com')",
		"new XMLHttpRequest()",
		"parent.postMessage('x', '*')",
	}

	for _, script := range scripts {
		result, err := rt.Preflight(context.Background(), Content{JS: script})
		if err != nil {
			t.Fatalf("Preflight(%q) error = %v", script, err)
		}
		if result.OK {
			t.Errorf("Expected %q to fail in preflight", script)
		}
	}
}

func TestPreflightTimeout(t *testing.T) {
	rt := newRuntime(t, func(c *Config) { c.Timeout = 100 * time.Millisecond })

	result, err := rt.Preflight(context.Background(), Content{JS: "while (true) {}"})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if !result.TimedOut {
		t.Error("Expected TimedOut to be set")
	}
	if !result.HasPhase(PhaseTimeout) {
		t.Errorf("Expected a timeout error, got %+v", result.Errors)
	}

	// A stale interrupt must not leak into the next run
	result, err = rt.Preflight(context.Background(), Content{JS: "1 + 1"})
	if err != nil {
		t.Fatalf("second Preflight() error = %v", err)
	}
	if !result.OK {
		t.Errorf("Expected second run to pass, got %+v", result.Errors)
	}
}

func TestPreflightMemoryLimit(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"string doubling", "var s = 'x'; for (;;) { s += s; }"},
		{"array growth", "var a = []; for (;;) { a.push('x'.repeat(4096) + a.length); }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t, func(c *Config) {
				c.Timeout = 10 * time.Second
				c.MaxHeapGrowth = 16 << 20
			})

			start := time.Now()
			result, err := rt.Preflight(context.Background(), Content{JS: tt.script})
			if err != nil {
				t.Fatalf("Preflight() error = %v", err)
			}
			if result.OK {
				t.Fatal("Expected the memory bomb to fail preflight")
			}
			if result.TimedOut {
				t.Errorf("Expected the heap bound to stop the script before the timeout, took %v", time.Since(start))
			}
			if !result.MemoryExceeded && !result.HasPhase(PhaseScript) {
				t.Errorf("Expected a memory or script error, got %+v", result.Errors)
			}
			if tt.name == "array growth" && !result.HasPhase(PhaseMemory) {
				t.Errorf("Expected a memory error, got %+v", result.Errors)
			}

			if err := rt.Reset(); err != nil {
				t.Fatalf("Reset() error = %v", err)
			}
			result, err = rt.Preflight(context.Background(), Content{JS: "1 + 1"})
			if err != nil {
				t.Fatalf("second Preflight() error = %v", err)
			}
			if !result.OK {
				t.Errorf("Expected second run to pass, got %+v", result.Errors)
			}
		})
	}
}

func TestPreflightRejectsOversizedScript(t *testing.T) {
	rt := newRuntime(t, func(c *Config) { c.MaxScriptSize = 64 })

	result, err := rt.Preflight(context.Background(), Content{JS: "var x = '" + strings.Repeat("a", 100) + "';"})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if result.OK || !result.HasPhase(PhaseScript) {
		t.Errorf("Expected a script size error, got %+v", result.Errors)
	}
}

func TestPreflightContextCancel(t *testing.T) {
	rt := newRuntime(t, func(c *Config) { c.Timeout = 5 * time.Second })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := rt.Preflight(ctx, Content{JS: "while (true) {}"})
	if err == nil {
		t.Fatal("Expected context error")
	}
}

func TestPreflightConsoleCapture(t *testing.T) {
	rt := newRuntime(t, func(c *Config) { c.MaxConsole = 2 })

	result, err := rt.Preflight(context.Background(), Content{JS: `
		console.log('one');
		console.warn('two', 2);
		console.error('three');
	`})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}

	if len(result.Console) != 2 {
		t.Fatalf("Expected console to be capped at 2 entries, got %d", len(result.Console))
	}
	if result.Console[1].Level != "warn" || result.Console[1].Message != "two 2" {
		t.Errorf("Unexpected entry: %+v", result.Console[1])
	}
}

func TestPreflightTimersCounted(t *testing.T) {
	rt := newRuntime(t, nil)

	result, err := rt.Preflight(context.Background(), Content{JS: `
		setInterval(function () { throw new Error('never runs'); }, 1000);
		setTimeout(function () {}, 10);
	`})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if !result.OK {
		t.Errorf("Timer callbacks should not run: %+v", result.Errors)
	}
	if result.Timers != 2 {
		t.Errorf("Expected 2 timers, got %d", result.Timers)
	}
}

func TestDOMQueries(t *testing.T) {
	rt := newRuntime(t, nil)

	script := `
		const a = document.getElementById('calculate');
		const b = document.querySelector('.btn');
		if (a !== b) throw new Error('identity lost');
		if (document.querySelectorAll('input').length !== 2) throw new Error('inputs');
		if (document.getElementsByClassName('tip-calculator').length !== 1) throw new Error('class');
		if (a.tagName !== 'BUTTON') throw new Error('tagName ' + a.tagName);
		if (document.getElementById('billAmount').value !== '100') throw new Error('value');

		const li = document.createElement('li');
		li.textContent = 'item';
		document.getElementById('list').appendChild(li);
		if (document.querySelectorAll('#list li').length !== 1) throw new Error('append');
		if (li.parentElement.id !== 'list') throw new Error('parent');

		li.remove();
		if (document.querySelectorAll('#list li').length !== 0) throw new Error('remove');

		a.classList.toggle('active');
		if (!a.classList.contains('active')) throw new Error('toggle');
		a.disabled = true;
		if (!a.hasAttribute('disabled')) throw new Error('disabled');
	`

	result, err := rt.Preflight(context.Background(), Content{HTML: calculatorHTML, JS: script})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if !result.OK {
		t.Fatalf("DOM script failed: %+v", result.Errors)
	}
}

func TestReset(t *testing.T) {
	rt := newRuntime(t, nil)

	if _, err := rt.Preflight(context.Background(), Content{JS: "var leaked = 42;"}); err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if err := rt.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	result, err := rt.Preflight(context.Background(), Content{JS: "if (typeof leaked !== 'undefined') throw new Error('state leaked');"})
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if !result.OK {
		t.Errorf("Expected clean VM after reset: %+v", result.Errors)
	}
}
