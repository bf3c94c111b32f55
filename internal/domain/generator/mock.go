package generator

import (
	"context"
	"html"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

type template struct {
	keywords []string
	app      types.GeneratedApp
}

// Mock answers from built-in templates chosen by prompt keywords
type Mock struct {
	templates []template
}

// NewMock creates the template generator
func NewMock() *Mock {
	return &Mock{templates: []template{
		{keywords: []string{"calculator", "tip"}, app: tipCalculator},
		{keywords: []string{"todo", "to-do", "task"}, app: todoList},
		{keywords: []string{"quote"}, app: quoteGenerator},
		{keywords: []string{"timer", "countdown", "stopwatch"}, app: simpleTimer},
	}}
}

// Name implements Generator
func (m *Mock) Name() string { return ProviderMock }

// Generate implements Generator
func (m *Mock) Generate(ctx context.Context, req Request) (*types.GeneratedApp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(req.Prompt)
	for _, t := range m.templates {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				app := t.app
				return &app, nil
			}
		}
	}
	return customApp(req.Prompt), nil
}

func customApp(prompt string) *types.GeneratedApp {
	literal, err := sonic.MarshalString(prompt)
	if err != nil {
		literal = `""`
	}
	return &types.GeneratedApp{
		Title:       "Custom App",
		Description: "A custom application based on your request",
		HTMLContent: `
<div class="custom-app">
  <h2>Custom App</h2>
  <p>Your custom application would be generated here based on: "` + html.EscapeString(prompt) + `"</p>
  <button id="try">Try Me</button>
</div>`,
		CSSContent: `
.custom-app {
  max-width: 300px;
  margin: 0 auto;
  padding: 24px;
  text-align: center;
  font-family: -apple-system, BlinkMacSystemFont, sans-serif;
  background: linear-gradient(135deg, #ff9a56 0%, #ff6b9d 100%);
  border-radius: 16px;
  color: white;
}
h2 { margin: 0 0 16px 0; }
p { margin-bottom: 20px; line-height: 1.5; }
button {
  padding: 12px 24px;
  background: rgba(255,255,255,0.2);
  color: white;
  border: none;
  border-radius: 8px;
  cursor: pointer;
  font-weight: 500;
}
button:hover { background: rgba(255,255,255,0.3); }`,
		JSContent: `
const prompt = ` + literal + `;
document.getElementById('try').addEventListener('click', function () {
  alert('This is a demo app! Real AI generation coming soon.');
});
console.log('Custom app initialized for prompt: ' + prompt);`,
	}
}

var tipCalculator = types.GeneratedApp{
	Title:       "Smart Tip Calculator",
	Description: "Calculate tips with custom percentages and bill splitting",
	HTMLContent: `
<div class="calculator">
  <h2>Smart Tip Calculator</h2>
  <div class="input-section">
    <div class="input-group">
      <label for="bill">Bill Amount ($)</label>
      <input type="number" id="bill" placeholder="0.00" step="0.01">
    </div>
    <div class="input-group">
      <label for="people">Number of People</label>
      <input type="number" id="people" value="1" min="1">
    </div>
  </div>
  <div class="tip-buttons">
    <button class="tip-btn" data-tip="15">15%</button>
    <button class="tip-btn active" data-tip="18">18%</button>
    <button class="tip-btn" data-tip="20">20%</button>
    <button class="tip-btn" data-tip="25">25%</button>
  </div>
  <div class="results">
    <div class="result-item"><span>Tip Amount:</span><span class="amount">$<span id="tip">0.00</span></span></div>
    <div class="result-item"><span>Total:</span><span class="amount">$<span id="total">0.00</span></span></div>
    <div class="result-item per-person"><span>Per Person:</span><span class="amount">$<span id="perPerson">0.00</span></span></div>
  </div>
</div>`,
	CSSContent: `
.calculator {
  max-width: 320px;
  margin: 0 auto;
  padding: 24px;
  background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
  border-radius: 20px;
  color: white;
  box-shadow: 0 8px 32px rgba(0,0,0,0.1);
}
h2 { text-align: center; margin: 0 0 24px 0; font-size: 24px; font-weight: 600; }
.input-section { margin-bottom: 24px; }
.input-group { margin-bottom: 16px; }
label { display: block; margin-bottom: 6px; font-weight: 500; font-size: 14px; }
input {
  width: 100%;
  padding: 12px 16px;
  border: none;
  border-radius: 12px;
  font-size: 16px;
  text-align: center;
  background: rgba(255,255,255,0.95);
  color: #333;
}
.tip-buttons { display: grid; grid-template-columns: repeat(4, 1fr); gap: 8px; margin-bottom: 24px; }
.tip-btn {
  padding: 12px;
  background: rgba(255,255,255,0.2);
  color: white;
  border: none;
  border-radius: 10px;
  cursor: pointer;
  font-weight: 600;
}
.tip-btn:hover, .tip-btn.active { background: rgba(255,255,255,0.3); }
.results { background: rgba(255,255,255,0.15); border-radius: 16px; padding: 20px; }
.result-item { display: flex; justify-content: space-between; margin-bottom: 12px; }
.result-item.per-person { border-top: 1px solid rgba(255,255,255,0.3); padding-top: 12px; font-weight: 600; }
.amount { font-weight: 700; }`,
	JSContent: `
let currentTipPercentage = 18;

function updateCalculation() {
  const billAmount = parseFloat(document.getElementById('bill').value) || 0;
  const people = parseInt(document.getElementById('people').value) || 1;
  const tipAmount = billAmount * (currentTipPercentage / 100);
  const totalAmount = billAmount + tipAmount;
  document.getElementById('tip').textContent = tipAmount.toFixed(2);
  document.getElementById('total').textContent = totalAmount.toFixed(2);
  document.getElementById('perPerson').textContent = (totalAmount / people).toFixed(2);
}

document.querySelectorAll('.tip-btn').forEach(function (btn) {
  btn.addEventListener('click', function () {
    document.querySelectorAll('.tip-btn').forEach(function (b) { b.classList.remove('active'); });
    btn.classList.add('active');
    currentTipPercentage = parseInt(btn.dataset.tip);
    updateCalculation();
  });
});
document.getElementById('bill').addEventListener('input', updateCalculation);
document.getElementById('people').addEventListener('input', updateCalculation);
updateCalculation();`,
}

var todoList = types.GeneratedApp{
	Title:       "Quick Todo List",
	Description: "Add, check off and clear tasks in a tidy list",
	HTMLContent: `
<div class="todo">
  <h2>Quick Todo List</h2>
  <form id="todo-form">
    <input type="text" id="todo-input" placeholder="What needs doing?">
    <button type="submit">Add</button>
  </form>
  <ul id="todo-list"></ul>
  <div class="footer"><span id="remaining">0</span> left <button id="clear">Clear done</button></div>
</div>`,
	CSSContent: `
.todo { max-width: 360px; margin: 0 auto; padding: 24px; background: #f7f7fb; border-radius: 16px; }
h2 { margin: 0 0 16px 0; color: #4b3f9e; }
form { display: flex; gap: 8px; margin-bottom: 16px; }
input { flex: 1; padding: 10px 12px; border: 1px solid #ddd; border-radius: 8px; }
button { padding: 10px 14px; border: none; border-radius: 8px; background: #6c5ce7; color: white; cursor: pointer; }
ul { list-style: none; padding: 0; margin: 0 0 16px 0; }
li { padding: 10px; border-bottom: 1px solid #eee; cursor: pointer; }
li.done { text-decoration: line-through; color: #999; }
.footer { display: flex; justify-content: space-between; align-items: center; color: #666; }`,
	JSContent: `
const todos = [];
const list = document.getElementById('todo-list');
const input = document.getElementById('todo-input');

function render() {
  list.innerHTML = '';
  todos.forEach(function (todo, i) {
    const li = document.createElement('li');
    li.textContent = todo.text;
    if (todo.done) li.classList.add('done');
    li.addEventListener('click', function () { todos[i].done = !todos[i].done; render(); });
    list.appendChild(li);
  });
  document.getElementById('remaining').textContent = todos.filter(function (t) { return !t.done; }).length;
}

document.getElementById('todo-form').addEventListener('submit', function (e) {
  e.preventDefault();
  const text = input.value.trim();
  if (!text) return;
  todos.push({ text: text, done: false });
  input.value = '';
  render();
});
document.getElementById('clear').addEventListener('click', function () {
  for (let i = todos.length - 1; i >= 0; i--) { if (todos[i].done) todos.splice(i, 1); }
  render();
});
render();`,
}

var quoteGenerator = types.GeneratedApp{
	Title:       "Random Quote Generator",
	Description: "Get inspired with random quotes from famous people",
	HTMLContent: `
<div class="quotes">
  <h2>Daily Inspiration</h2>
  <blockquote id="quote">Click the button for a quote.</blockquote>
  <p id="author"></p>
  <button id="next">New Quote</button>
</div>`,
	CSSContent: `
.quotes { max-width: 380px; margin: 0 auto; padding: 28px; text-align: center; background: linear-gradient(135deg, #43cea2 0%, #185a9d 100%); color: white; border-radius: 18px; }
blockquote { font-size: 20px; font-style: italic; margin: 0 0 12px 0; line-height: 1.4; }
#author { opacity: 0.85; margin-bottom: 20px; }
button { padding: 12px 24px; border: none; border-radius: 10px; background: rgba(255,255,255,0.25); color: white; cursor: pointer; font-weight: 600; }`,
	JSContent: `
const quotes = [
  { text: 'The best way to predict the future is to invent it.', author: 'Alan Kay' },
  { text: 'Simplicity is prerequisite for reliability.', author: 'Edsger W. Dijkstra' },
  { text: 'Make it work, make it right, make it fast.', author: 'Kent Beck' },
  { text: 'Programs must be written for people to read.', author: 'Harold Abelson' }
];
let last = -1;
function next() {
  let i = Math.floor(Math.random() * quotes.length);
  if (i === last) i = (i + 1) % quotes.length;
  last = i;
  document.getElementById('quote').textContent = quotes[i].text;
  document.getElementById('author').textContent = '- ' + quotes[i].author;
}
document.getElementById('next').addEventListener('click', next);
next();`,
}

var simpleTimer = types.GeneratedApp{
	Title:       "Simple Timer",
	Description: "A clean countdown timer with start, pause and reset",
	HTMLContent: `
<div class="timer">
  <h2>Simple Timer</h2>
  <div id="display">05:00</div>
  <div class="controls">
    <button id="start">Start</button>
    <button id="pause">Pause</button>
    <button id="reset">Reset</button>
  </div>
</div>`,
	CSSContent: `
.timer { max-width: 300px; margin: 0 auto; padding: 24px; text-align: center; background: #1e1e2f; color: #f5f5f5; border-radius: 16px; }
#display { font-size: 56px; font-variant-numeric: tabular-nums; margin: 16px 0 24px 0; }
.controls { display: flex; gap: 8px; justify-content: center; }
button { padding: 10px 16px; border: none; border-radius: 8px; background: #ff6b6b; color: white; cursor: pointer; }`,
	JSContent: `
const initial = 300;
let remaining = initial;
let handle = null;
function show() {
  const m = String(Math.floor(remaining / 60)).padStart(2, '0');
  const s = String(remaining % 60).padStart(2, '0');
  document.getElementById('display').textContent = m + ':' + s;
}
function tick() {
  if (remaining > 0) { remaining--; show(); }
  if (remaining === 0) { clearInterval(handle); handle = null; }
}
document.getElementById('start').addEventListener('click', function () {
  if (!handle) handle = setInterval(tick, 1000);
});
document.getElementById('pause').addEventListener('click', function () {
  clearInterval(handle);
  handle = null;
});
document.getElementById('reset').addEventListener('click', function () {
  clearInterval(handle);
  handle = null;
  remaining = initial;
  show();
});
show();`,
}
