package safety

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox/runtime"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

const maxExamples = 3

// Content is the code of a mini-app
type Content struct {
	HTML string
	CSS  string
	JS   string
}

// Finding is one rule that matched
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Penalty  float64  `json:"penalty"`
	Message  string   `json:"message"`
	Count    int      `json:"count"`
	Examples []string `json:"examples,omitempty"`
}

// Report is the outcome of an analysis
type Report struct {
	Score     float64         `json:"score"`
	Findings  []Finding       `json:"findings"`
	Preflight *runtime.Result `json:"preflight,omitempty"`
}

// Has reports whether rule matched
func (r *Report) Has(rule string) bool {
	for _, f := range r.Findings {
		if f.Rule == rule {
			return true
		}
	}
	return false
}

// Preflighter runs an app's script once
type Preflighter interface {
	Preflight(ctx context.Context, c runtime.Content) (*runtime.Result, error)
}

// Analyzer scores mini-app code for the feed's publish decision
type Analyzer struct {
	preflight Preflighter
	policy    *bluemonday.Policy
	logger    *zap.Logger
}

// NewAnalyzer creates an analyzer. preflight may be nil to skip running code.
func NewAnalyzer(preflight Preflighter, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		preflight: preflight,
		policy:    markupPolicy(),
		logger:    logger,
	}
}

// markupPolicy describes the structural markup a mini-app is expected to use
func markupPolicy() *bluemonday.Policy {
	structural := []string{
		"main", "section", "header", "footer", "nav", "article", "aside",
		"button", "textarea", "select", "option", "optgroup",
		"label", "fieldset", "legend", "canvas", "progress", "meter",
		"output", "svg", "path", "circle", "rect", "line", "g",
	}
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	p.AllowElements(structural...)
	p.AllowNoAttrs().OnElements(structural...)
	p.AllowAttrs("class", "type", "name", "value", "placeholder", "for",
		"min", "max", "step", "checked", "disabled", "rows", "cols").Globally()
	return p
}

type collector struct {
	hits map[string]*Finding
}

func (c *collector) add(rule, example string) {
	f, ok := c.hits[rule]
	if !ok {
		info := rules[rule]
		f = &Finding{Rule: rule, Severity: info.severity, Penalty: info.penalty, Message: info.message}
		c.hits[rule] = f
	}
	f.Count++
	if example != "" && len(f.Examples) < maxExamples {
		f.Examples = append(f.Examples, truncate(example, 120))
	}
}

// Analyze scores content. Score = max(0, 1 - sum of penalties), two decimals.
func (a *Analyzer) Analyze(ctx context.Context, c Content) (*Report, error) {
	col := &collector{hits: make(map[string]*Finding)}

	if err := utils.ValidateCode(c.HTML, c.CSS, c.JS); err != nil {
		col.add(RuleOversized, err.Error())
	}

	scripts, err := a.analyzeMarkup(c.HTML, col)
	if err != nil {
		return nil, err
	}

	for _, src := range append([]string{c.JS}, scripts...) {
		matchPatterns(jsPatterns, src, col)
	}
	matchPatterns(cssPatterns, c.CSS, col)

	report := &Report{}
	if a.preflight != nil {
		res, err := a.preflight.Preflight(ctx, runtime.Content{HTML: c.HTML, JS: c.JS})
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.logger.Warn("preflight unavailable", zap.Error(err))
		default:
			report.Preflight = res
			for _, e := range res.Errors {
				switch e.Phase {
				case runtime.PhaseTimeout:
					col.add(RuleRuntimeTimeout, e.Message)
				case runtime.PhaseMemory:
					col.add(RuleRuntimeMemory, e.Message)
				case runtime.PhaseHandler:
					col.add(RuleHandlerError, e.Message)
				default:
					col.add(RuleRuntimeError, e.Message)
				}
			}
		}
	}

	report.Findings = make([]Finding, 0, len(col.hits))
	penalty := 0.0
	for _, f := range col.hits {
		report.Findings = append(report.Findings, *f)
		penalty += f.Penalty
	}
	sort.Slice(report.Findings, func(i, j int) bool {
		if report.Findings[i].Penalty != report.Findings[j].Penalty {
			return report.Findings[i].Penalty > report.Findings[j].Penalty
		}
		return report.Findings[i].Rule < report.Findings[j].Rule
	})

	report.Score = math.Round(math.Max(0, 1-penalty)*100) / 100
	return report, nil
}

// analyzeMarkup applies the markup rules and returns inline script and
// handler source for the JS rules
func (a *Analyzer) analyzeMarkup(markup string, col *collector) ([]string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	for _, n := range htmlquery.Find(doc, "//script[@src]") {
		if isRemote(htmlquery.SelectAttr(n, "src")) {
			col.add(RuleExternalScript, htmlquery.SelectAttr(n, "src"))
		}
	}

	for _, n := range htmlquery.Find(doc, "//link[@href] | //img[@src] | //source[@src] | //video[@src] | //audio[@src] | //img[@srcset]") {
		for _, attr := range []string{"href", "src", "srcset"} {
			if v := htmlquery.SelectAttr(n, attr); isRemote(v) {
				col.add(RuleExternalResource, v)
			}
		}
	}

	for _, n := range htmlquery.Find(doc, "//iframe | //frame | //frameset | //object | //embed | //portal") {
		col.add(RuleNestedFrame, "<"+n.Data+">")
	}

	for _, n := range htmlquery.Find(doc, "//form[@action]") {
		if v := htmlquery.SelectAttr(n, "action"); isRemote(v) || strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "javascript:") {
			col.add(RuleExternalForm, v)
		}
	}

	for _, n := range htmlquery.Find(doc, "//meta[@http-equiv]") {
		if strings.EqualFold(htmlquery.SelectAttr(n, "http-equiv"), "refresh") {
			col.add(RuleMetaRefresh, htmlquery.SelectAttr(n, "content"))
		}
	}

	var scripts []string
	for _, n := range htmlquery.Find(doc, "//script[not(@src)]") {
		scripts = append(scripts, htmlquery.InnerText(n))
	}
	for _, n := range htmlquery.Find(doc, "//*") {
		for _, attr := range n.Attr {
			key := strings.ToLower(attr.Key)
			switch {
			case strings.HasPrefix(key, "on"):
				scripts = append(scripts, attr.Val)
			case key == "href" || key == "src" || key == "action":
				if strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:") {
					scripts = append(scripts, strings.TrimSpace(attr.Val)[len("javascript:"):])
				}
			}
		}
	}

	before := countElements(doc)
	cleanDoc, err := htmlquery.Parse(strings.NewReader(a.policy.Sanitize(markup)))
	if err != nil {
		return nil, err
	}
	after := countElements(cleanDoc)

	var stripped []string
	for tag, n := range before {
		if after[tag] < n {
			stripped = append(stripped, tag)
		}
	}
	sort.Strings(stripped)
	for _, tag := range stripped {
		col.add(RuleDisallowedMarkup, "<"+tag+">")
	}

	return scripts, nil
}

// Elements judged by other rules or by the sandbox itself are not compared
var uncounted = map[string]bool{
	"html": true, "head": true, "body": true, "title": true,
	"script": true, "style": true, "form": true, "input": true,
	"iframe": true, "frame": true, "frameset": true, "object": true, "embed": true, "portal": true,
	"meta": true, "link": true,
}

func countElements(doc *html.Node) map[string]int {
	counts := make(map[string]int)
	for _, n := range htmlquery.Find(doc, "//*") {
		if !uncounted[n.Data] {
			counts[n.Data]++
		}
	}
	return counts
}

func matchPatterns(patterns []pattern, src string, col *collector) {
	if src == "" {
		return
	}
	for _, p := range patterns {
		for _, m := range p.re.FindAllString(src, -1) {
			col.add(p.rule, strings.TrimSpace(m))
		}
	}
}

func isRemote(ref string) bool {
	ref = strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "//") ||
		strings.Contains(ref, " http://") ||
		strings.Contains(ref, " https://")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
