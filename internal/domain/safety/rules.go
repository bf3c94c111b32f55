package safety

import "regexp"

// Severity grades a finding
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rule names
const (
	RuleExternalScript   = "external_script"
	RuleExternalResource = "external_resource"
	RuleNestedFrame      = "nested_frame"
	RuleExternalForm     = "external_form"
	RuleMetaRefresh      = "meta_refresh"
	RuleDisallowedMarkup = "disallowed_markup"
	RuleParentAccess     = "parent_access"
	RuleNetwork          = "network_access"
	RuleDynamicCode      = "dynamic_code"
	RuleStorage          = "cookie_storage"
	RuleNavigation       = "navigation"
	RuleDocumentWrite    = "document_write"
	RuleCSSImport        = "css_remote_import"
	RuleCSSRemoteURL     = "css_remote_url"
	RuleCSSExpression    = "css_expression"
	RuleOversized        = "oversized"
	RuleRuntimeError     = "runtime_error"
	RuleHandlerError     = "handler_error"
	RuleRuntimeTimeout   = "runtime_timeout"
	RuleRuntimeMemory    = "runtime_memory"
)

type ruleInfo struct {
	severity Severity
	penalty  float64
	message  string
}

// Each rule costs its penalty once, however many times it matches
var rules = map[string]ruleInfo{
	RuleExternalScript:   {SeverityHigh, 0.30, "loads script from another origin"},
	RuleExternalResource: {SeverityLow, 0.10, "references remote resources"},
	RuleNestedFrame:      {SeverityHigh, 0.30, "embeds frames, objects or plugins"},
	RuleExternalForm:     {SeverityMedium, 0.15, "submits a form to another origin"},
	RuleMetaRefresh:      {SeverityMedium, 0.15, "redirects with meta refresh"},
	RuleDisallowedMarkup: {SeverityLow, 0.05, "contains markup outside the allowed set"},
	RuleParentAccess:     {SeverityHigh, 0.30, "reaches for the embedding page"},
	RuleNetwork:          {SeverityHigh, 0.25, "uses network APIs"},
	RuleDynamicCode:      {SeverityHigh, 0.25, "evaluates code from strings"},
	RuleStorage:          {SeverityMedium, 0.15, "touches cookies or browser storage"},
	RuleNavigation:       {SeverityMedium, 0.15, "navigates or opens windows"},
	RuleDocumentWrite:    {SeverityLow, 0.05, "uses document.write"},
	RuleCSSImport:        {SeverityMedium, 0.15, "imports remote stylesheets"},
	RuleCSSRemoteURL:     {SeverityLow, 0.10, "loads remote assets from CSS"},
	RuleCSSExpression:    {SeverityMedium, 0.15, "uses scriptable CSS"},
	RuleOversized:        {SeverityMedium, 0.20, "exceeds content size limits"},
	RuleRuntimeError:     {SeverityMedium, 0.20, "throws while loading"},
	RuleHandlerError:     {SeverityLow, 0.05, "throws in an event handler"},
	RuleRuntimeTimeout:   {SeverityHigh, 0.30, "does not finish loading"},
	RuleRuntimeMemory:    {SeverityHigh, 0.30, "allocates without bound while loading"},
}

type pattern struct {
	rule string
	re   *regexp.Regexp
}

var jsPatterns = []pattern{
	// A bare parent/top/opener, or one reached through window, self or
	// globalThis. Member access such as rect.top is someone else's property.
	{RuleParentAccess, regexp.MustCompile(`(?:^|[^.\w$])\s*(?:parent|top|opener)\s*(?:\.|\[)|\b(?:window|self|globalThis)\s*(?:\.\s*|\[\s*['"])(?:parent|top|opener)\b|\bframeElement\b`)},
	{RuleNetwork, regexp.MustCompile(`\bfetch\s*\(|\bXMLHttpRequest\b|\bWebSocket\b|\bEventSource\b|\bsendBeacon\b|\bimportScripts\b`)},
	{RuleDynamicCode, regexp.MustCompile(`\beval\s*\(|\bnew\s+Function\s*\(|\bset(?:Timeout|Interval)\s*\(\s*['"` + "`" + `]`)},
	{RuleStorage, regexp.MustCompile(`\bdocument\.cookie\b|\blocalStorage\b|\bsessionStorage\b|\bindexedDB\b`)},
	{RuleNavigation, regexp.MustCompile(`\blocation\s*(?:\.href\s*)?=[^=]|\blocation\.(?:assign|replace)\s*\(|\bwindow\.open\s*\(`)},
	{RuleDocumentWrite, regexp.MustCompile(`\bdocument\.write(?:ln)?\s*\(`)},
}

var cssPatterns = []pattern{
	{RuleCSSImport, regexp.MustCompile(`(?i)@import\s+(?:url\(\s*)?['"]?(?:https?:)?//`)},
	{RuleCSSRemoteURL, regexp.MustCompile(`(?i)url\(\s*['"]?(?:https?:)?//`)},
	{RuleCSSExpression, regexp.MustCompile(`(?i)expression\s*\(|behavior\s*:|-moz-binding`)},
}
