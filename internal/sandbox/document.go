package sandbox

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/id"
)

const (
	// CSP is the content security policy applied to every sandbox document
	CSP = "default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline'; " +
		"img-src data: blob:; font-src data:; connect-src 'none'; form-action 'none'"

	// SandboxAttr is the iframe sandbox attribute. allow-same-origin is never granted.
	SandboxAttr = "allow-scripts allow-forms allow-popups allow-modals"

	defaultTitle = "App Preview"
)

// MarkerAttr tags the elements BuildDocument injects around user content
const MarkerAttr = "data-appfeed"

// Marker values
const (
	MarkBase   = "base"
	MarkBridge = "bridge"
	MarkApp    = "app"
)

const (
	appScriptPrefix = "try {\n"
	appScriptSuffix = "\n} catch (error) {\n  window.__appfeedReport(error);\n}\n"
)

// DefaultCapabilities are announced by the bridge in its ready message
var DefaultCapabilities = []string{"console", "error", "interaction"}

// Content is the untrusted code to render
type Content struct {
	Title string
	HTML  string
	CSS   string
	JS    string
}

// Options tune the generated document
type Options struct {
	Channel      string        // reuse an existing channel instead of minting one
	TargetOrigin string        // postMessage target origin, "*" when empty
	Capabilities []string      // defaults to DefaultCapabilities
	IdleDebounce time.Duration // quiet period before interaction end, 1s when zero
}

// Document is a ready-to-serve sandbox page
type Document struct {
	HTML        string `json:"html"`
	Channel     string `json:"channel"`
	CSP         string `json:"csp"`
	SandboxAttr string `json:"sandbox"`
}

// HeaderPolicy is the CSP for the HTTP response serving the document. It
// adds the sandbox directive, which browsers ignore in a meta tag, so the
// page stays on an opaque origin even when opened outside an iframe.
func (d *Document) HeaderPolicy() string {
	return d.CSP + "; sandbox " + d.SandboxAttr
}

var (
	styleCloser   = regexp.MustCompile(`(?i)</style`)
	scriptCloser  = regexp.MustCompile(`(?i)</script`)
	commentOpener = regexp.MustCompile(`<!--`)

	escapedStyleCloser   = regexp.MustCompile(`(?i)<\\/style`)
	escapedScriptCloser  = regexp.MustCompile(`(?i)<\\/script`)
	escapedCommentOpener = regexp.MustCompile(`<\\!--`)
)

// EscapeCSS stops stylesheet text from closing its <style> element
func EscapeCSS(css string) string {
	return styleCloser.ReplaceAllStringFunc(css, func(m string) string {
		return `<\/` + m[2:]
	})
}

// EscapeScript stops script text from closing its <script> element or
// switching the tokenizer into an escaped state
func EscapeScript(js string) string {
	js = scriptCloser.ReplaceAllStringFunc(js, func(m string) string {
		return `<\/` + m[2:]
	})
	return commentOpener.ReplaceAllString(js, `<\!--`)
}

// UnescapeCSS reverses EscapeCSS. A backslash before / means / in CSS, so
// text that already carried the escape keeps its meaning.
func UnescapeCSS(css string) string {
	return escapedStyleCloser.ReplaceAllStringFunc(css, func(m string) string {
		return `</` + m[3:]
	})
}

// UnescapeScript reverses EscapeScript. Inside JS strings and regexps the
// escaped and plain forms are the same value.
func UnescapeScript(js string) string {
	js = escapedScriptCloser.ReplaceAllStringFunc(js, func(m string) string {
		return `</` + m[3:]
	})
	return escapedCommentOpener.ReplaceAllString(js, `<!--`)
}

type bridgeConfig struct {
	Version      int      `json:"v"`
	Channel      string   `json:"channel"`
	Origin       string   `json:"origin"`
	Capabilities []string `json:"capabilities"`
	IdleMs       int64    `json:"idleMs"`
}

// BuildDocument assembles the sandbox page for c
func BuildDocument(c Content, opts Options) (*Document, error) {
	channel := opts.Channel
	if channel == "" {
		channel = id.NewChannelID().String()
	}
	origin := opts.TargetOrigin
	if origin == "" {
		origin = "*"
	}
	caps := opts.Capabilities
	if len(caps) == 0 {
		caps = DefaultCapabilities
	}
	idle := opts.IdleDebounce
	if idle <= 0 {
		idle = time.Second
	}
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = defaultTitle
	}

	cfg, err := sonic.MarshalString(bridgeConfig{
		Version:      ProtocolVersion,
		Channel:      channel,
		Origin:       origin,
		Capabilities: caps,
		IdleMs:       idle.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.Grow(len(c.HTML) + len(c.CSS) + len(c.JS) + len(bridgeScript) + len(baseStyles) + 512)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta http-equiv=\"Content-Security-Policy\" content=\"" + html.EscapeString(CSP) + "\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	b.WriteString("<style " + MarkerAttr + "=\"" + MarkBase + "\">\n")
	b.WriteString(baseStyles)
	b.WriteString("\n</style>\n")
	b.WriteString("<style " + MarkerAttr + "=\"" + MarkApp + "\">\n")
	b.WriteString(EscapeCSS(c.CSS))
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(c.HTML)
	b.WriteString("\n<script " + MarkerAttr + "=\"" + MarkBridge + "\">\n")
	b.WriteString(strings.Replace(bridgeScript, "__BRIDGE_CONFIG__", EscapeScript(cfg), 1))
	b.WriteString("\n</script>\n<script " + MarkerAttr + "=\"" + MarkApp + "\">\n")
	b.WriteString(appScriptPrefix)
	b.WriteString(EscapeScript(c.JS))
	b.WriteString(appScriptSuffix)
	b.WriteString("</script>\n</body>\n</html>\n")

	return &Document{
		HTML:        b.String(),
		Channel:     channel,
		CSP:         CSP,
		SandboxAttr: SandboxAttr,
	}, nil
}

// UnwrapScript returns the user script from the text of a marked app
// script element. Text without the wrapper is returned unchanged.
func UnwrapScript(text string) string {
	text = strings.TrimPrefix(text, "\n")
	if strings.HasPrefix(text, appScriptPrefix) && strings.HasSuffix(text, appScriptSuffix) {
		return text[len(appScriptPrefix) : len(text)-len(appScriptSuffix)]
	}
	return text
}
