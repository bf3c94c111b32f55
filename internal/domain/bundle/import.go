package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

// Upload limits
const (
	MaxUploadSize = 2 << 20
	MaxEntries    = 32
)

var (
	// ErrTooLarge is returned when an upload or one of its entries is too big
	ErrTooLarge = errors.New("bundle too large")
	// ErrUnsupportedType is returned for uploads that are neither zip nor HTML
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidBundle is returned when the upload has no usable app
	ErrInvalidBundle = errors.New("invalid bundle")
)

// Imported is the app content recovered from an upload
type Imported struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"promptUsed"`
	HTML        string `json:"htmlContent"`
	CSS         string `json:"cssContent"`
	JS          string `json:"jsContent"`
	// Format is the detected upload type, "zip" or "html"
	Format string `json:"format"`
}

// Import reads an uploaded zip bundle or HTML page
func Import(filename string, data []byte) (*Imported, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidBundle)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), MaxUploadSize)
	}

	mtype := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		imp *Imported
		err error
	)
	switch {
	case mtype.Is("application/zip"):
		imp, err = importZip(data)
	case mtype.Is("text/html"),
		mtype.Is("text/plain") && (ext == ".html" || ext == ".htm"):
		imp, err = importHTML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}
	if err != nil {
		return nil, err
	}

	if imp.Title == "" {
		imp.Title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	imp.Title = utils.SanitizeText(imp.Title)
	imp.Description = utils.SanitizeText(imp.Description)

	if strings.TrimSpace(imp.HTML) == "" {
		return nil, fmt.Errorf("%w: no markup found", ErrInvalidBundle)
	}
	if err := utils.ValidateCode(imp.HTML, imp.CSS, imp.JS); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
	}
	return imp, nil
}

// DetectCharset names the most likely encoding of data
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// toUTF8 decodes text of unknown encoding
func toUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}

	r, err := charset.NewReader(bytes.NewReader(data), "text/plain; charset="+DetectCharset(data))
	if err != nil {
		return "", fmt.Errorf("%w: unknown text encoding", ErrInvalidBundle)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return string(out), nil
}

// page holds what extractPage finds in an HTML document
type page struct {
	title string
	html  string
	css   []string
	js    []string
}

// extractPage splits an HTML document into markup, styles and scripts.
// Elements injected by the sandbox document builder are dropped, and the
// app's own style and script are unwrapped and unescaped.
func extractPage(src string) (*page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	p := &page{title: strings.TrimSpace(doc.Find("title").First().Text())}
	if p.title == "App Preview" {
		p.title = ""
	}

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		switch s.AttrOr(sandbox.MarkerAttr, "") {
		case sandbox.MarkBase:
			return
		case sandbox.MarkApp:
			text = sandbox.UnescapeCSS(text)
		}
		if css := strings.TrimSpace(text); css != "" {
			p.css = append(p.css, css)
		}
	})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		text := s.Text()
		switch s.AttrOr(sandbox.MarkerAttr, "") {
		case sandbox.MarkBridge:
			return
		case sandbox.MarkApp:
			text = sandbox.UnescapeScript(sandbox.UnwrapScript(text))
		}
		if js := strings.TrimSpace(text); js != "" {
			p.js = append(p.js, js)
		}
	})

	doc.Find("script, style, link, meta, title").Remove()
	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	p.html = strings.TrimSpace(body)
	return p, nil
}

func importHTML(data []byte) (*Imported, error) {
	src, err := toUTF8(data)
	if err != nil {
		return nil, err
	}
	p, err := extractPage(src)
	if err != nil {
		return nil, err
	}
	return &Imported{
		Title:  p.title,
		HTML:   p.html,
		CSS:    strings.Join(p.css, "\n\n"),
		JS:     strings.Join(p.js, "\n\n"),
		Format: "html",
	}, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxUploadSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, f.Name, err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	return data, nil
}

func importZip(data []byte) (*Imported, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	files := make(map[string]*zip.File)
	var htmlFiles []*zip.File
	count := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		count++
		if count > MaxEntries {
			return nil, fmt.Errorf("%w: more than %d entries", ErrTooLarge, MaxEntries)
		}
		base := strings.ToLower(path.Base(f.Name))
		if _, dup := files[base]; !dup {
			files[base] = f
		}
		if ext := path.Ext(base); ext == ".html" || ext == ".htm" {
			htmlFiles = append(htmlFiles, f)
		}
	}

	index := files[IndexFile]
	if index == nil && len(htmlFiles) == 1 {
		index = htmlFiles[0]
	}
	if index == nil {
		return nil, fmt.Errorf("%w: zip has no %s", ErrInvalidBundle, IndexFile)
	}

	text := func(name string) (string, error) {
		f := files[name]
		if f == nil {
			return "", nil
		}
		raw, err := readEntry(f)
		if err != nil {
			return "", err
		}
		return toUTF8(raw)
	}

	raw, err := readEntry(index)
	if err != nil {
		return nil, err
	}
	src, err := toUTF8(raw)
	if err != nil {
		return nil, err
	}
	p, err := extractPage(src)
	if err != nil {
		return nil, err
	}

	imp := &Imported{Title: p.title, HTML: p.html, Format: "zip"}

	css, err := text(StyleFile)
	if err != nil {
		return nil, err
	}
	js, err := text(ScriptFile)
	if err != nil {
		return nil, err
	}
	imp.CSS = strings.TrimSpace(strings.Join(append(p.css, css), "\n\n"))
	imp.JS = strings.TrimSpace(strings.Join(append(p.js, js), "\n\n"))

	if files[ManifestFile] != nil {
		raw, err := readEntry(files[ManifestFile])
		if err != nil {
			return nil, err
		}
		var m Manifest
		if err := sonic.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: manifest: %v", ErrInvalidBundle, err)
		}
		if m.Title != "" {
			imp.Title = m.Title
		}
		imp.Description = m.Description
		imp.Prompt = m.Prompt
	}
	return imp, nil
}
