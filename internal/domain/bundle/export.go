package bundle

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zip"

	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// File names inside a zip bundle
const (
	IndexFile    = "index.html"
	StyleFile    = "style.css"
	ScriptFile   = "app.js"
	ManifestFile = "manifest.json"
)

// ManifestVersion is written to every exported manifest
const ManifestVersion = 1

// Manifest is the metadata file of a zip bundle
type Manifest struct {
	Version     int       `json:"version"`
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
	Author      string    `json:"author,omitempty"`
	SafetyScore float64   `json:"safetyScore,omitempty"`
	ContentHash string    `json:"contentHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// ExportHTML renders the app as a standalone sandbox page
func ExportHTML(app *types.App, opts sandbox.Options) (*sandbox.Document, error) {
	return sandbox.BuildDocument(sandbox.Content{
		Title: app.Title,
		HTML:  app.HTMLContent,
		CSS:   app.CSSContent,
		JS:    app.JSContent,
	}, opts)
}

// FileName returns a download name for the app with the given extension
func FileName(app *types.App, ext string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(app.Title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "app"
	}
	return name + "." + ext
}

// indexPage links the sibling stylesheet and script
func indexPage(app *types.App) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<title>" + html.EscapeString(app.Title) + "</title>\n")
	b.WriteString("<link rel=\"stylesheet\" href=\"" + StyleFile + "\">\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(app.HTMLContent)
	b.WriteString("\n<script src=\"" + ScriptFile + "\"></script>\n")
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// ExportZip writes the app as a zip bundle
func ExportZip(w io.Writer, app *types.App) error {
	manifest, err := sonic.ConfigStd.MarshalIndent(Manifest{
		Version:     ManifestVersion,
		ID:          app.ID,
		Title:       app.Title,
		Description: app.Description,
		Prompt:      app.PromptUsed,
		Author:      app.User.Username,
		SafetyScore: app.SafetyScore,
		ContentHash: app.ContentHash,
		CreatedAt:   app.CreatedAt,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	modified := app.UpdatedAt
	if modified.IsZero() {
		modified = time.Now()
	}

	zw := zip.NewWriter(w)
	files := []struct {
		name string
		data []byte
	}{
		{IndexFile, []byte(indexPage(app))},
		{StyleFile, []byte(app.CSSContent)},
		{ScriptFile, []byte(app.JSContent)},
		{ManifestFile, manifest},
	}
	for _, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", f.name, err)
		}
		if _, err := fw.Write(f.data); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return zw.Close()
}
