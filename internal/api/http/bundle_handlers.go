package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/apps"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/bundle"
)

// Export formats
const (
	formatHTML = "html"
	formatZip  = "zip"
)

// ExportApp handles GET /api/apps/:id/export?format=html|zip
func (h *Handlers) ExportApp(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", formatHTML)
	if format != formatHTML && format != formatZip {
		abort(c, http.StatusBadRequest, "Invalid format parameter", format)
		return
	}

	app, err := h.apps.Get(c.Request.Context(), appID, viewer(c))
	if err != nil {
		h.fail(c, err, "Failed to export app")
		return
	}

	done := h.metrics.Track(serviceBundle, "export_"+format)
	switch format {
	case formatZip:
		var buf bytes.Buffer
		err = bundle.ExportZip(&buf, app)
		done(err)
		if err != nil {
			h.fail(c, err, "Failed to export app")
			return
		}
		attachment(c, bundle.FileName(app, formatZip))
		c.Data(http.StatusOK, "application/zip", buf.Bytes())
	default:
		doc, err := bundle.ExportHTML(app, h.renderOptions())
		done(err)
		if err != nil {
			h.fail(c, err, "Failed to export app")
			return
		}
		attachment(c, bundle.FileName(app, formatHTML))
		writeDocument(c, doc)
	}
}

// ImportApp handles POST /api/apps/import. The multipart "file" field holds
// a zip bundle or HTML page. With create=true the app is published too.
func (h *Handlers) ImportApp(c *gin.Context) {
	create, err := strconv.ParseBool(c.DefaultQuery("create", "false"))
	if err != nil {
		abort(c, http.StatusBadRequest, "Invalid create parameter", c.Query("create"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bundle.MaxUploadSize+(64<<10))
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(c, fmt.Errorf("%w: %v", bundle.ErrTooLarge, err), "Failed to import app")
			return
		}
		abort(c, http.StatusBadRequest, "Missing file", err.Error())
		return
	}
	if fh.Size > bundle.MaxUploadSize {
		h.fail(c, fmt.Errorf("%w: %d bytes", bundle.ErrTooLarge, fh.Size), "Failed to import app")
		return
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "Failed to read file", err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, bundle.MaxUploadSize+1))
	if err != nil {
		abort(c, http.StatusBadRequest, "Failed to read file", err.Error())
		return
	}

	done := h.metrics.Track(serviceBundle, "import")
	imported, err := bundle.Import(fh.Filename, data)
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to import app")
		return
	}

	if !create {
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"imported": imported,
		})
		return
	}

	app, report, err := h.apps.Create(c.Request.Context(), apps.CreateInput{
		Title:       imported.Title,
		Description: imported.Description,
		HTMLContent: imported.HTML,
		CSSContent:  imported.CSS,
		JSContent:   imported.JS,
		PromptUsed:  imported.Prompt,
		UserID:      viewer(c),
	})
	if err != nil {
		h.fail(c, err, "Failed to create app")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"imported": imported,
		"app":      app,
		"safety":   report,
		"message":  "App created successfully",
	})
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
