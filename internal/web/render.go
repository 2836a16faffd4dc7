package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/submission"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "home", "services", "contact", "admin"
}

// ContentPageData is the template data for markdown-backed marketing pages.
type ContentPageData struct {
	PageData
	Body template.HTML
}

// ContactPageData is the template data for the contact form.
type ContactPageData struct {
	PageData
	Error          string
	CaptchaSiteKey string
}

// ThanksPageData is the template data for the confirmation page.
type ThanksPageData struct {
	PageData
	Warning string
}

// BucketView is one status list on the admin page.
type BucketView struct {
	Status submission.Status
	Label  string
	Items  []submission.Submission
}

// AdminPageData is the template data for the admin inbox.
type AdminPageData struct {
	PageData
	Buckets []BucketView
	Flash   string
	Warning string
}

// Field is one labelled value on the detail page.
type Field struct {
	Label string
	Value string
}

// DetailPageData is the template data for a single submission.
type DetailPageData struct {
	PageData
	Submission *submission.Submission
	Fields     []Field
	Message    template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	md        goldmark.Markdown
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"statusLabel": func(s submission.Status) string { return s.Label() },
		"orDash": func(s string) string {
			if strings.TrimSpace(s) == "" {
				return "-"
			}
			return s
		},
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"content": "content.html",
		"contact": "contact.html",
		"thanks":  "thanks.html",
		"admin":   "admin.html",
		"detail":  "detail.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	// Raw HTML in markdown input is dropped, not passed through.
	md := goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	return &Renderer{
		templates: templates,
		version:   version,
		md:        md,
	}
}

// page returns PageData with the renderer's version filled in.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("template execution failed", "template", name,
			"request_id", RequestIDFromContext(req.Context()), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
// Internal and storage causes are logged; users only see a generic message.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	sErr := errors.As(err)

	status := sErr.Status
	message := sErr.Message
	if !sErr.Public() {
		slog.Error("request failed",
			"request_id", RequestIDFromContext(req.Context()),
			"code", sErr.Code,
			"error", err,
		)
		message = "Something went wrong on our side. Please try again later."
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(sErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
