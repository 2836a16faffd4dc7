package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/dsautocare/site/internal/captcha"
	"github.com/dsautocare/site/internal/config"
	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/notify"
	"github.com/dsautocare/site/internal/ops"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// maxFormBytes caps the contact form body.
const maxFormBytes = 64 << 10

// contactErrors maps the error key in /contact?error=<key> to the message shown.
// Only known keys are displayed so the query string cannot inject text.
var contactErrors = map[string]string{
	"missing":      "Please tell us your name and email address.",
	"verification": "We could not verify that you are human. Please try again.",
	"invalid":      "We could not read your message. Please try again.",
}

// Handlers contains HTTP route handlers for the site.
type Handlers struct {
	store    store.Store
	verifier captcha.Verifier
	notifier notify.Notifier
	cfg      *config.Config
	renderer *Renderer
	pages    map[string]template.HTML
}

// loadContent renders every embedded content/*.md page once at startup.
func loadContent(r *Renderer, fsys fs.FS) (map[string]template.HTML, error) {
	files, err := fs.Glob(fsys, "content/*.md")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]template.HTML, len(files))
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(f, "content/"), ".md")
		pages[name] = r.renderMarkdown(string(data))
	}
	return pages, nil
}

// HandleHome handles GET /.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.renderContent(w, r, "home", "DS Auto Care", "home")
}

// HandleServices handles GET /services.
func (h *Handlers) HandleServices(w http.ResponseWriter, r *http.Request) {
	h.renderContent(w, r, "services", "Services", "services")
}

func (h *Handlers) renderContent(w http.ResponseWriter, r *http.Request, page, title, nav string) {
	body, ok := h.pages[page]
	if !ok {
		h.renderer.renderError(w, r, errors.NewInternal(fmt.Errorf("content page %q missing", page)))
		return
	}
	h.renderer.renderPage(w, r, "content", ContentPageData{
		PageData: h.renderer.page(title, nav),
		Body:     body,
	})
}

// HandleContactForm handles GET /contact.
func (h *Handlers) HandleContactForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "contact", ContactPageData{
		PageData:       h.renderer.page("Contact Us", "contact"),
		Error:          contactErrors[r.URL.Query().Get("error")],
		CaptchaSiteKey: h.cfg.CaptchaSiteKey,
	})
}

// HandleContactSubmit handles POST /contact: verify, validate, store, notify.
func (h *Handlers) HandleContactSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		redirectContactError(w, r, "invalid")
		return
	}

	input := ops.SubmitInput{
		Fields:       formFields(r.PostForm),
		CaptchaToken: r.PostForm.Get("g-recaptcha-response"),
		RemoteIP:     clientIP(r, h.cfg.TrustProxy),
	}

	out, err := ops.Submit(r.Context(), ops.SubmitDeps{
		Store:    h.store,
		Verifier: h.verifier,
		Notifier: h.notifier,
	}, input)
	switch {
	case errors.Is(err, errors.ErrValidation):
		redirectContactError(w, r, "missing")
		return
	case errors.Is(err, errors.ErrVerificationFailed):
		redirectContactError(w, r, "verification")
		return
	case err != nil:
		h.renderer.renderError(w, r, err)
		return
	}

	target := "/thanks"
	if out.Warning != "" {
		target += "?saved=0"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// formFields maps the contact form onto submission fields. The form keeps the
// snake_case names of the original site alongside the newer ones.
func formFields(form url.Values) submission.Fields {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := form.Get(k); v != "" {
				return v
			}
		}
		return ""
	}
	return submission.Fields{
		Name:                     first("name"),
		Email:                    first("email"),
		Car:                      first("car"),
		Phone:                    first("phone"),
		IsMobile:                 first("is_mobile"),
		ContactMethod:            first("contact_method"),
		BestTimeToCall:           first("best_time_to_call", "calltime"),
		PreferredAppointmentTime: first("preferred_appointment_time", "appointmenttime"),
		Message:                  first("message"),
		VehicleType:              first("vehicle_type"),
		Services:                 form["services"],
		Total:                    first("total"),
	}
}

func redirectContactError(w http.ResponseWriter, r *http.Request, key string) {
	http.Redirect(w, r, "/contact?error="+url.QueryEscape(key), http.StatusSeeOther)
}

// HandleThanks handles GET /thanks.
func (h *Handlers) HandleThanks(w http.ResponseWriter, r *http.Request) {
	data := ThanksPageData{PageData: h.renderer.page("Thank You", "contact")}
	if r.URL.Query().Get("saved") == "0" {
		data.Warning = "Your message was sent, but we could not save a copy of it."
	}
	h.renderer.renderPage(w, r, "thanks", data)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAdmin handles GET /admin: the four status lists.
func (h *Handlers) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	flash := popFlash(w, r)

	out, err := ops.Bucket(r.Context(), h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	views := make([]BucketView, 0, len(submission.Statuses))
	for _, st := range submission.Statuses {
		views = append(views, BucketView{
			Status: st,
			Label:  st.Label(),
			Items:  out.Buckets.Get(st),
		})
	}

	h.renderer.renderPage(w, r, "admin", AdminPageData{
		PageData: h.renderer.page("Submissions", "admin"),
		Buckets:  views,
		Flash:    flash,
		Warning:  out.Warning,
	})
}

// HandleDetail handles GET /admin/submissions/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	rec, err := ops.Get(r.Context(), h.store, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	values := rec.Values()
	fields := make([]Field, 0, len(values))
	for i, label := range submission.Header {
		if label == "Message" || label == "id" {
			continue
		}
		fields = append(fields, Field{Label: label, Value: values[i]})
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData:   h.renderer.page("Submission from "+displayName(rec), "admin"),
		Submission: rec,
		Fields:     fields,
		Message:    h.renderer.renderMarkdown(rec.Message),
	})
}

func displayName(s *submission.Submission) string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return "(no name)"
}

// adminActions maps the action path segment to the target status.
var adminActions = map[string]submission.Status{
	"accept":   submission.StatusAccepted,
	"complete": submission.StatusCompleted,
	"delete":   submission.StatusTrash,
	"restore":  submission.StatusInbox,
}

// HandleAction handles POST /admin/submissions/{id}/{action}.
func (h *Handlers) HandleAction(w http.ResponseWriter, r *http.Request) {
	status, ok := adminActions[r.PathValue("action")]
	if !ok {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown action"))
		return
	}

	out, err := ops.SetStatus(r.Context(), h.store, ops.SetStatusInput{
		ID:     r.PathValue("id"),
		Status: string(status),
	})
	switch {
	case errors.Is(err, errors.ErrStorage):
		setFlash(w, "The change could not be saved and may not be durable. Please try again.")
	case err != nil:
		h.renderer.renderError(w, r, err)
		return
	default:
		setFlash(w, out.Message)
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleClearInbox handles POST /admin/clear-inbox.
func (h *Handlers) HandleClearInbox(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ClearEmptyInbox(r.Context(), h.store)
	switch {
	case errors.Is(err, errors.ErrStorage):
		setFlash(w, "The inbox could not be cleared because the change could not be saved. Please try again.")
	case err != nil:
		h.renderer.renderError(w, r, err)
		return
	default:
		setFlash(w, out.Message)
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleExport handles GET /admin/export.csv.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := ops.Export(r.Context(), h.store, &buf); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="submissions.csv"`)
	_, _ = w.Write(buf.Bytes())
}
