// Package viewgrp maintains the group of handlers that render the student
// register as an HTML page and accept its form actions.
package viewgrp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/foundation/web"
	"go.uber.org/zap"
)

//go:embed templates
var templates embed.FS

// Handlers manages the set of view endpoints.
type Handlers struct {
	Log  *zap.SugaredLogger
	Core *student.Core
	tmpl *template.Template
}

// New constructs the view handlers with the page template loaded.
func New(log *zap.SugaredLogger, core *student.Core) (Handlers, error) {
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return Handlers{}, fmt.Errorf("parsing index template: %w", err)
	}

	h := Handlers{
		Log:  log,
		Core: core,
		tmpl: tmpl,
	}

	return h, nil
}

// page is the data the index template renders.
type page struct {
	student.State
	Notice string
}

// Index renders the current view state.
func (h Handlers) Index(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	p := page{
		State:  h.Core.Snapshot(),
		Notice: r.URL.Query().Get("notice"),
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", p); err != nil {
		return fmt.Errorf("rendering index: %w", err)
	}

	web.SetStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		return err
	}

	return nil
}

// Register handles the register form.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	err := h.Core.Register(ctx, r.PostFormValue("name"))
	return h.back(ctx, w, r, err)
}

// Remove handles the remove form.
func (h Handlers) Remove(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	err := h.Core.Remove(ctx, r.PostFormValue("id"))
	return h.back(ctx, w, r, err)
}

// Search handles the search form.
func (h Handlers) Search(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	_, err := h.Core.Search(ctx, r.PostFormValue("id"))
	return h.back(ctx, w, r, err)
}

// Reload handles the get all students button.
func (h Handlers) Reload(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	_, err := h.Core.Reload(ctx)
	return h.back(ctx, w, r, err)
}

// Roster downloads the cached roster as a workbook.
func (h Handlers) Roster(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var buf bytes.Buffer
	if err := h.Core.Roster(&buf); err != nil {
		return fmt.Errorf("writing roster: %w", err)
	}

	web.SetStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="students.xlsx"`)
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		return err
	}

	return nil
}

// back sends the browser to the index page. Failures of the action itself
// are already part of the view state; errors that never reached the ledger
// are carried as a notice.
func (h Handlers) back(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) error {
	location := "/"

	if err != nil {
		h.Log.Infow("view action", "traceid", web.GetTraceID(ctx), "path", r.URL.Path, "ERROR", err)

		if errors.Is(err, student.ErrBusy) || errors.Is(err, student.ErrNotReady) {
			location = "/?notice=" + url.QueryEscape(student.Message(err))
		}
	}

	return web.Redirect(ctx, w, r, location)
}
