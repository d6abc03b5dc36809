// Package studentgrp maintains the group of handlers for student register
// access.
package studentgrp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/business/web/errs"
	"github.com/ardanlabs/register/business/web/mid"
	"github.com/ardanlabs/register/foundation/events"
	"github.com/ardanlabs/register/foundation/validate"
	"github.com/ardanlabs/register/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of student endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Core    *student.Core
	WS      websocket.Upgrader
	Evts    *events.Events[student.Event]
	Origins []string
}

// State returns the current view state.
func (h Handlers) State(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toAppState(h.Core.Snapshot()), http.StatusOK)
}

// Query reloads the roster from the ledger and returns it.
func (h Handlers) Query(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	students, err := h.Core.Reload(ctx)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toAppStudents(students), http.StatusOK)
}

// Total returns the number of registered students as of the last load.
func (h Handlers) Total(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if !h.Core.Ready() {
		return toTrusted(student.ErrNotReady)
	}

	resp := struct {
		Total uint64 `json:"total"`
	}{
		Total: h.Core.Snapshot().Total,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// QueryByID searches the ledger for the student with the specified id.
func (h Handlers) QueryByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	found, err := h.Core.Search(ctx, web.Param(r, "id"))
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toAppStudent(found), http.StatusOK)
}

// Create registers a new student and returns the refreshed state.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ns AppNewStudent
	if err := web.Decode(r, &ns); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	// A blank name is treated as missing.
	ns.Name = strings.TrimSpace(ns.Name)

	if err := validate.Check(ns); err != nil {
		return err
	}

	if err := h.Core.Register(ctx, ns.Name); err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toAppState(h.Core.Snapshot()), http.StatusCreated)
}

// Delete removes the student with the specified id.
func (h Handlers) Delete(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.Core.Remove(ctx, web.Param(r, "id")); err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Events handles a web socket to provide roster changes to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool {
		return mid.OriginAllowed(h.Origins, r.Header.Get("Origin"))
	}

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// The upgrade hijacked the connection so the status is recorded here.
	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			msg, err := json.Marshal(evt)
			if err != nil {
				return err
			}

			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// toTrusted maps the view errors onto the status codes the client sees.
// The client gets the view message, the logs keep the cause.
func toTrusted(err error) error {
	msg := student.Message(err)

	switch {
	case errors.Is(err, student.ErrBusy):
		return errs.NewTrustedMessage(err, msg, http.StatusConflict)

	case errors.Is(err, student.ErrNotReady), student.IsConnectionError(err):
		return errs.NewTrustedMessage(err, msg, http.StatusServiceUnavailable)

	case student.IsCallError(err):
		return errs.NewTrustedMessage(err, msg, http.StatusBadRequest)
	}

	return err
}
