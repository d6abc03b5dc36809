// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/register/app/services/register/handlers/v1/studentgrp"
	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/foundation/events"
	"github.com/ardanlabs/register/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	Core        *student.Core
	Evts        *events.Events[student.Event]
	CorsOrigins []string
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	sgh := studentgrp.Handlers{
		Log:     cfg.Log,
		Core:    cfg.Core,
		WS:      websocket.Upgrader{},
		Evts:    cfg.Evts,
		Origins: cfg.CorsOrigins,
	}

	app.Handle(http.MethodGet, version, "/events", sgh.Events)
	app.Handle(http.MethodGet, version, "/state", sgh.State)
	app.Handle(http.MethodGet, version, "/students", sgh.Query)
	app.Handle(http.MethodGet, version, "/students/total", sgh.Total)
	app.Handle(http.MethodGet, version, "/students/:id", sgh.QueryByID)
	app.Handle(http.MethodPost, version, "/students", sgh.Create)
	app.Handle(http.MethodDelete, version, "/students/:id", sgh.Delete)
}
