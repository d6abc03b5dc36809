// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/register/app/services/register/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/register/app/services/register/handlers/v1"
	"github.com/ardanlabs/register/app/services/register/handlers/viewgrp"
	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/business/web/mid"
	"github.com/ardanlabs/register/foundation/events"
	"github.com/ardanlabs/register/foundation/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIMuxConfig contains all the mandatory systems required by handlers.
type APIMuxConfig struct {
	Shutdown    chan os.Signal
	Log         *zap.SugaredLogger
	Core        *student.Core
	Evts        *events.Events[student.Event]
	CorsOrigins []string
}

// APIMux constructs a http.Handler with the view and the v1 routes defined.
func APIMux(cfg APIMuxConfig) (http.Handler, error) {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Cors(cfg.CorsOrigins),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
	app.Handle(http.MethodOptions, "", "/*", h)

	// Register the HTML view of the register.
	vgh, err := viewgrp.New(cfg.Log, cfg.Core)
	if err != nil {
		return nil, fmt.Errorf("loading view: %w", err)
	}
	app.Handle(http.MethodGet, "", "/", vgh.Index)
	app.Handle(http.MethodGet, "", "/students.xlsx", vgh.Roster)
	app.Handle(http.MethodPost, "", "/register", vgh.Register)
	app.Handle(http.MethodPost, "", "/remove", vgh.Remove)
	app.Handle(http.MethodPost, "", "/search", vgh.Search)
	app.Handle(http.MethodPost, "", "/reload", vgh.Reload)

	// Load the v1 routes.
	v1.Routes(app, v1.Config{
		Log:         cfg.Log,
		Core:        cfg.Core,
		Evts:        cfg.Evts,
		CorsOrigins: cfg.CorsOrigins,
	})

	return app, nil
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service. This bypassing the use of the
// DefaultServerMux. Using the DefaultServerMux would be a security risk since
// a dependency could inject a handler into our service without us knowing it.
func DebugMux(build string, log *zap.SugaredLogger, core *student.Core) http.Handler {
	mux := DebugStandardLibraryMux()

	// Expose the prometheus collectors.
	mux.Handle("/metrics", promhttp.Handler())

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		Core:  core,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
