package mid

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/register/business/sys/metrics"
	"github.com/ardanlabs/register/business/web/errs"
	"github.com/ardanlabs/register/foundation/validate"
	"github.com/ardanlabs/register/foundation/web"
)

// Metrics updates the prometheus request counters and latency histogram.
// The route pattern is used as a label so ids don't explode the series.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			v, verr := web.GetValues(ctx)
			if verr != nil {
				return err
			}

			// Errors further up the chain have not been written yet.
			status := v.StatusCode
			switch {
			case err == nil:
			case errs.IsTrusted(err):
				status = errs.GetTrusted(err).Status
			case validate.IsFieldErrors(err):
				status = http.StatusBadRequest
			default:
				status = http.StatusInternalServerError
			}

			metrics.Requests.WithLabelValues(r.Method, v.Route, strconv.Itoa(status)).Inc()
			metrics.RequestDuration.WithLabelValues(r.Method, v.Route).Observe(time.Since(v.Now).Seconds())

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
