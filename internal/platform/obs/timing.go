package obs

import (
	"context"
	"package-tracking-service/internal/platform/logger"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Time logs the duration of an operation and its error, if any:
//
//	defer obs.Time(ctx, log, "packages.sql.Update")(&err)
func Time(ctx context.Context, log *logger.Logger, name string) func(errp *error) {
	start := time.Now()

	reqID := middleware.GetReqID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Warn("op failed", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		log.Debug("op", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds())
	}
}
