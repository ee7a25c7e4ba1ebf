package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/brand"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/realtime"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// DefaultHeartbeat is how often an idle status stream sends a keep-alive comment.
const DefaultHeartbeat = 15 * time.Second

// StatusReader builds a brand's status read model.
type StatusReader interface {
	GetStatus(ctx context.Context, session models.Session, brandID uuid.UUID) (*brand.Status, error)
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/brands/{brandID}/status.
func NewStatusHandler(svc StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		brandID, ok := uuidParam(w, r, "brandID")
		if !ok {
			return
		}

		st, err := svc.GetStatus(r.Context(), session, brandID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{
			"brand_id":      st.BrandID,
			"scrape_status": st.ScrapeStatus,
			"runs":          st.Runs,
			"is_analyzing":  st.IsAnalyzing,
		})
	}
}

// NewStatusStreamHandler returns an http.HandlerFunc for
// GET /api/v1/brands/{brandID}/status/stream. It sends the current status as
// a server-sent event, then a fresh one after every run event for the brand,
// and ends the stream once nothing is analyzing.
func NewStatusStreamHandler(svc StatusReader, broker realtime.Broker, heartbeat time.Duration) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		brandID, ok := uuidParam(w, r, "brandID")
		if !ok {
			return
		}
		ctx := r.Context()

		// Ownership is checked before subscribing.
		if _, err := svc.GetStatus(ctx, session, brandID); err != nil {
			writeServiceError(w, r, err)
			return
		}

		sub, err := broker.Subscribe(ctx, brandID)
		if err != nil {
			slog.Error("status stream subscribe failed", "brand_id", brandID, "error", err)
			response.Error(w, http.StatusServiceUnavailable, "REALTIME_UNAVAILABLE",
				"Live status is unavailable, poll the status endpoint instead", nil)
			return
		}
		defer sub.Close()

		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		// send re-reads the status after subscribing, so no change between the
		// ownership check and the subscription is lost.
		send := func() (done bool, err error) {
			st, err := svc.GetStatus(ctx, session, brandID)
			if err != nil {
				return true, err
			}
			data, err := json.Marshal(st)
			if err != nil {
				return true, err
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return true, err
			}
			if err := rc.Flush(); err != nil {
				return true, err
			}
			return !st.IsAnalyzing, nil
		}

		done, err := send()
		if err != nil || done {
			logStreamEnd(brandID, err)
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		events := sub.Events()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				done, err := send()
				if err != nil || done {
					logStreamEnd(brandID, err)
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func logStreamEnd(brandID uuid.UUID, err error) {
	if err != nil {
		slog.Warn("status stream ended with error", "brand_id", brandID, "error", err)
	}
}
