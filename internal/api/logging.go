package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// JSONLogger emits one structured line per request: id, caller, status,
// response size, latency.
func JSONLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		reqID := middleware.GetReqID(r.Context())
		userID, role := "", ""
		if id, ok := identityFromContext(r.Context()); ok {
			userID = id.UserID
			role = string(id.Role)
		}
		log.Printf(`{"ts":"%s","request_id":"%s","method":"%s","path":"%s","status":%d,"bytes":%d,"latency_ms":%.3f,"user":"%s","role":"%s"}`,
			time.Now().UTC().Format(time.RFC3339Nano),
			reqID,
			r.Method,
			r.URL.Path,
			rec.status,
			rec.written,
			float64(time.Since(start).Microseconds())/1000,
			userID,
			role,
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Unwrap lets http.ResponseController reach the hijacker during websocket
// upgrades.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
