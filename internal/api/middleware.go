package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/pathing/internal/monitoring"
)

const (
	ansiReset = "\033[0m"
	ansiCyan  = "\033[36m"
	ansiOK    = "\033[1;32m"
	ansiRedir = "\033[33m"
	ansiFail  = "\033[1;31m"
)

// statusRecorder remembers the status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// colourStatus wraps 2xx, 3xx and 4xx/5xx codes in green, yellow and red.
func colourStatus(code int) string {
	s := strconv.Itoa(code)
	var c string
	switch code / 100 {
	case 2:
		c = ansiOK
	case 3:
		c = ansiRedir
	case 4, 5:
		c = ansiFail
	default:
		return s
	}
	return c + s + ansiReset
}

// LoggingMiddleware writes one access log line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		monitoring.Logf("[api] %s %s %s%s%s %s",
			colourStatus(sr.status), r.Method, ansiCyan, r.RequestURI, ansiReset,
			time.Since(start).Round(time.Microsecond))
	})
}
