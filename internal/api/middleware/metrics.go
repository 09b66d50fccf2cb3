package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// MetricsCollector интерфейс для записи HTTP-метрик
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// MetricsMiddleware записывает метрики по каждому HTTP-запросу.
// В качестве пути используется шаблон маршрута, а не сырой URL,
// чтобы не раздувать кардинальность меток
func MetricsMiddleware(collector MetricsCollector, serviceName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					path = template
				}
			}

			collector.RecordHTTPRequest(r.Method, path, recorder.status, time.Since(start))
		})
	}
}
