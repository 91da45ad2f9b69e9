package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/UltraSive/payload-store/internal/handler"
	"github.com/UltraSive/payload-store/internal/metrics"
	"github.com/UltraSive/payload-store/pkg/logger"
)

const (
	msgBadRequest = "Bad request"
	msgNotFound   = "Not found"
	msgInternal   = "Internal server error"
	msgTooMany    = "Too many requests"
)

type HTTPOptions struct {
	// RateLimit is the sustained requests per second allowed across all
	// clients; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

type storeRequest struct {
	Payload *string `json:"payload"`
}

type storeResponse struct {
	ID string `json:"id"`
}

type payloadResponse struct {
	Payload string `json:"payload"`
}

func NewHTTPRouter(h *handler.Handler, opts HTTPOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/store", func(w http.ResponseWriter, r *http.Request) {
		var req storeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == nil {
			http.Error(w, msgBadRequest, http.StatusBadRequest)
			return
		}
		id, err := h.Store.Put(r.Context(), *req.Payload)
		if err != nil {
			writeError(w, h.Code(err, "route", "POST /store", "request_id", middleware.GetReqID(r.Context())))
			return
		}
		writeJSON(w, storeResponse{ID: id})
	})

	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		payload, err := h.Store.Get(r.Context(), id)
		if err != nil {
			writeError(w, h.Code(err, "route", "GET /{id}", "id", id, "request_id", middleware.GetReqID(r.Context())))
			return
		}
		writeJSON(w, payloadResponse{Payload: payload})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code string) {
	switch code {
	case handler.CodeNotFound:
		http.Error(w, msgNotFound, http.StatusNotFound)
	default:
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			metrics.RequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())
			log.Debug("request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func rateLimit(lim *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				http.Error(w, msgTooMany, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
