// Package server exposes amortization calendars over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/iwvelando/mortgage-calendar/internal/chart"
	"github.com/iwvelando/mortgage-calendar/internal/metrics"
	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/loans"
	"github.com/iwvelando/mortgage-calendar/pkg/output"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// rawParam switches the calendar response to unformatted numbers. It is
// never treated as loan input.
const rawParam = "raw"

var (
	errNoInput     = errors.New("No input data")
	errInvalidJSON = errors.New("invalid JSON body")
)

type contextKey int

const requestIDKey contextKey = iota

type handler struct {
	logger       *zap.Logger
	maxBodySize  int64
	version      string
	builder      *loans.Builder
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	chartOptions chart.Options
}

// Option customizes the handler returned by NewHandler.
type Option func(*handler)

// WithMetrics records requests and builds on m and serves it on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *handler) {
		h.metrics = m
	}
}

// WithTracerProvider traces every request with a tracer from tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *handler) {
		if tp != nil {
			h.tracer = tp.Tracer(constants.DefaultServiceName)
		}
	}
}

// WithChartOptions sizes the images served on /api/chart.
func WithChartOptions(opts chart.Options) Option {
	return func(h *handler) {
		h.chartOptions = opts
	}
}

// NewHandler constructs the HTTP handler that serves the calendar API.
func NewHandler(logger *zap.Logger, maxBodySize int64, version string, opts ...Option) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:      logger,
		maxBodySize: maxBodySize,
		version:     trimmedVersion,
		builder:     loans.NewBuilder(logger),
		tracer:      noop.NewTracerProvider().Tracer(constants.DefaultServiceName),
	}
	for _, opt := range opts {
		opt(h)
	}

	router := mux.NewRouter()
	router.Use(h.requestIDMiddleware, h.tracingMiddleware, h.accessLogMiddleware)

	// Calendar API, also served on the root for form submissions
	router.HandleFunc("/", h.handleCalendar).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/api/calendar", h.handleCalendar).Methods(http.MethodGet, http.MethodPost)

	// Chart of the calendar as a data URI
	router.HandleFunc("/api/chart", h.handleChart).Methods(http.MethodGet, http.MethodPost)

	router.HandleFunc("/api/version", h.handleVersion).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	if h.metrics != nil {
		router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondErrorWithOp(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "server.methodNotAllowed")
	})

	return router
}

// NewServer wraps handler in an http.Server listening on cfg.Address.
func NewServer(cfg *Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type healthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type chartResponse struct {
	Image string `json:"image"`
}

func (h *handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalendar"

	calendar, ok := h.buildCalendar(w, r, op)
	if !ok {
		return
	}

	if cast.ToBool(r.URL.Query().Get(rawParam)) {
		h.writeJSON(w, http.StatusOK, calendar)
		return
	}
	h.writeJSON(w, http.StatusOK, output.NewReport(calendar))
}

func (h *handler) handleChart(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleChart"

	calendar, ok := h.buildCalendar(w, r, op)
	if !ok {
		return
	}

	_, span := h.tracer.Start(r.Context(), "chart.Render")
	uri, err := chart.RenderDataURI(calendar, h.chartOptions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err), op)
		return
	}
	span.End()

	h.writeJSON(w, http.StatusOK, chartResponse{Image: uri})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthStatus{
		Status:    "ok",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

// buildCalendar reads the loan parameters from r and builds the calendar.
// On failure the error response has been written and ok is false.
func (h *handler) buildCalendar(w http.ResponseWriter, r *http.Request, op string) (*loans.Calendar, bool) {
	params, err := h.readParams(w, r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
		default:
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		}
		return nil, false
	}

	_, span := h.tracer.Start(r.Context(), "loans.Build")
	defer span.End()

	start := time.Now()
	calendar, err := h.builder.BuildFromParams(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if h.metrics != nil {
			h.metrics.ObserveError(err)
		}
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return nil, false
	}

	span.SetAttributes(
		attribute.String("calendar.variant", calendar.Variant.String()),
		attribute.Int("calendar.months", len(calendar.Rows)),
	)
	if h.metrics != nil {
		h.metrics.ObserveCalendar(calendar)
	}

	h.logger.Info("calendar computed",
		zap.String("op", op),
		zap.String("requestId", RequestID(r.Context())),
		zap.Stringer("variant", calendar.Variant),
		zap.Int("months", len(calendar.Rows)),
		zap.Duration("duration", time.Since(start)),
	)
	return calendar, true
}

// readParams collects loan input from, in order of priority, a JSON body,
// the query string and form data.
func (h *handler) readParams(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if isJSON(r) {
		var payload map[string]interface{}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
		}
		if len(payload) > 0 {
			return payload, nil
		}
	}

	if query := inputValues(r.URL.Query()); len(query) > 0 {
		return loans.ParamsFromValues(query), nil
	}

	if err := r.ParseForm(); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	if form := inputValues(r.PostForm); len(form) > 0 {
		return loans.ParamsFromValues(form), nil
	}

	return nil, errNoInput
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// inputValues drops control parameters and keys without values.
func inputValues(values map[string][]string) map[string][]string {
	input := make(map[string][]string, len(values))
	for key, vals := range values {
		if key == rawParam || len(vals) == 0 {
			continue
		}
		input[key] = vals
	}
	return input
}

// statusFor maps build errors caused by the caller to 400 and anything else
// to 500.
func statusFor(err error) int {
	if loans.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (h *handler) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (h *handler) tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeTemplate(r)
		ctx, span := h.tracer.Start(r.Context(), r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", RequestID(r.Context())),
			),
		)
		defer span.End()

		rec := record(w)
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

func (h *handler) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := record(w)
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routeTemplate(r)
		h.logger.Info("request handled",
			zap.String("op", "server.accessLog"),
			zap.String("requestId", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
		)
		if h.metrics != nil {
			h.metrics.ObserveRequest(route, r.Method, strconv.Itoa(rec.status), elapsed)
		}
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

// record wraps w once; nested middlewares share the same recorder.
func record(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("calendar request failed", fields...)
	} else {
		h.logger.Warn("calendar request rejected", fields...)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes payload before writing the status so that an encoding
// failure still reaches the client as a 500.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
