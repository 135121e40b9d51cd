package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/iwvelando/mortgage-calendar/internal/chart"
	"github.com/iwvelando/mortgage-calendar/internal/metrics"
	"github.com/iwvelando/mortgage-calendar/pkg/loans"
	"github.com/iwvelando/mortgage-calendar/pkg/output"
	"github.com/iwvelando/mortgage-calendar/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestHandler(opts ...Option) http.Handler {
	return NewHandler(zap.NewNop(), 0, "test", opts...)
}

func postJSON(t *testing.T, handler http.Handler, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp["error"]
}

func TestHandleCalendarJSONBody(t *testing.T) {
	rr := postJSON(t, newTestHandler(), "/api/calendar", testutil.ScenarioA())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var report output.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, "standard", report.Variant)
	assert.Len(t, report.Calendar, 360)
	assert.Equal(t, "98 166", report.Calendar["1"].InterestComponent)
	assert.Equal(t, "109 441", report.Calendar["1"].MonthlyPayment)
	assert.Equal(t, 360, report.Summary.PayoffMonth)
}

func TestHandleCalendarRootPath(t *testing.T) {
	rr := postJSON(t, newTestHandler(), "/", testutil.ScenarioB())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report output.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Len(t, report.Calendar, 360)
}

func TestHandleCalendarQueryString(t *testing.T) {
	query := url.Values{}
	query.Set("price", "20")
	query.Set("initial_payment", "2")
	query.Set("period", "30")
	query.Set("loan_rate", "7.5")
	query.Set("first_month", "24")
	query.Set("frequency_months", "1")
	query.Set("early_pay_amount", "50000")

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?"+query.Encode(), nil)
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report output.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, "early_payments", report.Variant)
	assert.Len(t, report.Calendar, 183)
	assert.Equal(t, 183, report.Summary.PayoffMonth)
}

func TestHandleCalendarForm(t *testing.T) {
	form := url.Values{}
	form.Set("price", "18")
	form.Set("initial_payment", "2.5")
	form.Set("period", "30")
	form.Set("loan_rate", "7.6")

	req := httptest.NewRequest(http.MethodPost, "/api/calendar", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report output.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, "98 166", report.Calendar["1"].InterestComponent)
}

func TestHandleCalendarJSONTakesPriority(t *testing.T) {
	data, err := json.Marshal(testutil.ScenarioB())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/calendar?price=abc", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHandleCalendarRaw(t *testing.T) {
	data, err := json.Marshal(testutil.ScenarioA())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/calendar?raw=true", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var calendar struct {
		Variant string      `json:"variant"`
		Rows    []loans.Row `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &calendar))
	assert.Equal(t, "standard", calendar.Variant)
	require.Len(t, calendar.Rows, 360)
	assert.InDelta(t, 109441.58, calendar.Rows[0].MonthlyPayment, 0.01)
	assert.InDelta(t, 0, calendar.Rows[359].ResidualPrincipal, 1e-9)
}

func TestHandleCalendarNoInput(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
	}{
		{"Empty GET", http.MethodGet, "/api/calendar"},
		{"Empty POST", http.MethodPost, "/api/calendar"},
		{"Raw flag only", http.MethodGet, "/api/calendar?raw=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rr := httptest.NewRecorder()
			newTestHandler().ServeHTTP(rr, req)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "No input data", decodeError(t, rr))
		})
	}
}

func TestHandleCalendarEmptyJSONObject(t *testing.T) {
	rr := postJSON(t, newTestHandler(), "/api/calendar", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No input data", decodeError(t, rr))
}

func TestHandleCalendarClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]interface{}
		contains string
	}{
		{
			name:     "Missing loan rate",
			payload:  map[string]interface{}{"price": 18, "initial_payment": 2.5, "period": 30},
			contains: "loan_rate",
		},
		{
			name:     "Invalid type",
			payload:  map[string]interface{}{"price": "lots", "initial_payment": 2.5, "period": 30, "loan_rate": 7.6},
			contains: "price",
		},
		{
			name:     "Initial payment covers price",
			payload:  map[string]interface{}{"price": 2, "initial_payment": 3, "period": 30, "loan_rate": 7.6},
			contains: "initial",
		},
		{
			name: "Partial early payment",
			payload: map[string]interface{}{
				"price": 20, "initial_payment": 2, "period": 30, "loan_rate": 7.5, "first_month": 24,
			},
			contains: "frequency_months",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, newTestHandler(), "/api/calendar", tt.payload)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Contains(t, decodeError(t, rr), tt.contains)
		})
	}
}

func TestHandleCalendarNumericLimits(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]interface{}
		contains string
	}{
		{
			name:     "Period beyond the maximum",
			payload:  map[string]interface{}{"price": 20, "initial_payment": 2, "period": 1e9, "loan_rate": 7.5},
			contains: "exceeds 1200 months",
		},
		{
			name:     "Annuity factor overflow",
			payload:  map[string]interface{}{"price": 20, "initial_payment": 2, "period": 100, "loan_rate": 1000},
			contains: "overflows",
		},
		{
			name:     "Rate too small for the factor",
			payload:  map[string]interface{}{"price": 20, "initial_payment": 2, "period": 30, "loan_rate": 1e-15},
			contains: "collapses to 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, target := range []string{"/api/calendar", "/api/calendar?raw=true"} {
				rr := postJSON(t, newTestHandler(), target, tt.payload)
				require.Equal(t, http.StatusBadRequest, rr.Code, target)
				require.NotEmpty(t, rr.Body.Bytes(), target)
				assert.Contains(t, decodeError(t, rr), tt.contains, target)
			}
		})
	}
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	h := &handler{logger: zap.NewNop()}
	rr := httptest.NewRecorder()
	h.writeJSON(rr, http.StatusOK, map[string]float64{"payment": math.NaN()})

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "failed to encode response", decodeError(t, rr))
}

func TestHandleCalendarMalformedJSON(t *testing.T) {
	for _, body := range []string{"{not json", "[1, 2, 3]"} {
		req := httptest.NewRequest(http.MethodPost, "/api/calendar", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newTestHandler().ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, body)
		assert.Contains(t, decodeError(t, rr), "invalid JSON body")
	}
}

func TestHandleCalendarBodyTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 32, "test")

	payload := testutil.ScenarioA()
	payload["padding"] = strings.Repeat("x", 256)
	rr := postJSON(t, handler, "/api/calendar", payload)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
	assert.Contains(t, decodeError(t, rr), "32 bytes")
}

func TestHandleCalendarMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/calendar", nil)
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.StatusText(http.StatusMethodNotAllowed), decodeError(t, rr))
}

func TestHandleChart(t *testing.T) {
	handler := newTestHandler(WithChartOptions(chart.Options{Width: 640, Height: 360}))
	rr := postJSON(t, handler, "/api/chart", testutil.ScenarioC())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp chartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Image, chart.DataURIPrefix))
	assert.Greater(t, len(resp.Image), len(chart.DataURIPrefix))
}

func TestHandleChartClientError(t *testing.T) {
	rr := postJSON(t, newTestHandler(), "/api/chart", map[string]interface{}{"price": 18})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleVersion(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 0, " v1.2.3 ")
	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "v1.2.3", resp["version"])
}

func TestHandleVersionDefault(t *testing.T) {
	handler := NewHandler(nil, 0, "")
	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "dev", resp["version"])
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp healthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestRequestID(t *testing.T) {
	t.Run("Generated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		newTestHandler().ServeHTTP(rr, req)

		_, err := uuid.Parse(rr.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rr := httptest.NewRecorder()
		newTestHandler().ServeHTTP(rr, req)
		assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	handler := newTestHandler(WithMetrics(m))

	rr := postJSON(t, handler, "/api/calendar", testutil.ScenarioC())
	require.Equal(t, http.StatusOK, rr.Code)
	rr = postJSON(t, handler, "/api/calendar", map[string]interface{}{"price": 18})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `calendars_built_total{variant="early_payments"} 1`)
	assert.Contains(t, body, `calculation_errors_total{error_type="missing_field"} 1`)
	assert.Contains(t, body, `http_requests_total{method="POST",route="/api/calendar",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="POST",route="/api/calendar",status="400"} 1`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTracingSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	handler := newTestHandler(WithTracerProvider(tp))

	rr := postJSON(t, handler, "/api/calendar", testutil.ScenarioA())
	require.Equal(t, http.StatusOK, rr.Code)

	spans := recorder.Ended()
	names := make([]string, 0, len(spans))
	for _, span := range spans {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "POST /api/calendar")
	assert.Contains(t, names, "loans.Build")

	for _, span := range spans {
		if span.Name() == "loans.Build" {
			assert.True(t, span.Parent().IsValid())
		}
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewHandler(zap.New(core), 0, "test")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	entries := logs.FilterMessage("request handled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["requestId"])
	assert.Equal(t, "/health", fields["route"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&loans.MissingFieldError{Field: "price"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestNewServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = ":9999"
	srv := NewServer(cfg, newTestHandler())
	assert.Equal(t, ":9999", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
