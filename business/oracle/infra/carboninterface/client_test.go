package carboninterface

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fd1az/carbon-oracle/business/oracle/adapter"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/config"
	"github.com/fd1az/carbon-oracle/internal/logger"
)

const electricityResponse = `{"data":{"id":"e1","type":"estimate","attributes":{
	"country":"us","state":"fl","electricity_unit":"mwh","electricity_value":"45.5",
	"estimated_at":"2026-03-01T11:59:58.000Z",
	"carbon_g":18051000,"carbon_lb":39796.03,"carbon_kg":18051,"carbon_mt":18.05}}}`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	hc, err := NewHTTPClient(baseURL, "test-key", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewClient(hc, logger.Nop(), WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func electricity() adapter.Adapter {
	return adapter.NewElectricity(config.ElectricityConfig{MWh: "45.5", Country: "us", State: "fl"})
}

func TestEstimate_Success(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/estimates" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		if gjson.GetBytes(body, "type").String() != "electricity" {
			t.Errorf("unexpected body %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, electricityResponse)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/v1")
	result, err := c.Estimate(context.Background(), electricity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CarbonKg.IntPart() != 18051 {
		t.Errorf("unexpected carbon %s", result.CarbonKg)
	}
	if result.Country != "us" || result.State != "fl" {
		t.Errorf("unexpected location %s/%s", result.Country, result.State)
	}
	if gjson.Get(result.Metadata, "timestamp").String() != "2026-03-01T12:00:00.000Z" {
		t.Errorf("unexpected metadata %s", result.Metadata)
	}
	if calls != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
}

func TestEstimate_ApiError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"internal"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Estimate(context.Background(), electricity())

	appErr, ok := err.(*apperror.AppError)
	if !ok || appErr.Code != apperror.CodeAPIError {
		t.Fatalf("expected api error, got %v", err)
	}
	if appErr.Upstream == nil || appErr.Upstream.Status != 500 || appErr.Upstream.Body != `{"message":"internal"}` {
		t.Errorf("unexpected upstream %+v", appErr.Upstream)
	}
	if calls != 1 {
		t.Errorf("expected no retry, got %d calls", calls)
	}
}

func TestEstimate_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Estimate(context.Background(), electricity())
	if apperror.GetCode(err) != apperror.CodeNetworkError {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestEstimate_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"attributes":{"country":"us"}}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Estimate(context.Background(), electricity())
	if apperror.GetCode(err) != apperror.CodeMalformedResponse {
		t.Errorf("expected malformed response, got %v", err)
	}
}

func TestUpstreamError_TruncatesBody(t *testing.T) {
	body := make([]byte, maxUpstreamBody+100)
	for i := range body {
		body[i] = 'x'
	}
	err := upstreamError(http.StatusBadGateway, body)
	appErr := err.(*apperror.AppError)
	if len(appErr.Upstream.Body) != maxUpstreamBody {
		t.Errorf("expected truncated body, got %d bytes", len(appErr.Upstream.Body))
	}
	if upstreamError(http.StatusOK, nil) != nil {
		t.Error("2xx must not be an error")
	}
}
