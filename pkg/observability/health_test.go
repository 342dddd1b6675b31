package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]*HealthCheck)}
}

func TestHealthCheckAllHealthy(t *testing.T) {
	hc := newChecker()
	hc.RegisterCheck(&HealthCheck{
		Name:      "provider",
		CheckFunc: func(ctx context.Context) error { return nil },
		Critical:  true,
	})

	resp := hc.Check(context.Background())
	if resp.Status != HealthStatusHealthy {
		t.Errorf("status = %s", resp.Status)
	}
	if resp.Checks["provider"].Status != HealthStatusHealthy {
		t.Errorf("check status = %s", resp.Checks["provider"].Status)
	}
}

func TestHealthCheckCriticalFailure(t *testing.T) {
	hc := newChecker()
	hc.RegisterCheck(&HealthCheck{
		Name:      "provider",
		CheckFunc: func(ctx context.Context) error { return errors.New("down") },
		Critical:  true,
	})

	resp := hc.Check(context.Background())
	if resp.Status != HealthStatusUnhealthy {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestHealthCheckNonCriticalFailureDegrades(t *testing.T) {
	hc := newChecker()
	hc.RegisterCheck(&HealthCheck{
		Name:      "optional",
		CheckFunc: func(ctx context.Context) error { return errors.New("down") },
	})
	hc.RegisterCheck(&HealthCheck{
		Name:      "provider",
		CheckFunc: func(ctx context.Context) error { return nil },
		Critical:  true,
	})

	resp := hc.Check(context.Background())
	if resp.Status != HealthStatusDegraded {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestHealthCheckTimeout(t *testing.T) {
	hc := newChecker()
	hc.RegisterCheck(&HealthCheck{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		CheckFunc: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
				return nil
			}
		},
		Critical: true,
	})

	resp := hc.Check(context.Background())
	if resp.Status != HealthStatusUnhealthy {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest("GET", "/health/live", nil))
	if rec.Code != 200 {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealthHandlerReportsProviderCheck(t *testing.T) {
	GetHealthChecker().RegisterCheck(ProviderCheck("scripted", func(ctx context.Context) error {
		return errors.New("unreachable")
	}))

	rec := httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest("GET", "/health", nil))

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	check, ok := resp.Checks["scripted"]
	if !ok {
		t.Fatal("registered provider check missing from /health response")
	}
	if check.Status != HealthStatusDegraded {
		t.Errorf("check status = %s", check.Status)
	}
	if resp.Status != HealthStatusDegraded {
		t.Errorf("a failing non-critical provider check should degrade, got %s", resp.Status)
	}
}

func TestProviderCheck(t *testing.T) {
	check := ProviderCheck("openai", func(ctx context.Context) error { return nil })
	if check.Name != "openai" {
		t.Errorf("name = %q", check.Name)
	}
	if check.Timeout == 0 {
		t.Error("provider checks should carry a timeout")
	}
}

func TestMetricsHandler(t *testing.T) {
	InitMetrics()
	RecordAttempt("mock", "success", 10*time.Millisecond)
	RecordRetry("mock")
	RecordDecision("judge", "selected")
	RecordParse("succeeded", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Errorf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{
		"quorum_dispatch_attempts_total",
		"quorum_dispatch_retries_total",
		"quorum_decision_total",
		"quorum_parse_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}
