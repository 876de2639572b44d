package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const currentJSON = `{
	"main": {"temp": 24.5, "feels_like": 25.1, "humidity": 62, "pressure": 1012},
	"wind": {"speed": 11.11},
	"weather": [{"id": 501, "description": "moderate rain", "icon": "10d"}],
	"rain": {"1h": 3.2},
	"clouds": {"all": 75}
}`

func forecastJSON() string {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	return fmt.Sprintf(`{
	"list": [
		{"dt": %d, "main": {"temp": 18}, "weather": [{"id": 800, "description": "clear sky", "icon": "01d"}], "pop": 0.1},
		{"dt": %d, "main": {"temp": 26}, "weather": [{"id": 800, "description": "clear sky", "icon": "01d"}], "rain": {"3h": 0.5}},
		{"dt": %d, "main": {"temp": 15}, "weather": [{"id": 500, "description": "light rain", "icon": "10n"}]}
	],
	"city": {"sunrise": 0, "sunset": 0}
}`, base, base+3*3600, base+27*3600)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", Options{BaseURL: srv.URL})
}

func okHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "test-key" || q.Get("units") != "metric" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/weather":
			fmt.Fprint(w, currentJSON)
		case "/forecast":
			fmt.Fprint(w, forecastJSON())
		case "/onecall":
			fmt.Fprint(w, `{"alerts": [{"event": "Flood", "description": "Flash flooding expected"}]}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestFetchCurrent(t *testing.T) {
	c := newTestServer(t, okHandler(t))

	snap, err := c.FetchCurrent(context.Background(), -1.2921, 36.8219)
	if err != nil {
		t.Fatalf("FetchCurrent: %v", err)
	}

	if snap.TempC != 24.5 || snap.FeelsLikeC != 25.1 || snap.Humidity != 62 || snap.PressureMB != 1012 {
		t.Errorf("unexpected main fields: %+v", snap)
	}
	if snap.WindKPH != 11.11*3.6 {
		t.Errorf("WindKPH = %v, want %v", snap.WindKPH, 11.11*3.6)
	}
	if snap.PrecipMM != 3.2 {
		t.Errorf("PrecipMM = %v, want 3.2", snap.PrecipMM)
	}
	if snap.Cloud != 75 {
		t.Errorf("Cloud = %v, want 75", snap.Cloud)
	}
	if snap.UV != 0 {
		t.Errorf("UV = %v, want 0", snap.UV)
	}
	if snap.Condition.Text != "moderate rain" || snap.Condition.Code != 501 {
		t.Errorf("Condition = %+v", snap.Condition)
	}
	if snap.Condition.Icon != "https://openweathermap.org/img/wn/10d@2x.png" {
		t.Errorf("Icon = %q", snap.Condition.Icon)
	}
}

func TestParseCurrent_NoRain(t *testing.T) {
	snap, err := ParseCurrent([]byte(`{"main": {"temp": 10}, "weather": [{"id": 800}], "rain": {"3h": 4}}`))
	if err != nil {
		t.Fatalf("ParseCurrent: %v", err)
	}
	if snap.PrecipMM != 0 {
		t.Errorf("PrecipMM = %v, want 0 when 1h is absent", snap.PrecipMM)
	}
}

func TestParseCurrent_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"main":`},
		{"missing main", `{"weather": [{"id": 800}]}`},
		{"empty weather", `{"main": {"temp": 10}, "weather": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCurrent([]byte(tt.body)); !errors.Is(err, ErrParse) {
				t.Errorf("err = %v, want ErrParse", err)
			}
		})
	}
}

func TestMPSToKPH(t *testing.T) {
	if got := MPSToKPH(10); got != 36 {
		t.Errorf("MPSToKPH(10) = %v, want 36", got)
	}
	// 11.11 m/s lands just under the 40 km/h wind threshold.
	if got := MPSToKPH(11.11); got > 40 || got < 39.99 {
		t.Errorf("MPSToKPH(11.11) = %v, want ~39.996", got)
	}
	if got := MPSToKPH(11.12); got <= 40 {
		t.Errorf("MPSToKPH(11.12) = %v, want > 40", got)
	}
}

func TestFetch(t *testing.T) {
	c := newTestServer(t, okHandler(t))
	c.alerts = true

	fc, err := c.Fetch(context.Background(), 51.5074, -0.1278)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if fc.Current.TempC != 24.5 {
		t.Errorf("Current.TempC = %v", fc.Current.TempC)
	}
	if len(fc.Days) != 2 {
		t.Fatalf("len(Days) = %d, want 2", len(fc.Days))
	}
	if fc.Days[0].MaxTempC != 26 || fc.Days[0].MinTempC != 18 || fc.Days[0].TotalPrecipMM != 0.5 {
		t.Errorf("day 0 = %+v", fc.Days[0])
	}
	if fc.Alert != "Flash flooding expected" {
		t.Errorf("Alert = %q", fc.Alert)
	}
}

func TestFetch_AlertFailureIsIgnored(t *testing.T) {
	ok := okHandler(t)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/onecall" {
			http.Error(w, "subscription required", http.StatusUnauthorized)
			return
		}
		ok(w, r)
	})
	c.alerts = true

	fc, err := c.Fetch(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if fc.Alert != "" {
		t.Errorf("Alert = %q, want empty", fc.Alert)
	}
}

func TestFetch_SlowAlertDoesNotDelayResult(t *testing.T) {
	ok := okHandler(t)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/onecall" {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
				return
			}
			http.Error(w, "subscription required", http.StatusUnauthorized)
			return
		}
		ok(w, r)
	})
	c.alerts = true
	c.alertTimeout = 100 * time.Millisecond

	start := time.Now()
	fc, err := c.Fetch(context.Background(), 0, 0)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("Fetch took %v, want it bounded by the alert timeout", elapsed)
	}
	if fc.Alert != "" {
		t.Errorf("Alert = %q, want empty", fc.Alert)
	}
}

func TestFetch_AlertIsNotRetried(t *testing.T) {
	var alertCalls atomic.Int32
	ok := okHandler(t)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/onecall" {
			alertCalls.Add(1)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ok(w, r)
	})
	c.alerts = true
	c.retries = 3

	if _, err := c.Fetch(context.Background(), 0, 0); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n := alertCalls.Load(); n != 1 {
		t.Errorf("alert lookups = %d, want 1", n)
	}
}

func TestNewClient_AlertTimeoutDefault(t *testing.T) {
	c := NewClient("k", Options{})
	if c.alertTimeout != DefaultAlertTimeout {
		t.Errorf("alertTimeout = %v, want %v", c.alertTimeout, DefaultAlertTimeout)
	}
}

func TestFetch_ForecastFailureFailsComposite(t *testing.T) {
	ok := okHandler(t)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/forecast" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		ok(w, r)
	})

	fc, err := c.Fetch(context.Background(), 0, 0)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if fc != nil {
		t.Errorf("expected no partial result, got %+v", fc)
	}
}

func TestFetch_EmptyForecastIsNoData(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/weather":
			fmt.Fprint(w, currentJSON)
		case "/forecast":
			fmt.Fprint(w, `{"list": []}`)
		}
	})

	if _, err := c.Fetch(context.Background(), 0, 0); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestGet_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := c.FetchCurrent(context.Background(), 0, 0); !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, currentJSON)
	}))
	defer srv.Close()

	c := NewClient("test-key", Options{BaseURL: srv.URL, Retries: 2})
	if _, err := c.FetchCurrent(context.Background(), 0, 0); err != nil {
		t.Fatalf("FetchCurrent: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestGet_ClientErrorsArePermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad", Options{BaseURL: srv.URL, Retries: 3})
	if _, err := c.FetchCurrent(context.Background(), 0, 0); !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestGet_RateLimitHonoursContext(t *testing.T) {
	c := newTestServer(t, okHandler(t))
	c2 := NewClient("test-key", Options{BaseURL: c.baseURL, RateLimit: 0.001, Burst: 1})

	if _, err := c2.FetchCurrent(context.Background(), 0, 0); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c2.FetchCurrent(ctx, 0, 0); !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork from rate limit wait", err)
	}
}
