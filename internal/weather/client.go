package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lox/agroconnect/internal/httputil"
	"github.com/lox/agroconnect/internal/metrics"
	"github.com/lox/agroconnect/internal/models"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// DefaultAlertTimeout bounds the optional alert lookup in Fetch.
const DefaultAlertTimeout = 2 * time.Second

// Error kinds surfaced by the client. Callers match them with errors.Is.
var (
	ErrNetwork = errors.New("weather request failed")
	ErrParse   = errors.New("unexpected weather response")
	ErrNoData  = errors.New("no weather data")
)

// Options configures a Client. The zero value talks to DefaultBaseURL with a
// single attempt per request and no rate limiting.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Retries is the number of additional attempts after a failed request.
	Retries uint64
	// RateLimit is the maximum outbound requests per second; 0 disables it.
	RateLimit float64
	Burst     int
	// Alerts enables the best-effort severe weather alert lookup in Fetch.
	Alerts bool
	// AlertTimeout defaults to DefaultAlertTimeout.
	AlertTimeout time.Duration
}

// Client fetches conditions and forecasts from the OpenWeatherMap 2.5 API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	retries uint64
	limiter *rate.Limiter
	alerts  bool

	alertTimeout time.Duration
}

func NewClient(apiKey string, opts Options) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: opts.BaseURL,
		client:  opts.HTTPClient,
		retries: opts.Retries,
		alerts:  opts.Alerts,

		alertTimeout: opts.AlertTimeout,
	}
	if c.alertTimeout <= 0 {
		c.alertTimeout = DefaultAlertTimeout
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.client == nil {
		c.client = httputil.NewClient()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

type owmCondition struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmRain struct {
	OneHour   *float64 `json:"1h"`
	ThreeHour *float64 `json:"3h"`
}

type CurrentResponse struct {
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []owmCondition `json:"weather"`
	Rain    *owmRain       `json:"rain"`
	Clouds  struct {
		All float64 `json:"all"`
	} `json:"clouds"`
}

type ForecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []owmCondition `json:"weather"`
	Rain    *owmRain       `json:"rain"`
	Pop     float64        `json:"pop"`
}

type ForecastResponse struct {
	List []ForecastItem `json:"list"`
	City struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"city"`
}

type alertResponse struct {
	Alerts []struct {
		Event       string `json:"event"`
		Description string `json:"description"`
	} `json:"alerts"`
}

func iconURL(icon string) string {
	return fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", icon)
}

func toCondition(c owmCondition) models.Condition {
	return models.Condition{Text: c.Description, Icon: iconURL(c.Icon), Code: c.ID}
}

// MPSToKPH converts a provider wind speed in m/s to km/h.
func MPSToKPH(mps float64) float64 {
	return mps * 3.6
}

// get performs a GET against endpoint and returns the response body.
// Transport failures and non-2xx statuses are reported as ErrNetwork.
func (c *Client) get(ctx context.Context, endpoint string, lat, lon float64, extra url.Values, retries uint64) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: rate limit wait: %w", ErrNetwork, endpoint, err)
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	reqURL := c.baseURL + "/" + endpoint + "?" + q.Encode()

	var body []byte
	operation := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: create request: %w", ErrNetwork, err))
		}

		resp, err := c.client.Do(req)
		metrics.WeatherAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
			return fmt.Errorf("%w: %s: %w", ErrNetwork, endpoint, err)
		}
		defer resp.Body.Close()

		metrics.WeatherAPICallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("%w: %s: status %d: %s", ErrNetwork, endpoint, resp.StatusCode, string(b))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %s: read body: %w", ErrNetwork, endpoint, err)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}

// FetchCurrent returns the current conditions at lat, lon.
func (c *Client) FetchCurrent(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	body, err := c.get(ctx, "weather", lat, lon, nil, c.retries)
	if err != nil {
		return nil, err
	}
	return ParseCurrent(body)
}

// ParseCurrent maps a current-conditions payload into a snapshot.
func ParseCurrent(body []byte) (*models.WeatherSnapshot, error) {
	var data CurrentResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: unmarshal current: %w", ErrParse, err)
	}
	if data.Main == nil {
		return nil, fmt.Errorf("%w: current: missing main block", ErrParse)
	}
	if len(data.Weather) == 0 {
		return nil, fmt.Errorf("%w: current: empty weather array", ErrParse)
	}

	snap := &models.WeatherSnapshot{
		TempC:      data.Main.Temp,
		FeelsLikeC: data.Main.FeelsLike,
		Humidity:   data.Main.Humidity,
		WindKPH:    MPSToKPH(data.Wind.Speed),
		Condition:  toCondition(data.Weather[0]),
		UV:         0, // not available from this endpoint family
		Cloud:      data.Clouds.All,
		PressureMB: data.Main.Pressure,
	}
	if data.Rain != nil && data.Rain.OneHour != nil {
		snap.PrecipMM = *data.Rain.OneHour
	}
	return snap, nil
}

// FetchForecast returns up to MaxForecastDays days of grouped forecast.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) ([]models.ForecastDay, error) {
	body, err := c.get(ctx, "forecast", lat, lon, nil, c.retries)
	if err != nil {
		return nil, err
	}

	var data ForecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: unmarshal forecast: %w", ErrParse, err)
	}
	return GroupForecast(&data)
}

// FetchAlert returns the description of the first active alert at lat, lon,
// or "" when there is none. It makes a single attempt; failures are logged
// and reported as no alert.
func (c *Client) FetchAlert(ctx context.Context, lat, lon float64) string {
	body, err := c.get(ctx, "onecall", lat, lon, url.Values{"exclude": {"current,minutely,hourly,daily"}}, 0)
	if err != nil {
		log.Printf("weather: fetch alert: %v", err)
		return ""
	}

	var data alertResponse
	if err := json.Unmarshal(body, &data); err != nil {
		log.Printf("weather: unmarshal alert: %v", err)
		return ""
	}
	if len(data.Alerts) == 0 {
		return ""
	}
	return data.Alerts[0].Description
}

// Fetch issues the current and forecast requests concurrently and joins them.
// A failure of either request cancels the other and fails the whole call.
// When alerts are enabled the lookup runs alongside under its own timeout and
// never delays the result past that timeout.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*models.Forecast, error) {
	var alertc chan string
	if c.alerts {
		alertCtx, cancel := context.WithTimeout(ctx, c.alertTimeout)
		defer cancel()
		alertc = make(chan string, 1)
		go func() {
			alertc <- c.FetchAlert(alertCtx, lat, lon)
		}()
	}

	var (
		current *models.WeatherSnapshot
		days    []models.ForecastDay
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = c.FetchCurrent(gctx, lat, lon)
		return err
	})
	g.Go(func() error {
		var err error
		days, err = c.FetchForecast(gctx, lat, lon)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("weather: fetch %.4f,%.4f: %v", lat, lon, err)
		return nil, err
	}

	fc := &models.Forecast{Current: *current, Days: days}
	if alertc != nil {
		fc.Alert = <-alertc
	}
	return fc, nil
}
