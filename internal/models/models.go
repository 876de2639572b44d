package models

import (
	"time"
)

// Condition describes a provider weather condition.
type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

// WeatherSnapshot is a single point-in-time reading for a location.
type WeatherSnapshot struct {
	TempC      float64   `json:"temp_c"`
	FeelsLikeC float64   `json:"feelslike_c"`
	Humidity   float64   `json:"humidity"`
	WindKPH    float64   `json:"wind_kph"`
	PrecipMM   float64   `json:"precip_mm"`
	Condition  Condition `json:"condition"`
	UV         float64   `json:"uv"` // always 0 from the current-conditions endpoint
	Cloud      float64   `json:"cloud"`
	PressureMB float64   `json:"pressure_mb"`
}

type HourlyForecast struct {
	Time         string    `json:"time"`
	TempC        float64   `json:"temp_c"`
	Condition    Condition `json:"condition"`
	ChanceOfRain float64   `json:"chance_of_rain"`
}

// ForecastDay aggregates the forecast buckets that fall on one UTC date.
type ForecastDay struct {
	Date          string           `json:"date"`
	MaxTempC      float64          `json:"maxtemp_c"`
	MinTempC      float64          `json:"mintemp_c"`
	AvgTempC      float64          `json:"avgtemp_c"`
	TotalPrecipMM float64          `json:"totalprecip_mm"`
	Condition     Condition        `json:"condition"`
	UV            float64          `json:"uv"`
	Sunrise       string           `json:"sunrise,omitempty"`
	Sunset        string           `json:"sunset,omitempty"`
	Hours         []HourlyForecast `json:"hour"`
}

// Forecast is the composite result of a weather lookup.
type Forecast struct {
	Current WeatherSnapshot `json:"current"`
	Days    []ForecastDay   `json:"forecastday"`
	Alert   string          `json:"alert,omitempty"`
}

// RiskLevel is the coarse severity attached to an insight.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity returns a numeric severity for comparison (higher = more severe).
func (r RiskLevel) Severity() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Raise returns the more severe of r and other.
func (r RiskLevel) Raise(other RiskLevel) RiskLevel {
	if other.Severity() > r.Severity() {
		return other
	}
	if r == "" {
		return RiskLow
	}
	return r
}

type Insight struct {
	Condition      string    `json:"condition"`
	Recommendation string    `json:"recommendation"`
	Risk           RiskLevel `json:"risk_level"`
	Actions        []string  `json:"actions"`
}

type CropInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Season      string `json:"season"`
	Description string `json:"description"`
	WaterNeeds  string `json:"waterNeeds"`
	GrowingTime string `json:"growingTime"`
	SunExposure string `json:"sunExposure"`
	SoilType    string `json:"soilType"`
	Tips        string `json:"tips"`
}

// Intent records which branch of the responder produced a reply.
type Intent string

const (
	IntentCrop     Intent = "crop"
	IntentWeather  Intent = "weather"
	IntentFallback Intent = "fallback"
	IntentApology  Intent = "apology"
)

type Reply struct {
	Text    string     `json:"text"`
	Intent  Intent     `json:"intent"`
	Weather *Forecast  `json:"weather,omitempty"`
	Crops   []CropInfo `json:"crops,omitempty"`
}

type Diagnosis struct {
	ID         string `json:"id"`
	Condition  string `json:"condition"`
	Confidence int    `json:"confidence"`
	Solution   string `json:"solution"`
	Source     string `json:"source"` // "openai" or "fixed"
}

type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Location  string    `json:"location"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image,omitempty"`
	Likes     int       `json:"likes"`
	Shares    int       `json:"shares"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"created_at"`
}
