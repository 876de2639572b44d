// Package assistant answers free-text farming questions using the crop table
// and live weather for the farmer's location.
package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lox/agroconnect/internal/crops"
	"github.com/lox/agroconnect/internal/metrics"
	"github.com/lox/agroconnect/internal/models"
)

const (
	FallbackText = "How can I help you with your farming today? Feel free to ask about specific crops or weather conditions."
	ApologyText  = "Sorry, I couldn't get the weather for your area right now. Please try again in a moment."
)

// WeatherSource supplies the weather context for a reply.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) (*models.Forecast, error)
}

// Responder classifies a message and renders a single reply. It keeps no
// state between calls.
type Responder struct {
	weather WeatherSource
	crops   *crops.Table
	now     func() time.Time
}

func NewResponder(weather WeatherSource, table *crops.Table) *Responder {
	return &Responder{
		weather: weather,
		crops:   table,
		now:     time.Now,
	}
}

// Respond answers text for a farmer at lat, lon. Crop mentions win over the
// word "weather"; anything else gets a prompt to ask about crops or weather.
func (r *Responder) Respond(ctx context.Context, text string, lat, lon float64) models.Reply {
	reply := r.respond(ctx, text, lat, lon)
	metrics.ChatReplies.WithLabelValues(string(reply.Intent)).Inc()
	return reply
}

func (r *Responder) respond(ctx context.Context, text string, lat, lon float64) models.Reply {
	entry, isCrop := r.crops.Match(text)
	isWeather := !isCrop && strings.Contains(strings.ToLower(text), "weather")

	if !isCrop && !isWeather {
		return models.Reply{Text: FallbackText, Intent: models.IntentFallback}
	}

	fc, err := r.weather.Fetch(ctx, lat, lon)
	if err != nil {
		log.Printf("assistant: weather context: %v", err)
		return models.Reply{Text: ApologyText, Intent: models.IntentApology}
	}

	if isCrop {
		return models.Reply{
			Text:    r.cropAdvice(entry.Info, fc.Current),
			Intent:  models.IntentCrop,
			Weather: fc,
			Crops:   []models.CropInfo{entry.Info},
		}
	}

	text = fmt.Sprintf("Current weather conditions: %s. ", fc.Current.Condition.Text)
	if fc.Alert != "" {
		text += "Weather alert: " + fc.Alert
	}
	return models.Reply{Text: text, Intent: models.IntentWeather, Weather: fc}
}

func (r *Responder) cropAdvice(crop models.CropInfo, current models.WeatherSnapshot) string {
	var b strings.Builder

	if current.PrecipMM > 0 {
		fmt.Fprintf(&b, "With current rainfall, hold off on irrigation for your %s. ", crop.Name)
	} else if current.Humidity < 40 {
		fmt.Fprintf(&b, "Consider light irrigation for your %s due to low humidity. ", crop.Name)
	}

	if crop.Season == crops.SeasonLongRains {
		if m := r.now().Month(); m >= time.March && m <= time.May {
			b.WriteString("This is an ideal planting time during the long rains season. ")
		}
	}

	b.WriteString(crop.Tips)
	return b.String()
}
