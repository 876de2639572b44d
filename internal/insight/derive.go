// Package insight turns a weather snapshot into agricultural advice.
package insight

import (
	"github.com/lox/agroconnect/internal/models"
)

// Thresholds for the advisory rules.
const (
	HotTempC      = 30.0
	ColdTempC     = 10.0
	HeavyRainMM   = 25.0
	HumidHumidity = 80.0
	DryHumidity   = 40.0
	HighUV        = 8.0
	StrongWindKPH = 40.0
)

var recommendations = map[models.RiskLevel]string{
	models.RiskLow:    "Favorable conditions for most farming activities.",
	models.RiskMedium: "Some precautions needed for farming activities.",
	models.RiskHigh:   "High-risk conditions. Take immediate protective measures.",
}

// Derive evaluates every threshold rule against s. Matching rules append their
// actions in rule order and the risk is the most severe level any rule raised.
func Derive(s models.WeatherSnapshot) models.Insight {
	in := models.Insight{
		Condition: s.Condition.Text,
		Risk:      models.RiskLow,
		Actions:   []string{},
	}

	switch {
	case s.TempC > HotTempC:
		in.Risk = in.Risk.Raise(models.RiskHigh)
		in.Actions = append(in.Actions,
			"Implement shade structures for sensitive crops",
			"Increase irrigation frequency",
			"Monitor for heat stress symptoms",
		)
	case s.TempC < ColdTempC:
		in.Risk = in.Risk.Raise(models.RiskMedium)
		in.Actions = append(in.Actions,
			"Protect crops from frost damage",
			"Delay sensitive crop planting",
			"Monitor soil temperature",
		)
	}

	switch {
	case s.PrecipMM > 0:
		in.Actions = append(in.Actions,
			"Postpone spraying activities",
			"Check field drainage",
			"Monitor for disease pressure",
		)
		if s.PrecipMM > HeavyRainMM {
			in.Risk = in.Risk.Raise(models.RiskHigh)
		}
	case s.Humidity > HumidHumidity:
		in.Actions = append(in.Actions,
			"Monitor for fungal diseases",
			"Ensure proper ventilation in greenhouses",
			"Consider preventive fungicide application",
		)
	case s.Humidity < DryHumidity:
		in.Actions = append(in.Actions,
			"Increase irrigation",
			"Apply mulch to retain moisture",
			"Monitor for water stress",
		)
	}

	// Unreachable with the current data source, which reports UV as 0.
	if s.UV > HighUV {
		in.Actions = append(in.Actions,
			"Protect workers during mid-day",
			"Consider shade cloth for sensitive crops",
		)
	}

	if s.WindKPH > StrongWindKPH {
		in.Risk = in.Risk.Raise(models.RiskHigh)
		in.Actions = append(in.Actions,
			"Delay spraying operations",
			"Protect young plants",
			"Secure farm structures",
		)
	}

	in.Recommendation = Recommend(in.Risk, in.Actions)
	return in
}

// Recommend builds the headline sentence for a risk level, followed by the
// first action when there is one.
func Recommend(risk models.RiskLevel, actions []string) string {
	msg := recommendations[risk]
	if msg == "" {
		msg = recommendations[models.RiskLow]
	}
	if len(actions) == 0 {
		return msg
	}
	return msg + " " + actions[0] + "."
}
