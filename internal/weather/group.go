package weather

import (
	"fmt"
	"time"

	"github.com/lox/agroconnect/internal/models"
)

// MaxForecastDays caps the number of grouped forecast days.
const MaxForecastDays = 7

type dayBucket struct {
	date       string
	temps      []float64
	conditions []owmCondition
	items      []ForecastItem
}

// GroupForecast groups forecast buckets by the UTC calendar date of their
// timestamp. Days are emitted in order of first occurrence, capped at
// MaxForecastDays.
func GroupForecast(data *ForecastResponse) ([]models.ForecastDay, error) {
	if data == nil || len(data.List) == 0 {
		return nil, fmt.Errorf("%w: empty forecast list", ErrNoData)
	}

	var order []*dayBucket
	byDate := make(map[string]*dayBucket)

	for i, item := range data.List {
		if len(item.Weather) == 0 {
			return nil, fmt.Errorf("%w: forecast list[%d]: empty weather array", ErrParse, i)
		}
		date := time.Unix(item.Dt, 0).UTC().Format("2006-01-02")
		b, ok := byDate[date]
		if !ok {
			b = &dayBucket{date: date}
			byDate[date] = b
			order = append(order, b)
		}
		b.temps = append(b.temps, item.Main.Temp)
		b.conditions = append(b.conditions, item.Weather[0])
		b.items = append(b.items, item)
	}

	if len(order) > MaxForecastDays {
		order = order[:MaxForecastDays]
	}

	sunrise := clockTime(data.City.Sunrise)
	sunset := clockTime(data.City.Sunset)

	days := make([]models.ForecastDay, 0, len(order))
	for _, b := range order {
		maxTemp, minTemp := b.temps[0], b.temps[0]
		for _, t := range b.temps[1:] {
			if t > maxTemp {
				maxTemp = t
			}
			if t < minTemp {
				minTemp = t
			}
		}

		var totalPrecip float64
		hours := make([]models.HourlyForecast, 0, len(b.items))
		for _, item := range b.items {
			if item.Rain != nil && item.Rain.ThreeHour != nil {
				totalPrecip += *item.Rain.ThreeHour
			}
			hours = append(hours, models.HourlyForecast{
				Time:         time.Unix(item.Dt, 0).UTC().Format(time.RFC3339),
				TempC:        item.Main.Temp,
				Condition:    toCondition(item.Weather[0]),
				ChanceOfRain: item.Pop * 100,
			})
		}

		days = append(days, models.ForecastDay{
			Date:          b.date,
			MaxTempC:      maxTemp,
			MinTempC:      minTemp,
			AvgTempC:      (maxTemp + minTemp) / 2,
			TotalPrecipMM: totalPrecip,
			Condition:     toCondition(mostFrequent(b.conditions)),
			UV:            0,
			Sunrise:       sunrise,
			Sunset:        sunset,
			Hours:         hours,
		})
	}

	return days, nil
}

// mostFrequent returns the condition whose code occurs most often. Ties go to
// the condition encountered first.
func mostFrequent(conditions []owmCondition) owmCondition {
	counts := make(map[int]int, len(conditions))
	for _, c := range conditions {
		counts[c.ID]++
	}

	best := conditions[0]
	for _, c := range conditions[1:] {
		if counts[c.ID] > counts[best.ID] {
			best = c
		}
	}
	return best
}

func clockTime(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format("15:04")
}
