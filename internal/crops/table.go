// Package crops holds the static crop reference table used by the assistant.
package crops

import (
	"strings"

	"github.com/lox/agroconnect/internal/models"
)

const SeasonLongRains = "long-rains"

// Guide categories.
const (
	CategoryGrains     = "grains"
	CategoryLegumes    = "legumes"
	CategoryVegetables = "vegetables"
	CategoryCashCrops  = "cash-crops"
)

// Entry pairs a lookup key with its crop information. GuideOnly entries are
// listed in the guide but never matched against chat messages.
type Entry struct {
	Key       string
	Info      models.CropInfo
	GuideOnly bool
}

// Table is an ordered, read-only list of crops.
type Table struct {
	entries []Entry
}

var defaultEntries = []Entry{
	{Key: "maize", Info: models.CropInfo{
		Name:        "Maize",
		Category:    CategoryGrains,
		Season:      SeasonLongRains,
		Description: "Kenya's staple crop, maize is grown across various regions and is essential to food security.",
		WaterNeeds:  "Medium",
		GrowingTime: "90-120 days",
		SunExposure: "Full sun",
		SoilType:    "Well-drained loamy soil",
		Tips:        "Plant at the onset of rains. Space plants 75cm between rows and 30cm within rows.",
	}},
	{Key: "beans", Info: models.CropInfo{
		Name:        "Beans",
		Category:    CategoryLegumes,
		Season:      "short-rains",
		Description: "A key protein source, beans are often intercropped with maize in Kenyan farming systems.",
		WaterNeeds:  "Medium",
		GrowingTime: "60-90 days",
		SunExposure: "Full sun",
		SoilType:    "Well-drained soil",
		Tips:        "Avoid waterlogging. Can be intercropped with maize for better yields.",
	}},
	{Key: "tomatoes", Info: models.CropInfo{
		Name:        "Tomatoes",
		Category:    CategoryVegetables,
		Season:      "year-round",
		Description: "Popular vegetable crop grown in many parts of Kenya, especially in greenhouse systems.",
		WaterNeeds:  "High",
		GrowingTime: "90-100 days",
		SunExposure: "Full sun",
		SoilType:    "Rich, well-drained soil",
		Tips:        "Stake plants for support. Water regularly but avoid wetting the leaves.",
	}},
	// "tea" is a substring of words like "instead", so chat matching skips it.
	{Key: "tea", GuideOnly: true, Info: models.CropInfo{
		Name:        "Tea",
		Category:    CategoryCashCrops,
		Season:      "year-round",
		Description: "Kenya is one of the world's largest tea exporters, grown mainly in the highlands.",
		WaterNeeds:  "High",
		GrowingTime: "3-5 years to maturity",
		SunExposure: "Partial shade",
		SoilType:    "Acidic soil",
		Tips:        "Needs regular pruning. Harvest the top two leaves and bud for best quality.",
	}},
}

// Default returns the built-in crop table.
func Default() *Table {
	return New(defaultEntries)
}

// New returns a table over a copy of entries, preserving their order.
func New(entries []Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// Match returns the first entry, in table order, whose key occurs in text.
// Matching is case-insensitive and ignores GuideOnly entries.
func (t *Table) Match(text string) (Entry, bool) {
	lower := strings.ToLower(text)
	for _, e := range t.entries {
		if e.GuideOnly {
			continue
		}
		if strings.Contains(lower, strings.ToLower(e.Key)) {
			return e, true
		}
	}
	return Entry{}, false
}

// Get looks up a crop by key.
func (t *Table) Get(key string) (models.CropInfo, bool) {
	key = strings.ToLower(key)
	for _, e := range t.entries {
		if e.Key == key {
			return e.Info, true
		}
	}
	return models.CropInfo{}, false
}

// All returns the crops in table order.
func (t *Table) All() []models.CropInfo {
	out := make([]models.CropInfo, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Info
	}
	return out
}

// ByCategory returns the crops in category, in table order. An empty
// category or "all" returns every crop.
func (t *Table) ByCategory(category string) []models.CropInfo {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" || category == "all" {
		return t.All()
	}
	out := []models.CropInfo{}
	for _, e := range t.entries {
		if e.Info.Category == category {
			out = append(out, e.Info)
		}
	}
	return out
}
