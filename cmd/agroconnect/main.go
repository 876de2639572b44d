package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/agroconnect/internal/api"
	"github.com/lox/agroconnect/internal/assistant"
	"github.com/lox/agroconnect/internal/crops"
	"github.com/lox/agroconnect/internal/diagnosis"
	"github.com/lox/agroconnect/internal/insight"
	"github.com/lox/agroconnect/internal/store"
	"github.com/lox/agroconnect/internal/weather"
)

type Globals struct {
	OpenWeatherKey   string  `name:"openweather-api-key" env:"OPENWEATHER_API_KEY" help:"OpenWeatherMap API key."`
	OpenAIKey        string  `name:"openai-api-key" env:"OPENAI_API_KEY" help:"OpenAI API key for photo diagnosis. Without it a fixed diagnosis is returned."`
	OpenAIModel      string  `name:"openai-model" env:"OPENAI_MODEL" help:"Vision model used for photo diagnosis."`
	WeatherBaseURL   string  `name:"weather-base-url" env:"WEATHER_BASE_URL" default:"${weather_base_url}" help:"OpenWeatherMap API base URL."`
	WeatherRetries   uint64  `name:"weather-retries" env:"WEATHER_RETRIES" default:"0" help:"Extra attempts for failed weather requests."`
	WeatherRateLimit float64 `name:"weather-rate-limit" env:"WEATHER_RATE_LIMIT" default:"0" help:"Max weather requests per second (0 = unlimited)."`
	WeatherAlerts    bool    `name:"weather-alerts" env:"WEATHER_ALERTS" default:"false" negatable:"" help:"Look up severe weather alerts (One Call endpoint, best-effort)."`
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the HTTP API server."`
	Weather  WeatherCmd  `cmd:"" help:"Print current weather, forecast and farming insight for a location."`
	Chat     ChatCmd     `cmd:"" help:"Ask the farming assistant a question."`
	Diagnose DiagnoseCmd `cmd:"" help:"Diagnose a crop photo."`
}

func (g *Globals) weatherClient() (*weather.Client, error) {
	if g.OpenWeatherKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY is required")
	}
	return weather.NewClient(g.OpenWeatherKey, weather.Options{
		BaseURL:   g.WeatherBaseURL,
		Retries:   g.WeatherRetries,
		RateLimit: g.WeatherRateLimit,
		Burst:     1,
		Alerts:    g.WeatherAlerts,
	}), nil
}

type ServeCmd struct {
	Port   string `env:"PORT" default:"8080" help:"HTTP server port."`
	DBPath string `name:"db" env:"DB_PATH" default:"data/agroconnect.db" help:"Path to SQLite database."`
}

func (c *ServeCmd) Run(g *Globals) error {
	wc, err := g.weatherClient()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", c.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")

	table := crops.Default()
	analyzer := diagnosis.NewAnalyzer(g.OpenAIKey, g.OpenAIModel)
	if !analyzer.Enabled() {
		log.Println("OPENAI_API_KEY not set, photo diagnosis returns the fixed result")
	}

	server := api.NewServer(api.Deps{
		Store:     st,
		Weather:   wc,
		Responder: assistant.NewResponder(wc, table),
		Analyzer:  analyzer,
		Crops:     table,
	}, c.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type Location struct {
	Lat float64 `default:"${fallback_lat}" help:"Latitude."`
	Lon float64 `default:"${fallback_lon}" help:"Longitude."`
}

type WeatherCmd struct {
	Location
}

func (c *WeatherCmd) Run(g *Globals) error {
	wc, err := g.weatherClient()
	if err != nil {
		return err
	}
	fc, err := wc.Fetch(context.Background(), c.Lat, c.Lon)
	if err != nil {
		return err
	}
	return printJSON(api.WeatherResponse{
		Current: fc.Current,
		Days:    fc.Days,
		Alert:   fc.Alert,
		Insight: insight.Derive(fc.Current),
	})
}

type ChatCmd struct {
	Location
	Message string `arg:"" help:"Question to ask."`
}

func (c *ChatCmd) Run(g *Globals) error {
	wc, err := g.weatherClient()
	if err != nil {
		return err
	}
	reply := assistant.NewResponder(wc, crops.Default()).Respond(context.Background(), c.Message, c.Lat, c.Lon)
	fmt.Println(reply.Text)
	return nil
}

type DiagnoseCmd struct {
	Image string `arg:"" type:"existingfile" help:"Path to a crop photo."`
}

func (c *DiagnoseCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.Image)
	if err != nil {
		return err
	}
	d, err := diagnosis.NewAnalyzer(g.OpenAIKey, g.OpenAIModel).Analyze(context.Background(), data, "")
	if err != nil {
		return err
	}
	return printJSON(d)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agroconnect"),
		kong.Description("Weather-aware farming assistant."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.Vars{
			"weather_base_url": weather.DefaultBaseURL,
			"fallback_lat":     fmt.Sprint(api.FallbackLat),
			"fallback_lon":     fmt.Sprint(api.FallbackLon),
		},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
