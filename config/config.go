package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Thresholds are the empirically tuned heuristic constants used by the
// candidate locator and the field extractors.
type Thresholds struct {
	MinNodeWidth     float64 // rendered width a content-heuristic candidate must reach
	MinNodeHeight    float64 // rendered height a content-heuristic candidate must reach
	MinTextLength    int     // candidate text must be longer than this
	TitleMinLength   int     // accepted titles are longer than this
	TitleMaxLength   int     // accepted titles are shorter than this
	FallbackTitleMin int     // text-fragment fallback minimum length (inclusive)
	FallbackTitleMax int     // text-fragment fallback maximum length (inclusive)
	MaxPrice         float64 // prices at or above this are rejected
	CandidateCap     int     // minimum internal cap on located candidates
	TopItems         int     // length of the summary's top items list
}

// DefaultThresholds returns the stock heuristic constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinNodeWidth:     100,
		MinNodeHeight:    100,
		MinTextLength:    20,
		TitleMinLength:   3,
		TitleMaxLength:   200,
		FallbackTitleMin: 5,
		FallbackTitleMax: 200,
		MaxPrice:         10_000_000,
		CandidateCap:     50,
		TopItems:         10,
	}
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SiteURL   string
	StartURL  string
	InputFile string
	Category  string

	UseBrowser bool
	ChromeBin  string

	MaxItems           int
	MaxPages           int
	RunTimeout         time.Duration
	RenderWaitAttempts int
	RenderPollDelay    time.Duration
	PageSettleDelay    time.Duration
	MaxRetries         int
	RateLimitMs        int

	ReportPath string
	ReportBOM  bool
	LogLevel   string

	Thresholds Thresholds
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		SiteURL:            "https://www.trademe.co.nz",
		StartURL:           "https://www.trademe.co.nz/a/marketplace/search",
		UseBrowser:         true,
		MaxItems:           50,
		MaxPages:           5,
		RunTimeout:         120 * time.Second,
		RenderWaitAttempts: 10,
		RenderPollDelay:    500 * time.Millisecond,
		PageSettleDelay:    2 * time.Second,
		MaxRetries:         3,
		RateLimitMs:        1000,
		ReportPath:         DefaultReportPath(time.Now()),
		ReportBOM:          true,
		LogLevel:           "info",
		Thresholds:         DefaultThresholds(),
	}
}

// DefaultReportPath names the report after the day it was generated.
func DefaultReportPath(now time.Time) string {
	return "./output/trademe-analysis-" + now.Format("2006-01-02") + ".csv"
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	d := Default()
	t := d.Thresholds

	cfg := &Config{
		SiteURL:   strings.TrimRight(getEnv("SITE_URL", d.SiteURL), "/"),
		StartURL:  getEnv("START_URL", d.StartURL),
		InputFile: getEnv("INPUT_FILE", ""),
		Category:  getEnv("CATEGORY", ""),

		UseBrowser: getEnvBool("USE_BROWSER", d.UseBrowser),
		ChromeBin:  getEnv("CHROME_BIN", ""),

		MaxItems:           getEnvPositive("MAX_ITEMS", d.MaxItems),
		MaxPages:           getEnvPositive("MAX_PAGES", d.MaxPages),
		RunTimeout:         getEnvMs("RUN_TIMEOUT_MS", d.RunTimeout),
		RenderWaitAttempts: getEnvPositive("RENDER_WAIT_ATTEMPTS", d.RenderWaitAttempts),
		RenderPollDelay:    getEnvMs("RENDER_POLL_MS", d.RenderPollDelay),
		PageSettleDelay:    getEnvMs("PAGE_SETTLE_MS", d.PageSettleDelay),
		MaxRetries:         getEnvPositive("MAX_RETRIES", d.MaxRetries),
		RateLimitMs:        getEnvInt("RATE_LIMIT_MS", d.RateLimitMs),

		ReportPath: getEnv("REPORT_PATH", d.ReportPath),
		ReportBOM:  getEnvBool("REPORT_BOM", d.ReportBOM),
		LogLevel:   getEnv("LOG_LEVEL", d.LogLevel),

		Thresholds: Thresholds{
			MinNodeWidth:     getEnvFloat("MIN_NODE_WIDTH", t.MinNodeWidth),
			MinNodeHeight:    getEnvFloat("MIN_NODE_HEIGHT", t.MinNodeHeight),
			MinTextLength:    getEnvInt("MIN_TEXT_LENGTH", t.MinTextLength),
			TitleMinLength:   getEnvInt("TITLE_MIN_LENGTH", t.TitleMinLength),
			TitleMaxLength:   getEnvPositive("TITLE_MAX_LENGTH", t.TitleMaxLength),
			FallbackTitleMin: getEnvInt("FALLBACK_TITLE_MIN", t.FallbackTitleMin),
			FallbackTitleMax: getEnvPositive("FALLBACK_TITLE_MAX", t.FallbackTitleMax),
			MaxPrice:         getEnvFloat("MAX_PRICE", t.MaxPrice),
			CandidateCap:     getEnvPositive("CANDIDATE_CAP", t.CandidateCap),
			TopItems:         getEnvPositive("TOP_ITEMS", t.TopItems),
		},
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvPositive(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvMs(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
