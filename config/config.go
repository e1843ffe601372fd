package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/models"
)

// Config holds the project config values
type Config struct {
	URL                 string
	DatabaseName        string
	BaseURL             string
	Port                string
	JWTSecret           string
	TokenTTL            time.Duration
	DefaultDeadlineDays int
	NearDeadlineWindow  time.Duration
	DeadlineRefreshCron string
	RequestTimeout      time.Duration
	SendgridAPIKey      string
	MailFrom            string
	AllowedOrigins      []string
	LoginRatePerMinute  int
	LoginBurst          int
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger, err := SetLogger(os.Getenv("ENV"))
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:                 os.Getenv("DB_URI"),
		DatabaseName:        envOr("DB_NAME", "forensic_cases"),
		BaseURL:             os.Getenv("BASE_URL"),
		Port:                envOr("PORT", "3000"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		TokenTTL:            time.Duration(envInt("TOKEN_TTL_HOURS", 8)) * time.Hour,
		DefaultDeadlineDays: envInt("DEFAULT_DEADLINE_DAYS", 30),
		NearDeadlineWindow:  time.Duration(envInt("NEAR_DEADLINE_DAYS", 3)) * 24 * time.Hour,
		DeadlineRefreshCron: envOr("DEADLINE_REFRESH_CRON", "0 * * * *"),
		RequestTimeout:      time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		SendgridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		MailFrom:            envOr("MAIL_FROM", "no-reply@pericia.local"),
		AllowedOrigins:      envList("ALLOWED_ORIGINS", "http://localhost:4200"),
		LoginRatePerMinute:  envInt("LOGIN_RATE_PER_MINUTE", 10),
		LoginBurst:          envInt("LOGIN_BURST", 5),
	}

}

// SetLogger builds the zap logger for the given environment. local logs
// everything, development starts at debug, anything else is production.
func SetLogger(env string) (*zap.Logger, error) {
	switch env {
	case "local":
		return zap.NewExample(), nil
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	resp := models.ErrorMessageResponse{StatusCode: httpStatusCode, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	if httpStatusCode >= http.StatusInternalServerError {
		zap.S().Errorw(message, "status", httpStatusCode, "error", err)
	} else {
		zap.S().Debugw(message, "status", httpStatusCode, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envList splits a comma separated variable, dropping blanks
func envList(key, def string) []string {
	var out []string
	for _, v := range strings.Split(envOr(key, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		zap.S().Warnw("invalid integer env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}
