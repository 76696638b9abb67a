package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the negotiation service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	LogFormat            string
	LogLevel             string
	CalendarProvider     string
	ProposalHorizon      time.Duration
	ProposalStep         time.Duration
	DefaultProposalLimit int
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// supplied values and reporting every offending variable at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLiteDSN:            "file:negotiator.db?_foreign_keys=on",
		LogFormat:            "json",
		LogLevel:             "info",
		CalendarProvider:     "stub",
		ProposalHorizon:      14 * 24 * time.Hour,
		ProposalStep:         30 * time.Minute,
		DefaultProposalLimit: 5,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("NEGOTIATOR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "NEGOTIATOR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("NEGOTIATOR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if format := strings.TrimSpace(os.Getenv("NEGOTIATOR_LOG_FORMAT")); format != "" {
		switch format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "NEGOTIATOR_LOG_FORMAT")
		}
	}

	if level := strings.TrimSpace(os.Getenv("NEGOTIATOR_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "NEGOTIATOR_LOG_LEVEL")
		}
	}

	if provider := strings.TrimSpace(os.Getenv("NEGOTIATOR_CALENDAR_PROVIDER")); provider != "" {
		cfg.CalendarProvider = provider
	}

	if horizonValue := strings.TrimSpace(os.Getenv("NEGOTIATOR_PROPOSAL_HORIZON")); horizonValue != "" {
		horizon, err := time.ParseDuration(horizonValue)
		if err != nil || horizon <= 0 {
			invalid = append(invalid, "NEGOTIATOR_PROPOSAL_HORIZON")
		} else {
			cfg.ProposalHorizon = horizon
		}
	}

	if stepValue := strings.TrimSpace(os.Getenv("NEGOTIATOR_PROPOSAL_STEP")); stepValue != "" {
		step, err := time.ParseDuration(stepValue)
		if err != nil || step <= 0 {
			invalid = append(invalid, "NEGOTIATOR_PROPOSAL_STEP")
		} else {
			cfg.ProposalStep = step
		}
	}

	if limitValue := strings.TrimSpace(os.Getenv("NEGOTIATOR_PROPOSAL_LIMIT")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "NEGOTIATOR_PROPOSAL_LIMIT")
		} else {
			cfg.DefaultProposalLimit = limit
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
