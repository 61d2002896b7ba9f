package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/punchamoorthee/libraryops/internal/domain"
)

type Config struct {
	DBSource    string
	Port        string
	Env         string
	Circulation domain.Policy
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	policy := domain.DefaultPolicy()
	var err error
	if policy.FinePerDay, err = envFloat("FINE_PER_DAY", policy.FinePerDay); err != nil {
		return nil, err
	}
	if policy.LoanPeriodDays, err = envInt("LOAN_PERIOD_DAYS", policy.LoanPeriodDays); err != nil {
		return nil, err
	}
	if policy.MaxRenewals, err = envInt("MAX_RENEWALS", policy.MaxRenewals); err != nil {
		return nil, err
	}
	if policy.ReservationExpiryDays, err = envInt("RESERVATION_EXPIRY_DAYS", policy.ReservationExpiryDays); err != nil {
		return nil, err
	}

	return &Config{
		DBSource:    dbSource,
		Port:        port,
		Env:         env,
		Circulation: policy,
	}, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
