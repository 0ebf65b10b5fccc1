// Package core provides shared configuration, error types, and HTTP client
// utilities used by every other package in the service.
//
// env_parse.go contains pure environment-parsing atoms with no dependencies
// beyond the standard library.
package core

import (
	"os"
	"strconv"
	"time"
)

// GetEnvOrDefault returns the value of the environment variable key,
// or defaultValue if the variable is unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ParseIntEnv parses an integer environment variable, returning defaultValue
// if the variable is unset, empty, or not a valid integer.
func ParseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ParseFloat64Env parses a float64 environment variable, returning
// defaultValue if the variable is unset, empty, or not a valid float.
func ParseFloat64Env(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// ParseBoolEnv parses a boolean environment variable. Only the exact string
// "true" enables the flag; anything else yields defaultValue when unset or
// false otherwise.
func ParseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true"
}

// ParseDurationSecondsEnv parses an integer environment variable expressed in
// seconds and returns it as a time.Duration.
func ParseDurationSecondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(ParseIntEnv(key, defaultSeconds)) * time.Second
}
