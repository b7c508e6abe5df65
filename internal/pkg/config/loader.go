package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult is what every loader in this package returns: the value
// actually in effect, any fallback warnings, and whether a fallback was
// applied. The worker logs the warnings at startup and keeps running; a bad
// scan schedule or timeout should never keep the radar from booting.
//
//	result := LoadEnvDuration("RUN_TIMEOUT", 30*time.Minute, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, w := range result.Warnings {
//	        logger.Warn("config fallback", slog.String("warning", w))
//	    }
//	}
//	timeout := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

func loaded(value interface{}) ConfigLoadResult {
	return ConfigLoadResult{Value: value}
}

func fellBack(defaultValue interface{}, format string, args ...interface{}) ConfigLoadResult {
	return ConfigLoadResult{
		Value:           defaultValue,
		Warnings:        []string{fmt.Sprintf(format, args...)},
		FallbackApplied: true,
	}
}

// LoadEnvString reads an environment variable, returning defaultValue when
// unset. No validation; use LoadEnvWithFallback when the value needs one.
//
//	schedule := LoadEnvString("SCAN_SCHEDULE", "0 6 * * *")
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback reads a string variable and runs it through the
// validator. An unset variable takes the default silently; a set but
// invalid one takes the default with a warning. The function never fails.
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)

	// 未設定は黙ってデフォルト
	if value == "" {
		return loaded(defaultValue)
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fellBack(defaultValue,
				"Invalid %s='%s': %v, falling back to default '%s'",
				envKey, value, err, defaultValue)
		}
	}

	return loaded(value)
}

// LoadEnvDuration reads a Go duration string ("30s", "1h30m") from the
// environment, parses it, and validates it. Parse and validation failures
// both fall back to the default with a warning. Used for the scan run
// timeout, retry delays and cache TTLs.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}

	parsedDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		return fellBack(defaultValue,
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, valueStr, err, defaultValue)
	}

	if validator != nil {
		if err := validator(parsedDuration); err != nil {
			return fellBack(defaultValue,
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, valueStr, err, defaultValue)
		}
	}

	return loaded(parsedDuration)
}

// LoadEnvInt reads an integer from the environment with the same
// parse-validate-fallback flow as LoadEnvDuration. Used for ports,
// pipeline concurrency and retry counts.
//
//	result := LoadEnvInt("PIPELINE_CONCURRENCY", 3,
//	    func(v int) error { return ValidateIntRange(v, 1, 10) })
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}

	// Sscanf なので "10.5" は 10 として通る。既存の設定ファイルが
	// この挙動に依存しているため strconv.Atoi には変えない。
	var parsedInt int
	if _, err := fmt.Sscanf(valueStr, "%d", &parsedInt); err != nil {
		return fellBack(defaultValue,
			"Invalid %s='%s': invalid integer format, falling back to default '%d'",
			envKey, valueStr, defaultValue)
	}

	if validator != nil {
		if err := validator(parsedInt); err != nil {
			return fellBack(defaultValue,
				"Invalid %s='%s': %v, falling back to default '%d'",
				envKey, valueStr, err, defaultValue)
		}
	}

	return loaded(parsedInt)
}

// LoadEnvBool reads a boolean flag. Accepted spellings are the ones
// strconv.ParseBool takes: "1", "t", "T", "true", "TRUE", "True" and the
// corresponding false forms. Anything else falls back to the default with a
// warning. Used for feature flags such as notification dry-run mode.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}

	parsedBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fellBack(defaultValue,
			"Invalid %s='%s': invalid boolean format, expected 'true' or 'false', falling back to default '%t'",
			envKey, valueStr, defaultValue)
	}

	return loaded(parsedBool)
}
