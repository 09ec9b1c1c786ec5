// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - StringWithDefault: String-Getter
// - Uint: Integer-Getter mit Default-Wert
// - Float: Gleitkomma-Getter mit Default-Wert
// - Duration: Dauer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// String-Getter
// =============================================================================

// StringWithDefault gibt eine Funktion zurueck, die einen String mit Default-Wert liest
func StringWithDefault(key, defaultValue string) func() string {
	return func() string {
		if s := Var(key); s != "" {
			return s
		}
		return defaultValue
	}
}

// =============================================================================
// Integer- und Dauer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Float gibt eine Funktion zurueck, die einen nicht-negativen float64 mit
// Default-Wert liest
func Float(key string, defaultValue float64) func() float64 {
	return func() float64 {
		if s := Var(key); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return f
			}
		}
		return defaultValue
	}
}

// Duration gibt eine Funktion zurueck, die eine Dauer mit Default-Wert liest
// Akzeptiert Go-Dauern ("90s", "5m") und ganze Sekunden ("90")
// Negative Werte werden als 0 (kein Limit) interpretiert
func Duration(key string, defaultValue time.Duration) func() time.Duration {
	return func() time.Duration {
		d := defaultValue
		if s := Var(key); s != "" {
			if v, err := time.ParseDuration(s); err == nil {
				d = v
			} else if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				d = time.Duration(n) * time.Second
			} else {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			}
		}
		return max(d, 0)
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"MIPVERIFY_DEBUG":             {"MIPVERIFY_DEBUG", LogLevel(), "Show additional debug information (e.g. MIPVERIFY_DEBUG=1, 2 for solver traces)"},
		"MIPVERIFY_HOST":              {"MIPVERIFY_HOST", Host(), "IP Address for the mipverify server (default 127.0.0.1:" + DefaultPort + ")"},
		"MIPVERIFY_ORIGINS":           {"MIPVERIFY_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"MIPVERIFY_CACHE_DIR":         {"MIPVERIFY_CACHE_DIR", CacheDir(), "The path to the built model cache"},
		"MIPVERIFY_CACHE_BACKEND":     {"MIPVERIFY_CACHE_BACKEND", CacheBackend(), "Model cache store: disk or sqlite (default disk)"},
		"MIPVERIFY_NOCACHE":           {"MIPVERIFY_NOCACHE", NoCache(), "Always rebuild models and never store them"},
		"MIPVERIFY_BUILD_TIME_LIMIT":  {"MIPVERIFY_BUILD_TIME_LIMIT", BuildTimeLimit(), "Time limit per bound computation while building (default \"20s\", 0 = none)"},
		"MIPVERIFY_SEARCH_TIME_LIMIT": {"MIPVERIFY_SEARCH_TIME_LIMIT", SearchTimeLimit(), "Time limit for the final search (default none)"},
		"MIPVERIFY_BUILD_NODE_LIMIT":  {"MIPVERIFY_BUILD_NODE_LIMIT", BuildNodeLimit(), "Branch-and-bound node limit per bound computation (0 = none)"},
		"MIPVERIFY_SEARCH_NODE_LIMIT": {"MIPVERIFY_SEARCH_NODE_LIMIT", SearchNodeLimit(), "Branch-and-bound node limit for the final search (0 = none)"},
		"MIPVERIFY_SEARCH_GAP":        {"MIPVERIFY_SEARCH_GAP", SearchGap(), "Relative optimality gap at which the final search stops (default 0)"},
		"MIPVERIFY_TIGHTENING":        {"MIPVERIFY_TIGHTENING", Tightening(), "Bound tightening algorithm: interval, lp or mip (default mip)"},
		"MIPVERIFY_NUM_PARALLEL":      {"MIPVERIFY_NUM_PARALLEL", NumParallel(), "Maximum number of samples solved in parallel by batch"},
		"MIPVERIFY_SOLVER":            {"MIPVERIFY_SOLVER", Solver(), "Solver backend (default simplex)"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
