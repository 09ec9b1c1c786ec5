// config.go - Haupt-Konfigurationsfunktionen fuer mipverify
//
// Dieses Modul enthaelt:
// - Host: Gibt Scheme und Host zurueck (MIPVERIFY_HOST)
// - AllowedOrigins: Gibt erlaubte Origins zurueck (MIPVERIFY_ORIGINS)
// - CacheDir: Gibt das Modell-Cache-Verzeichnis zurueck (MIPVERIFY_CACHE_DIR)
// - BuildTimeLimit/SearchTimeLimit: Solver-Zeitlimits pro Phase
// - LogLevel: Gibt Log-Level zurueck (MIPVERIFY_DEBUG)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Solver- und Cache-Einstellungen
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultPort ist der Standard-Port des Servers
const DefaultPort = "8457"

// Host gibt Scheme und Host zurueck
// Konfigurierbar via MIPVERIFY_HOST
// Default: http://127.0.0.1:8457
func Host() *url.URL {
	defaultPort := DefaultPort

	s := strings.TrimSpace(Var("MIPVERIFY_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// AllowedOrigins gibt erlaubte Origins zurueck
// Konfigurierbar via MIPVERIFY_ORIGINS (komma-separiert)
// Enthaelt Standard-Origins fuer localhost
func AllowedOrigins() (origins []string) {
	if s := Var("MIPVERIFY_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	for _, origin := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
			fmt.Sprintf("http://%s", net.JoinHostPort(origin, "*")),
			fmt.Sprintf("https://%s", net.JoinHostPort(origin, "*")),
		)
	}

	return origins
}

// CacheDir gibt das Verzeichnis fuer gebaute Modelle zurueck
// Konfigurierbar via MIPVERIFY_CACHE_DIR
// Default: $HOME/.mipverify/models
func CacheDir() string {
	if s := Var("MIPVERIFY_CACHE_DIR"); s != "" {
		return s
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mipverify", "models")
	}

	return filepath.Join(home, ".mipverify", "models")
}

// BuildTimeLimit gibt das Zeitlimit pro Bound-Berechnung beim Modellbau zurueck
// Konfigurierbar via MIPVERIFY_BUILD_TIME_LIMIT ("30s" oder Sekunden)
// 0 = kein Limit, Default: 20 Sekunden
var BuildTimeLimit = Duration("MIPVERIFY_BUILD_TIME_LIMIT", 20*time.Second)

// SearchTimeLimit gibt das Zeitlimit fuer die finale Suche zurueck
// Konfigurierbar via MIPVERIFY_SEARCH_TIME_LIMIT ("10m" oder Sekunden)
// 0 = kein Limit (Default)
var SearchTimeLimit = Duration("MIPVERIFY_SEARCH_TIME_LIMIT", 0)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via MIPVERIFY_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("MIPVERIFY_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
