package envconfig

import (
	"log/slog"
	"testing"
	"time"
)

func TestHost(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "leer", value: "", want: "http://127.0.0.1:8457"},
		{name: "nur IP", value: "1.2.3.4", want: "http://1.2.3.4:8457"},
		{name: "IP und Port", value: "0.0.0.0:9000", want: "http://0.0.0.0:9000"},
		{name: "https ohne Port", value: "https://example.com", want: "https://example.com:443"},
		{name: "mit Quotes", value: `"127.0.0.1:1234"`, want: "http://127.0.0.1:1234"},
		{name: "ungueltiger Port", value: "127.0.0.1:99999", want: "http://127.0.0.1:8457"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MIPVERIFY_HOST", tt.value)
			if got := Host().String(); got != tt.want {
				t.Errorf("Host() = %q, erwartet %q", got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{value: "", want: 20 * time.Second},
		{value: "90s", want: 90 * time.Second},
		{value: "5m", want: 5 * time.Minute},
		{value: "30", want: 30 * time.Second},
		{value: "0", want: 0},
		{value: "-5s", want: 0},
		{value: "bald", want: 20 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("MIPVERIFY_BUILD_TIME_LIMIT", tt.value)
			if got := BuildTimeLimit(); got != tt.want {
				t.Errorf("BuildTimeLimit() = %v, erwartet %v", got, tt.want)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{value: "", want: slog.LevelInfo},
		{value: "false", want: slog.LevelInfo},
		{value: "1", want: slog.LevelDebug},
		{value: "true", want: slog.LevelDebug},
		{value: "2", want: slog.Level(-8)},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("MIPVERIFY_DEBUG", tt.value)
			if got := LogLevel(); got != tt.want {
				t.Errorf("LogLevel() = %v, erwartet %v", got, tt.want)
			}
		})
	}
}

func TestFeatures(t *testing.T) {
	t.Setenv("MIPVERIFY_SOLVER", "")
	t.Setenv("MIPVERIFY_TIGHTENING", "lp")
	t.Setenv("MIPVERIFY_NUM_PARALLEL", "viele")
	t.Setenv("MIPVERIFY_SEARCH_NODE_LIMIT", "500")
	t.Setenv("MIPVERIFY_NOCACHE", "1")

	if got := Solver(); got != "simplex" {
		t.Errorf("Solver() = %q, erwartet simplex", got)
	}
	if got := Tightening(); got != "lp" {
		t.Errorf("Tightening() = %q, erwartet lp", got)
	}
	if got := NumParallel(); got != 1 {
		t.Errorf("NumParallel() = %d, erwartet Default 1", got)
	}
	if got := SearchNodeLimit(); got != 500 {
		t.Errorf("SearchNodeLimit() = %d, erwartet 500", got)
	}
	if !NoCache() {
		t.Error("NoCache() = false, erwartet true")
	}
}

func TestSearchGap(t *testing.T) {
	cases := []struct {
		value string
		want  float64
	}{
		{"", 0},
		{"0.01", 0.01},
		{"-1", 0},
		{"NaN", 0},
		{"viel", 0},
	}
	for _, tt := range cases {
		t.Setenv("MIPVERIFY_SEARCH_GAP", tt.value)
		if got := SearchGap(); got != tt.want {
			t.Errorf("SearchGap(%q) = %g, erwartet %g", tt.value, got, tt.want)
		}
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("MIPVERIFY_CACHE_DIR", "/srv/models")
	if got := CacheDir(); got != "/srv/models" {
		t.Errorf("CacheDir() = %q, erwartet /srv/models", got)
	}
}

func TestAsMap(t *testing.T) {
	m := AsMap()
	for name, v := range m {
		if v.Name != name {
			t.Errorf("Eintrag %s hat Namen %s", name, v.Name)
		}
		if v.Description == "" {
			t.Errorf("Eintrag %s ohne Beschreibung", name)
		}
	}
	if len(Values()) != len(m) {
		t.Errorf("Values() hat %d Eintraege, AsMap() %d", len(Values()), len(m))
	}
}
