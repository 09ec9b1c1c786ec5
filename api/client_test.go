package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	base, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(base, ts.Client())
}

func TestClientForward(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/forward" {
			t.Errorf("unerwartete Anfrage %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "mipverify/") {
			t.Errorf("User-Agent erwartet, bekommen %q", r.Header.Get("User-Agent"))
		}
		var req ForwardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(ForwardResponse{Network: req.Network, Output: req.Input, Predicted: 1})
	})

	resp, err := c.Forward(context.Background(), &ForwardRequest{Network: "n", Input: []float64{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Network != "n" || resp.Predicted != 1 || len(resp.Output) != 2 {
		t.Errorf("unerwartete Antwort %+v", resp)
	}
}

func TestClientError(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"json", `{"error":"network \"x\" not found"}`, `network "x" not found`},
		{"text", "kaputt", "kaputt"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(tt.body))
			})

			_, err := c.Search(context.Background(), &SearchRequest{Network: "x"})
			var se StatusError
			if !errors.As(err, &se) {
				t.Fatalf("StatusError erwartet, bekommen %v", err)
			}
			if se.StatusCode != http.StatusNotFound {
				t.Errorf("Status 404 erwartet, bekommen %d", se.StatusCode)
			}
			if se.ErrorMessage != tt.want {
				t.Errorf("Meldung %q erwartet, bekommen %q", tt.want, se.ErrorMessage)
			}
		})
	}
}

func TestClientHeartbeatAndVersion(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/api/version":
			json.NewEncoder(w).Encode(VersionResponse{Version: "1.2.3"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	if err := c.Heartbeat(context.Background()); err != nil {
		t.Fatal(err)
	}
	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "1.2.3" {
		t.Errorf("Version 1.2.3 erwartet, bekommen %q", v)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	cases := []struct {
		err  StatusError
		want string
	}{
		{StatusError{Status: "400 Bad Request", ErrorMessage: "x"}, "400 Bad Request: x"},
		{StatusError{Status: "500"}, "500"},
		{StatusError{ErrorMessage: "y"}, "y"},
	}
	for _, tt := range cases {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%q erwartet, bekommen %q", tt.want, got)
		}
	}
}
