// Package server - Router und Server-Setup fuer mipverify
// Beinhaltet: Server-Struct, Router-Registrierung, Middleware, Server-Start
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"slices"
	"sort"
	"strings"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/FelixaHub/mipverify/envconfig"
	"github.com/FelixaHub/mipverify/logutil"
	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/verify"
	"github.com/FelixaHub/mipverify/version"
)

var mode string = gin.DebugMode

// Server haelt die geladenen Netzwerke und den Builder fuer Suchen
type Server struct {
	addr     net.Addr
	builder  *verify.Builder
	networks map[string]*nn.Network

	// searches begrenzt gleichzeitige Suchen, jede mit eigenem Modell
	searches *semaphore.Weighted
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// NewServer erstellt einen Server fuer die gegebenen Netzwerke
func NewServer(b *verify.Builder, networks []*nn.Network, parallel int) (*Server, error) {
	s := &Server{
		builder:  b,
		networks: make(map[string]*nn.Network, len(networks)),
		searches: semaphore.NewWeighted(int64(max(parallel, 1))),
	}
	for _, n := range networks {
		if _, ok := s.networks[n.ID]; ok {
			return nil, fmt.Errorf("server: duplicate network id %q", n.ID)
		}
		s.networks[n.ID] = n
	}
	return s, nil
}

// localSuffixes sind Namensendungen, die nie ausserhalb des Rechners
// oder des LANs aufgeloest werden
var localSuffixes = []string{".localhost", ".local", ".internal"}

// allowedHost meldet ob ein Host-Header mit diesem Namen einen nur auf
// Loopback lauschenden Server erreichen darf (Schutz gegen DNS-Rebinding)
func allowedHost(host string) bool {
	host = strings.ToLower(host)
	switch host {
	case "", "localhost":
		return true
	}
	if name, err := os.Hostname(); err == nil && strings.EqualFold(host, name) {
		return true
	}
	return slices.ContainsFunc(localSuffixes, func(suffix string) bool {
		return strings.HasSuffix(host, suffix)
	})
}

// ownAddr meldet ob ip einem Interface dieses Rechners gehoert
func ownAddr(ip netip.Addr) bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if p, err := netip.ParsePrefix(a.String()); err == nil && p.Addr().Unmap() == ip.Unmap() {
			return true
		}
	}
	return false
}

func localHost(host string) bool {
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ownAddr(ip)
	}
	return allowedHost(host)
}

// loopbackOnly weist Anfragen fuer fremde Hosts ab, wenn listen eine
// Loopback-Adresse ist. Auf allen anderen Adressen ist sie wirkungslos.
func loopbackOnly(listen net.Addr) gin.HandlerFunc {
	guarded := false
	if listen != nil {
		ap, err := netip.ParseAddrPort(listen.String())
		guarded = err == nil && ap.Addr().IsLoopback()
	}

	return func(c *gin.Context) {
		if !guarded {
			c.Next()
			return
		}

		host, _, err := net.SplitHostPort(c.Request.Host)
		if err != nil {
			host = c.Request.Host
		}
		switch {
		case !localHost(host):
			c.AbortWithStatus(http.StatusForbidden)
		case c.Request.Method == http.MethodOptions:
			c.AbortWithStatus(http.StatusNoContent)
		default:
			c.Next()
		}
	}
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
		loopbackOnly(s.addr),
	)

	// Allgemein
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "mipverify is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "mipverify is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/config", s.ConfigHandler)

	// Netzwerke
	r.GET("/api/networks", s.ListHandler)
	r.POST("/api/forward", s.ForwardHandler)
	r.POST("/api/search", s.SearchHandler)

	return r
}

// Serve startet den HTTP-Server bis SIGINT oder SIGTERM
func Serve(ln net.Listener, b *verify.Builder, networks []*nn.Network) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	s, err := NewServer(b, networks, int(envconfig.NumParallel()))
	if err != nil {
		return err
	}
	s.addr = ln.Addr()

	ids := make([]string, 0, len(s.networks))
	for id := range s.networks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ctx, done := context.WithCancel(context.Background())
	srvr := &http.Server{
		Handler:     s.GenerateRoutes(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// bei Ctrl+C laufende Suchen abbrechen
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		done()
		srvr.Close()
	}()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version), "networks", ids)
	err = srvr.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		done()
		return err
	}
	<-ctx.Done()
	return nil
}
