package api

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/interceptor"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ingestedTotalName   = "telemetry_ingested_total"
	ingestFailuresName  = "telemetry_ingest_failures_total"
	tokenLifetime       = 24 * time.Hour
	usernameContextKey  = "username"
	shutdownGracePeriod = 5 * time.Second
)

var log = logger.GetOrCreate("aggregation/api")

type server struct {
	router         *gin.Engine
	httpServer     *http.Server
	storage        Storage
	monitor        Monitor
	serviceKey     string
	username       string
	password       string
	listenAddr     string
	staticDir      string
	jwtSecret      []byte
	generalHandler func(http.Handler) http.Handler
	gatherer       prometheus.Gatherer
	ingested       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	hub            *alertHub
	upgrader       websocket.Upgrader
	wg             sync.WaitGroup
}

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ServiceKeyApi  string
	AuthUsername   string
	AuthPassword   string
	ListenAddress  string
	StaticDir      string
	Storage        Storage
	Monitor        Monitor
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	GeneralHandler func(http.Handler) http.Handler
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Storage) {
		return nil, ErrNilStorage
	}
	if check.IfNil(args.Monitor) {
		return nil, ErrNilMonitor
	}
	if args.GeneralHandler == nil {
		return nil, ErrNilHTTPHandler
	}

	// Derive JWT secret from ServiceApiKey + random salt
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	h := hmac.New(sha256.New, []byte(args.ServiceKeyApi))
	h.Write(salt)
	jwtSecret := h.Sum(nil)

	registerer, gatherer := args.Registerer, args.Gatherer
	if registerer == nil || gatherer == nil {
		registry := prometheus.NewRegistry()
		registerer, gatherer = registry, registry
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(corsMiddleware())
	router.Use(interceptor.GinMiddleware(args.Monitor))

	s := &server{
		router:         router,
		storage:        args.Storage,
		monitor:        args.Monitor,
		serviceKey:     args.ServiceKeyApi,
		username:       args.AuthUsername,
		password:       args.AuthPassword,
		listenAddr:     args.ListenAddress,
		staticDir:      args.StaticDir,
		generalHandler: args.GeneralHandler,
		jwtSecret:      jwtSecret,
		gatherer:       gatherer,
		hub:            newAlertHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	err := s.registerCounters(registerer)
	if err != nil {
		return nil, err
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) registerCounters(registerer prometheus.Registerer) error {
	s.ingested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ingestedTotalName,
		Help: "Number of ingested entities per kind",
	}, []string{"kind"})
	s.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ingestFailuresName,
		Help: "Number of ingestion requests that failed to be stored per kind",
	}, []string{"kind"})

	for name, collector := range map[string]prometheus.Collector{ingestedTotalName: s.ingested, ingestFailuresName: s.failures} {
		err := registerer.Register(collector)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	return nil
}

func (s *server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")

	api.GET("/health", s.handleHealth)

	// Agent reporting endpoints
	ingest := api.Group("/")
	ingest.Use(s.authAPIKey())
	{
		ingest.POST("/metrics", s.handleIngestMetrics)
		ingest.POST("/errors", s.handleIngestErrors)
		ingest.POST("/alerts", s.handleIngestAlerts)
	}

	// Frontend authentication
	api.POST("/auth/login", s.handleLogin)

	// The browser websocket API can not set headers, the token is passed in the query
	api.GET("/alerts/stream", s.handleAlertStream)

	// Protected frontend endpoints
	protected := api.Group("/")
	protected.Use(s.authJWT())
	{
		protected.GET("/metrics", s.handleGetMetrics)
		protected.GET("/metrics/:name/history", s.handleGetMetricHistory)
		protected.DELETE("/metrics/:name", s.handleDeleteMetric)
		protected.GET("/config/panels", s.handleGetPanels)
		protected.POST("/config/panels", s.handleUpdatePanelOrder)
		protected.POST("/config/metrics/order", s.handleUpdateMetricOrder)
		protected.GET("/errors", s.handleGetErrors)
		protected.GET("/errors/summary", s.handleGetErrorSummary)
		protected.POST("/errors/:id/resolve", s.handleResolveError)
		protected.POST("/errors/:id/unresolve", s.handleUnresolveError)
		protected.GET("/alerts", s.handleGetAlerts)
	}

	// Serve static files from the frontend build if configured
	if s.staticDir != "" {
		log.Info("serving static files", "dir", s.staticDir)
		s.router.Static("/static", path.Join(s.staticDir, "static"))
		s.router.StaticFile("/favicon.ico", path.Join(s.staticDir, "favicon.ico"))

		// NoRoute for SPA fallback
		s.router.NoRoute(func(c *gin.Context) {
			// If request is for an /api route that doesn't exist, return 404
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "api route not found"})
				return
			}
			// Otherwise serve index.html for CSR
			c.File(path.Join(s.staticDir, "index.html"))
		})
	}
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server. Hijacked stream connections are closed explicitly.
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	s.hub.closeAll()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	return s.storage.Close()
}

// --- Middlewares ---

func (s *server) authAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if key != s.serviceKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *server) authJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errMissingToken.Error()})
			c.Abort()
			return
		}

		subject, err := s.validateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(usernameContextKey, subject)
		c.Next()
	}
}

// VERY basic JWT implementation for frontend session based on HS256
func (s *server) issueToken(subject string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims, _ := json.Marshal(tokenClaims{
		Sub: subject,
		Exp: time.Now().Add(tokenLifetime).Unix(),
	})
	payload := base64.RawURLEncoding.EncodeToString(claims)

	msg := header + "." + payload
	return msg + "." + base64.RawURLEncoding.EncodeToString(s.sign(msg))
}

type tokenClaims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

func (s *server) sign(message string) []byte {
	macd := hmac.New(sha256.New, s.jwtSecret)
	macd.Write([]byte(message))

	return macd.Sum(nil)
}

// validateToken verifies the signature and the expiration, returning the token subject
func (s *server) validateToken(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", errInvalidToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", errInvalidTokenSign
	}
	if !hmac.Equal(sig, s.sign(parts[0]+"."+parts[1])) {
		return "", errUnauthorized
	}

	var claims tokenClaims
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err == nil {
		_ = json.Unmarshal(payloadBytes, &claims)
	}
	if time.Now().Unix() > claims.Exp {
		return "", errTokenExpired
	}

	return claims.Sub, nil
}

func (s *server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if req.Username != s.username || req.Password != s.password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": s.issueToken(req.Username)})
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.HealthReport())
}
