package api

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("api")

// MetricInfo describes one registered metric to the frontend
type MetricInfo struct {
	Prefix string `json:"prefix"`
	Label  string `json:"label"`
	Unit   string `json:"unit"`
}

// PublicConfig is the non secret configuration the frontend needs to render the pages
type PublicConfig struct {
	RefreshIntervalInSeconds uint32       `json:"refreshIntervalInSeconds"`
	StalenessCutoff          string       `json:"stalenessCutoff"`
	Timezone                 string       `json:"timezone"`
	Metrics                  []MetricInfo `json:"metrics"`
}

type server struct {
	router          *gin.Engine
	httpServer      *http.Server
	dashboard       Dashboard
	thresholds      ThresholdsHandler
	users           UserDirectory
	publicConfig    PublicConfig
	serviceKey      string
	listenAddr      string
	staticDir       string
	sessionLifetime time.Duration
	jwtSecret       []byte
	generalHandler  func(http.Handler) http.Handler
	wg              sync.WaitGroup
}

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ServiceKeyApi   string
	ListenAddress   string
	StaticDir       string
	SessionLifetime time.Duration
	PublicConfig    PublicConfig
	Dashboard       Dashboard
	Thresholds      ThresholdsHandler
	Users           UserDirectory
	GeneralHandler  func(http.Handler) http.Handler
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Dashboard) {
		return nil, errors.New("nil dashboard")
	}
	if check.IfNil(args.Thresholds) {
		return nil, errors.New("nil thresholds handler")
	}
	if check.IfNil(args.Users) {
		return nil, errors.New("nil user directory")
	}
	if args.GeneralHandler == nil {
		return nil, errors.New("nil http handler")
	}
	if len(args.ServiceKeyApi) == 0 {
		return nil, errors.New("empty service key")
	}
	if args.SessionLifetime <= 0 {
		return nil, fmt.Errorf("invalid session lifetime %v", args.SessionLifetime)
	}

	// tokens issued before a restart are invalidated by the fresh salt
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	h := hmac.New(sha256.New, []byte(args.ServiceKeyApi))
	h.Write(salt)
	jwtSecret := h.Sum(nil)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestID())

	s := &server{
		router:          router,
		dashboard:       args.Dashboard,
		thresholds:      args.Thresholds,
		users:           args.Users,
		publicConfig:    args.PublicConfig,
		serviceKey:      args.ServiceKeyApi,
		listenAddr:      args.ListenAddress,
		staticDir:       args.StaticDir,
		sessionLifetime: args.SessionLifetime,
		generalHandler:  args.GeneralHandler,
		jwtSecret:       jwtSecret,
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	api := s.router.Group("/api")

	// Machine to machine access for external pollers
	api.GET("/service/live", s.authAPIKey(), s.handleLiveView)

	// Frontend authentication
	api.POST("/auth/login", s.handleLogin)

	// Protected frontend endpoints
	protected := api.Group("/")
	protected.Use(s.authJWT())
	{
		protected.GET("/config", s.handleGetConfig)
		protected.GET("/readings/latest", s.handleLiveView)
		protected.GET("/readings", s.handleHistory)
		protected.GET("/readings/export/xlsx", s.handleExportTable)
		protected.GET("/readings/export/pdf", s.handleExportDocument)
		protected.GET("/sensors", s.handleGetSensors)
		protected.GET("/users", s.handleGetUsers)
	}

	devices := api.Group("/sensors")
	devices.Use(s.authJWT(), requireRole(common.Role.CanManageDevices))
	{
		devices.POST("", s.handleAddSensor)
		devices.PATCH("/:id", s.handleSaveSensor)
		devices.DELETE("/:id", s.handleRemoveSensor)
	}

	accounts := api.Group("/users")
	accounts.Use(s.authJWT(), requireRole(isSuperAdmin))
	{
		accounts.POST("", s.handleAddUser)
		accounts.DELETE("/:username", s.handleRemoveUser)
	}

	// Serve static files from the frontend build if configured
	if s.staticDir != "" {
		log.Info("serving static files", "dir", s.staticDir)
		s.router.Static("/assets", path.Join(s.staticDir, "assets"))
		s.router.StaticFile("/favicon.ico", path.Join(s.staticDir, "favicon.ico"))

		// NoRoute for SPA fallback
		s.router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "api route not found"})
				return
			}
			c.File(path.Join(s.staticDir, "index.html"))
		})
	}
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:              s.listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
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

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()

	return nil
}
