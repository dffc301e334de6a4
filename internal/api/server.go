package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/fahad/etimad-monitor/internal/auth"
	"github.com/fahad/etimad-monitor/internal/config"
	"github.com/fahad/etimad-monitor/internal/db"
	"github.com/fahad/etimad-monitor/internal/models"
	"github.com/fahad/etimad-monitor/internal/scrape"
)

// Searcher resolves one tender by reference number or portal URL,
// scraping it live from the portal.
type Searcher interface {
	ScrapeOne(input string) (models.Tender, error)
}

// CycleRunner exposes the background crawl for manual triggering.
type CycleRunner interface {
	RunCycle(ctx context.Context) (scrape.CycleStats, error)
	Running() bool
}

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Lookup      Searcher
	Cycle       CycleRunner
	Echo        *echo.Echo

	attachmentDir string
	log           zerolog.Logger
}

func NewServer(store *db.Store, authService *auth.Service, lookup Searcher, cycle CycleRunner, cfg *config.Config, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{
		Store:         store,
		AuthService:   authService,
		Lookup:        lookup,
		Cycle:         cycle,
		Echo:          e,
		attachmentDir: cfg.AttachmentDir,
		log:           log,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api")
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	api.GET("/competitions", s.handleListCompetitions)
	api.GET("/scraped-competitions", s.handleListScraped)
	api.POST("/search-competition", s.handleSearchCompetition)

	// Mutations require a logged-in user.
	protected := api.Group("")
	protected.Use(auth.Middleware)
	protected.POST("/competitions", s.handleCreateCompetition)
	protected.PUT("/competitions/:id", s.handleUpdateCompetition)
	protected.DELETE("/competitions/:id", s.handleDeleteCompetition)
	protected.POST("/scrape-and-save", s.handleScrapeAndSave)
	protected.POST("/scrape-cycle", s.handleTriggerCycle)
	protected.POST("/competitions/:id/attachments", s.handleUploadAttachment)
	protected.GET("/competitions/:id/attachments", s.handleListAttachments)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email and a password of at least 8 characters are required"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
