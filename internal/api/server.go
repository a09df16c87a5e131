// Package api exposes the report, export, and contract surfaces over
// HTTP. Handlers depend on narrow interfaces so tests run against fakes
// instead of the live helpdesk.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/made-media/billdesk/internal/auth"
	"github.com/made-media/billdesk/internal/billing"
	"github.com/made-media/billdesk/internal/middleware"
	"github.com/made-media/billdesk/internal/models"
)

// Helpdesk is the slice of the Freshdesk client the handlers consume.
type Helpdesk interface {
	billing.Resolver
	ListTimeEntries(ctx context.Context, start, end time.Time, companyID int64) ([]models.TimeEntry, error)
	ListTickets(ctx context.Context, updatedSince time.Time, companyID int64) ([]models.Ticket, error)
	ClearCache()
}

// ContractStore is the slice of the contract workbook the handlers use.
type ContractStore interface {
	ClientTerms(clientCode string) (*models.ContractTerms, error)
	PeriodRecord(clientCode string, year, month int) (*models.ContractPeriodRecord, error)
	UpsertPeriodRecord(rec models.ContractPeriodRecord) error
}

// Reconciler aggregates a batch of time entries per ticket.
type Reconciler interface {
	AggregateTicketDetails(ctx context.Context, entries []models.TimeEntry) ([]*billing.TicketAggregate, error)
}

// Server bundles the handlers' collaborators.
type Server struct {
	helpdesk     Helpdesk
	contracts    ContractStore
	reconciler   Reconciler
	users        *auth.Registry
	jwtManager   *auth.JWTManager
	renderer     *Renderer
	territories  []string
	secureCookie bool
}

// Options configures a Server.
type Options struct {
	Helpdesk     Helpdesk
	Contracts    ContractStore
	Reconciler   Reconciler
	Users        *auth.Registry
	JWTManager   *auth.JWTManager
	Renderer     *Renderer
	Territories  []string
	SecureCookie bool
}

// NewServer builds the handler bundle.
func NewServer(opts Options) *Server {
	return &Server{
		helpdesk:     opts.Helpdesk,
		contracts:    opts.Contracts,
		reconciler:   opts.Reconciler,
		users:        opts.Users,
		jwtManager:   opts.JWTManager,
		renderer:     opts.Renderer,
		territories:  opts.Territories,
		secureCookie: opts.SecureCookie,
	}
}

// RegisterRoutes mounts every route on the engine.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.Use(middleware.RequestID(), middleware.Metrics())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/login", s.handleLoginPage)
	router.POST("/login", s.handleLogin)
	router.GET("/logout", s.handleLogout)

	authMw := middleware.NewAuthMiddleware(s.jwtManager)

	pages := router.Group("/", authMw.RequireAuth())
	pages.GET("/", s.handleReportPage)

	api := router.Group("/api", authMw.RequireAuth())
	api.GET("/report", s.handleReport)
	api.GET("/tickets", s.handleTickets)

	admin := api.Group("", authMw.RequireAdmin())
	admin.GET("/report/export.csv", s.handleExportCSV)
	admin.POST("/contracts/rollover", s.handleRolloverUpsert)
	admin.POST("/cache/clear", s.handleCacheClear)
}

// handleCacheClear drops every cached helpdesk response so the next
// report refetches live data.
func (s *Server) handleCacheClear(c *gin.Context) {
	s.helpdesk.ClearCache()
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
