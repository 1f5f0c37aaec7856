// Package httpapi serves the minicrm JSON API over echo.
//
// Every /api route except login needs a bearer token. Deleting companies
// and importing need the Admin or Manager role.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/minicrm/internal/auth"
	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/internal/logger"
	"github.com/mesh-intelligence/minicrm/internal/metrics"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 10 * time.Second

// MaxImportBytes caps the size of an uploaded CSV.
const MaxImportBytes = 10 << 20

// Server wires the CRM service to HTTP routes.
type Server struct {
	echo    *echo.Echo
	svc     *crm.Service
	auth    *auth.Manager
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New builds the echo instance with middleware and routes.
func New(svc *crm.Service, am *auth.Manager, log *zap.Logger, m *metrics.Metrics) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{echo: echo.New(), svc: svc, auth: am, log: log, metrics: m}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = s.handleError

	e.Use(echomiddleware.Recover())
	e.Use(logger.Middleware(log))
	if m != nil {
		e.Use(m.Middleware())
	}

	s.routes()
	return s
}

// Handler returns the HTTP handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	e.POST("/api/login", s.login)

	api := e.Group("/api", s.auth.Middleware())
	managers := auth.RequireRole(types.RoleAdmin, types.RoleManager)

	api.GET("/catalogs", s.catalogs)

	api.GET("/companies", s.listCompanies)
	api.POST("/companies", s.createCompany)
	api.POST("/companies/mass_delete", s.massDelete, managers)
	api.GET("/companies/:id", s.getCompany)
	api.PATCH("/companies/:id", s.updateCompany)
	api.DELETE("/companies/:id", s.deleteCompany, managers)

	api.GET("/companies/:id/notes", s.listNotes)
	api.POST("/companies/:id/notes", s.addNote)
	api.PUT("/companies/:id/notes/:note_id", s.editNote)
	api.POST("/companies/:id/notes/:note_id/star", s.toggleStar)
	api.DELETE("/companies/:id/notes/:note_id", s.deleteNote)

	api.POST("/update_status", s.updateStatus)
	api.GET("/check_duplicate", s.checkDuplicate)
	api.GET("/boards/:board", s.board)
	api.POST("/import", s.importCSV, managers)

	api.GET("/preferences", s.getPreferences)
	api.PUT("/preferences", s.putPreferences)
	api.GET("/sources/recent", s.recentSources)
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("HTTP server listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.log.Info("HTTP server shutting down")
		return s.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// errorResponse is the JSON body of every error.
type errorResponse struct {
	Error      string `json:"error"`
	ExistingID string `json:"existing_id,omitempty"`
	Field      string `json:"field,omitempty"`
	Link       string `json:"link,omitempty"`
}

// handleError maps domain errors onto status codes.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("request failed", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.FromEcho(c).Error("writing error response", zap.Error(err))
	}
}

func statusFor(err error) (int, errorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, errorResponse{Error: msg}
	}

	var dup *crm.DuplicateError
	if errors.As(err, &dup) {
		return http.StatusConflict, errorResponse{
			Error:      "possible duplicate",
			ExistingID: dup.ExistingID,
			Field:      dup.Field,
			Link:       crm.LinkPrefix + dup.ExistingID,
		}
	}

	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, types.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: err.Error()}
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: err.Error()}
	case errors.Is(err, types.ErrUnknownBoard), crm.IsUserError(err):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, errorResponse{Error: verrs.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	token, u, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		logger.FromEcho(c).Info("login failed", zap.String("username", req.Username))
		return err
	}
	logger.FromEcho(c).Info("login", zap.String("username", u.Username), zap.String("role", u.Role))
	return c.JSON(http.StatusOK, loginResponse{Token: token, Username: u.Username, Role: u.Role})
}

func (s *Server) catalogs(c echo.Context) error {
	typeList, owners := s.svc.Catalogs()
	return c.JSON(http.StatusOK, echo.Map{
		"types":            typeList,
		"owners":           owners,
		"statuses":         types.AllStatuses(),
		"lead_statuses":    types.LeadStatuses(),
		"partner_statuses": types.PartnerStatuses(),
		"note_categories":  types.NoteCategories(),
	})
}
