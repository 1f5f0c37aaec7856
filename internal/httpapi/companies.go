package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// listResponse is the list view with the direction each column header
// should request next.
type listResponse struct {
	crm.ListResult
	NextDirection map[string]string `json:"next_dir"`
}

var sortFields = []string{
	crm.SortName, crm.SortType, crm.SortOwner, crm.SortStatus,
	crm.SortEmail, crm.SortURL, crm.SortCreated, crm.SortUpdated,
}

func (s *Server) listCompanies(c echo.Context) error {
	var q crm.ListQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed query")
	}
	res, err := s.svc.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	next := make(map[string]string, len(sortFields))
	for _, f := range sortFields {
		next[f] = crm.NextDirection(res.Sort, res.Direction, f)
	}
	return c.JSON(http.StatusOK, listResponse{ListResult: res, NextDirection: next})
}

func (s *Server) createCompany(c echo.Context) error {
	var in crm.CreateInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id, err := s.svc.Create(ctx, in)
	if err != nil {
		return err
	}
	created, err := s.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getCompany(c echo.Context) error {
	company, err := s.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

func (s *Server) updateCompany(c echo.Context) error {
	var u types.CompanyUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := s.svc.Update(ctx, id, u); err != nil {
		return err
	}
	updated, err := s.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) deleteCompany(c echo.Context) error {
	n, err := s.svc.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteResponse{Deleted: n})
}

type massDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (s *Server) massDelete(c echo.Context) error {
	var req massDeleteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := s.svc.DeleteMany(c.Request().Context(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteResponse{Deleted: n})
}

type updateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// updateStatusResponse mirrors what the board's drag-and-drop script
// expects: ok, or ok=false with a message.
type updateStatusResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) updateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, updateStatusResponse{Error: "malformed request body"})
	}
	err := s.svc.UpdateStatus(c.Request().Context(), req.ID, req.Status)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, updateStatusResponse{OK: true})
	case errors.Is(err, types.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, updateStatusResponse{Error: "Invalid status"})
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInvalidID):
		return c.JSON(http.StatusNotFound, updateStatusResponse{Error: "Company not found"})
	default:
		return err
	}
}

func (s *Server) checkDuplicate(c echo.Context) error {
	m, err := s.svc.CheckDuplicate(c.Request().Context(), c.QueryParam("name"), c.QueryParam("url"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) board(c echo.Context) error {
	board, err := types.ParseBoard(c.Param("board"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	view, err := s.svc.Board(c.Request().Context(), board)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// importCSV accepts a multipart "file" field or a raw CSV body. The
// skip_dups query parameter defaults to true.
func (s *Server) importCSV(c echo.Context) error {
	skip := true
	if v := c.QueryParam("skip_dups"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "skip_dups must be a boolean")
		}
		skip = b
	}

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, MaxImportBytes)

	ctx := c.Request().Context()
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		res, err := s.svc.Import(ctx, f, skip)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, http.ErrNotMultipart):
		res, err := s.svc.Import(ctx, c.Request().Body, skip)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, http.ErrMissingFile):
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "malformed upload")
	}
}

func (s *Server) getPreferences(c echo.Context) error {
	p, err := s.svc.Preferences(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) putPreferences(c echo.Context) error {
	var p types.Preferences
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	ctx := c.Request().Context()
	if err := s.svc.SavePreferences(ctx, p); err != nil {
		return err
	}
	saved, err := s.svc.Preferences(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) recentSources(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	sources, err := s.svc.RecentSources(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"sources": sources})
}
