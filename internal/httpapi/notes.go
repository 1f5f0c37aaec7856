package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

type addNoteRequest struct {
	Text     string `json:"text"`
	Category string `json:"category" validate:"omitempty,notecategory"`
	Starred  bool   `json:"starred"`
}

type editNoteRequest struct {
	Text     string `json:"text"`
	Category string `json:"category" validate:"omitempty,notecategory"`
	Starred  bool   `json:"starred"`
}

func (s *Server) listNotes(c echo.Context) error {
	company, err := s.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company.Notes)
}

// addNote stores a note. Blank text is a no-op answered with 204.
func (s *Server) addNote(c echo.Context) error {
	var req addNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := s.svc.AddNote(c.Request().Context(), c.Param("id"), req.Text, req.Category, req.Starred)
	if errors.Is(err, types.ErrEmptyNote) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (s *Server) editNote(c echo.Context) error {
	var req editNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	err := s.svc.EditNote(c.Request().Context(), c.Param("id"), c.Param("note_id"), types.NoteEdit{
		Text:     req.Text,
		Category: req.Category,
		Starred:  req.Starred,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) toggleStar(c echo.Context) error {
	starred, err := s.svc.ToggleStar(c.Request().Context(), c.Param("id"), c.Param("note_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"starred": starred})
}

func (s *Server) deleteNote(c echo.Context) error {
	if err := s.svc.DeleteNote(c.Request().Context(), c.Param("id"), c.Param("note_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
