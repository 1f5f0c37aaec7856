package crm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/minicrm/internal/logger"
	"github.com/mesh-intelligence/minicrm/internal/metrics"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// LinkPrefix is prepended to a company ID to form its detail link.
const LinkPrefix = "/company/"

// CreateInput is the payload of an add-company request. Empty Type and
// Owner are filled from preferences; an empty Status becomes New.
type CreateInput struct {
	Type         string             `json:"type"`
	Owner        string             `json:"owner"`
	Name         string             `json:"name" validate:"required_without=URL"`
	URL          string             `json:"url"`
	LinkedIn     string             `json:"linkedin"`
	Email        string             `json:"email" validate:"omitempty,email"`
	ContactedVia types.ContactedVia `json:"contacted_via"`
	Status       string             `json:"status" validate:"omitempty,crmstatus"`
	Sources      types.Sources      `json:"sources"`
	Note         string             `json:"note"`
	NoteCategory string             `json:"note_category"`
}

// DuplicateMatch is the answer to an interactive duplicate check.
type DuplicateMatch struct {
	Duplicate bool   `json:"duplicate"`
	ID        string `json:"id,omitempty"`
	Field     string `json:"field,omitempty"`
	Link      string `json:"link,omitempty"`
}

// Service exposes the lead-tracking operations over a Store.
type Service struct {
	store   types.Store
	cfg     types.Config
	log     *zap.Logger
	metrics *metrics.Metrics

	// createMu serializes check-then-create so concurrent adds of the same
	// name cannot both pass the duplicate scan.
	createMu sync.Mutex
}

// NewService returns a Service over an attached store. cfg supplies the
// type and owner catalogs. A nil log discards output; a nil m records
// nothing.
func NewService(store types.Store, cfg types.Config, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cfg: cfg, log: log, metrics: m}
}

// logger prefers the request logger carried by ctx.
func (s *Service) logger(ctx context.Context) *zap.Logger {
	if log, ok := logger.Lookup(ctx); ok {
		return log
	}
	return s.log
}

// Create adds a company after a duplicate scan. A match returns a
// *DuplicateError and writes nothing. On success the chosen type, owner,
// and sources are remembered as preferences.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	log := s.logger(ctx)

	prefs, err := s.store.Preferences().Load()
	if err != nil {
		log.Error("loading preferences", zap.Error(err))
		return "", err
	}

	c := &types.Company{
		Type:         s.pickType(in.Type, prefs.LastType),
		Owner:        s.pickOwner(in.Owner, prefs.LastOwner),
		Name:         strings.TrimSpace(in.Name),
		URL:          strings.TrimSpace(in.URL),
		LinkedIn:     strings.TrimSpace(in.LinkedIn),
		Email:        strings.TrimSpace(in.Email),
		ContactedVia: in.ContactedVia,
		Status:       strings.TrimSpace(in.Status),
		Sources:      types.NewSources(in.Sources...),
	}
	if c.Status == "" {
		c.Status = types.DefaultStatus
	}
	if !types.IsValidStatus(c.Status) {
		return "", types.ErrInvalidStatus
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		c.Notes = []types.Note{{Text: note, Category: in.NoteCategory}}
	}

	id, err := s.createUnique(ctx, c)
	if err != nil {
		return "", err
	}

	prefs.LastType = c.Type
	prefs.LastOwner = c.Owner
	prefs.LastSources = c.Sources
	if err := s.store.Preferences().Save(prefs); err != nil {
		log.Warn("saving preferences after create", zap.String("company_id", id), zap.Error(err))
	}
	return id, nil
}

// createUnique runs the duplicate scan and the insert under createMu.
func (s *Service) createUnique(ctx context.Context, c *types.Company) (string, error) {
	log := s.logger(ctx)

	s.createMu.Lock()
	defer s.createMu.Unlock()

	existing, err := s.store.Companies().List()
	if err != nil {
		log.Error("listing companies", zap.Error(err))
		return "", err
	}
	if m := FindDuplicate(candidatesOf(existing), c.Name, c.URL); m != nil {
		s.metrics.DuplicateDetected(m.Field)
		log.Info("duplicate company rejected",
			zap.String("name", c.Name),
			zap.String("existing_id", m.ID),
			zap.String("field", m.Field),
		)
		return "", &DuplicateError{ExistingID: m.ID, Field: m.Field}
	}

	id, err := s.store.Companies().Create(c)
	if err != nil {
		if !IsUserError(err) {
			log.Error("creating company", zap.Error(err))
		}
		return "", err
	}
	s.metrics.CompanyCreated()
	log.Info("company created", zap.String("company_id", id), zap.String("name", c.Name))
	return id, nil
}

// Get returns one company with notes and sources.
func (s *Service) Get(ctx context.Context, id string) (*types.Company, error) {
	return s.store.Companies().Get(id)
}

// List returns the filtered, sorted list view.
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	companies, err := s.store.Companies().List()
	if err != nil {
		s.logger(ctx).Error("listing companies", zap.Error(err))
		return ListResult{}, err
	}
	return FilterAndSort(companies, q), nil
}

// Board returns the kanban projection of board.
func (s *Service) Board(ctx context.Context, board types.Board) (BoardView, error) {
	if board != types.BoardLeads && board != types.BoardPartners {
		return BoardView{}, types.ErrUnknownBoard
	}
	companies, err := s.store.Companies().List()
	if err != nil {
		s.logger(ctx).Error("listing companies", zap.Error(err))
		return BoardView{}, err
	}
	return BuildBoard(board, companies), nil
}

// Update applies a partial update. The provided owner, type, and sources
// become the new preferences.
func (s *Service) Update(ctx context.Context, id string, u types.CompanyUpdate) error {
	log := s.logger(ctx)
	if u.Status != nil && !types.IsValidStatus(*u.Status) {
		return types.ErrInvalidStatus
	}
	if err := s.store.Companies().Update(id, u); err != nil {
		if !IsUserError(err) {
			log.Error("updating company", zap.String("company_id", id), zap.Error(err))
		}
		return err
	}
	if u.Status != nil {
		s.metrics.StatusChanged(*u.Status)
	}

	if u.Owner == nil && u.Type == nil && u.Sources == nil {
		return nil
	}
	prefs, err := s.store.Preferences().Load()
	if err != nil {
		log.Warn("loading preferences after update", zap.Error(err))
		return nil
	}
	if u.Owner != nil && *u.Owner != "" {
		prefs.LastOwner = *u.Owner
	}
	if u.Type != nil {
		prefs.LastType = *u.Type
	}
	if u.Sources != nil {
		prefs.LastSources = *u.Sources
	}
	if err := s.store.Preferences().Save(prefs); err != nil {
		log.Warn("saving preferences after update", zap.String("company_id", id), zap.Error(err))
	}
	return nil
}

// UpdateStatus sets the status of one company. This is the board
// drag-and-drop operation; moving between boards is the same call.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	if !types.IsValidStatus(status) {
		return types.ErrInvalidStatus
	}
	if err := s.store.Companies().Update(id, types.CompanyUpdate{Status: &status}); err != nil {
		if !IsUserError(err) {
			s.logger(ctx).Error("updating status", zap.String("company_id", id), zap.Error(err))
		}
		return err
	}
	s.metrics.StatusChanged(status)
	s.logger(ctx).Info("status changed", zap.String("company_id", id), zap.String("status", status))
	return nil
}

// Delete removes one company. Returns ErrNotFound when it does not exist.
func (s *Service) Delete(ctx context.Context, id string) (int, error) {
	n, err := s.store.Companies().Delete(id)
	if err != nil {
		if !IsUserError(err) {
			s.logger(ctx).Error("deleting company", zap.String("company_id", id), zap.Error(err))
		}
		return 0, err
	}
	s.metrics.Deleted(n)
	s.logger(ctx).Info("company deleted", zap.String("company_id", id))
	return n, nil
}

// DeleteMany removes the listed companies and returns how many existed.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	n, err := s.store.Companies().DeleteMany(ids)
	if err != nil {
		s.logger(ctx).Error("deleting companies", zap.Int("requested", len(ids)), zap.Error(err))
		return 0, err
	}
	s.metrics.Deleted(n)
	s.logger(ctx).Info("companies deleted", zap.Int("requested", len(ids)), zap.Int("deleted", n))
	return n, nil
}

// AddNote attaches a note to a company. Blank text returns ErrEmptyNote,
// which callers treat as a no-op.
func (s *Service) AddNote(ctx context.Context, companyID, text, category string, starred bool) (*types.Note, error) {
	n := &types.Note{Text: text, Category: category, Starred: starred}
	if _, err := s.store.Notes().Add(companyID, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ToggleStar flips a note's star and returns the new value.
func (s *Service) ToggleStar(ctx context.Context, companyID, noteID string) (bool, error) {
	return s.store.Notes().ToggleStar(companyID, noteID)
}

// EditNote replaces a note's text, category, and star.
func (s *Service) EditNote(ctx context.Context, companyID, noteID string, e types.NoteEdit) error {
	return s.store.Notes().Edit(companyID, noteID, e)
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, companyID, noteID string) error {
	return s.store.Notes().Delete(companyID, noteID)
}

// CheckDuplicate reports the first existing company matching name or url.
func (s *Service) CheckDuplicate(ctx context.Context, name, url string) (DuplicateMatch, error) {
	existing, err := s.store.Companies().List()
	if err != nil {
		s.logger(ctx).Error("listing companies", zap.Error(err))
		return DuplicateMatch{}, err
	}
	m := FindDuplicate(candidatesOf(existing), name, url)
	if m == nil {
		return DuplicateMatch{}, nil
	}
	return DuplicateMatch{Duplicate: true, ID: m.ID, Field: m.Field, Link: LinkPrefix + m.ID}, nil
}

// Preferences returns the stored add-form defaults.
func (s *Service) Preferences(ctx context.Context) (types.Preferences, error) {
	return s.store.Preferences().Load()
}

// SavePreferences stores p. A non-empty type or owner must be in its
// catalog.
func (s *Service) SavePreferences(ctx context.Context, p types.Preferences) error {
	if p.LastType != "" && !s.cfg.IsValidType(p.LastType) {
		return types.ErrInvalidType
	}
	if p.LastOwner != "" && !s.cfg.IsValidOwner(p.LastOwner) {
		return types.ErrInvalidOwner
	}
	return s.store.Preferences().Save(p)
}

// RecentSources suggests recently used tags. A non-positive limit uses the
// store default.
func (s *Service) RecentSources(ctx context.Context, limit int) ([]string, error) {
	return s.store.Preferences().RecentSources(limit)
}

// Catalogs returns the configured types and owners.
func (s *Service) Catalogs() (typesList, owners []string) {
	return s.cfg.TypeCatalog(), s.cfg.OwnerCatalog()
}

// pickType returns requested if set, else the remembered type when it is
// still in the catalog, else the first catalog entry.
func (s *Service) pickType(requested, remembered string) string {
	if t := strings.TrimSpace(requested); t != "" {
		return t
	}
	if s.cfg.IsValidType(remembered) {
		return remembered
	}
	return s.cfg.TypeCatalog()[0]
}

// pickOwner mirrors pickType for owners.
func (s *Service) pickOwner(requested, remembered string) string {
	if o := strings.TrimSpace(requested); o != "" {
		return o
	}
	if remembered != "" && s.cfg.IsValidOwner(remembered) {
		return remembered
	}
	return s.cfg.OwnerCatalog()[0]
}

// IsUserError reports whether err is caused by the request rather than by
// storage.
func IsUserError(err error) bool {
	for _, target := range []error{
		types.ErrNotFound,
		types.ErrInvalidID,
		types.ErrInvalidData,
		types.ErrInvalidStatus,
		types.ErrInvalidType,
		types.ErrInvalidOwner,
		types.ErrEmptyNote,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var dup *DuplicateError
	return errors.As(err, &dup)
}
