package service

import (
	"context"
	courtserrors "courtbook/internal/courts/errors"
	"courtbook/internal/courts/repository"
	"courtbook/internal/courts/validator"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/model"
	"courtbook/pkg/sanitizer"
	"errors"
	"sync"

	"github.com/google/uuid"
)

type CourtService interface {
	Create(ctx context.Context, actor model.Actor, court *model.Court) error
	GetByID(ctx context.Context, id string) (*model.Court, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Court, int64, error)
	Update(ctx context.Context, actor model.Actor, id string, updates *model.CourtUpdate) (*model.Court, error)
}

type courtService struct {
	repo      repository.CourtRepository
	validator *validator.CourtValidator
	cfg       *config.Config
}

func NewCourtService(
	repo repository.CourtRepository,
	validator *validator.CourtValidator,
	cfg *config.Config,
) CourtService {
	return &courtService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *courtService) Create(ctx context.Context, actor model.Actor, court *model.Court) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can create courts")
	}

	s.sanitize(court)
	if err := s.validator.Validate(court); err != nil {
		s.cfg.Log.Warn("Court validation failed",
			"name", court.Name,
			"error", err,
		)
		return apperrors.Validation("Court validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	now := s.cfg.Clock()
	court.ID = uuid.New().String()
	court.NameKey = sanitizer.NormalizeNameForComparison(court.Name)
	court.CreatedAt = now
	court.UpdatedAt = now

	if err := s.repo.Create(ctx, court); err != nil {
		if errors.Is(err, courtserrors.ErrDuplicateName) {
			return apperrors.Conflict("A court named " + court.Name + " already exists")
		}
		s.cfg.Log.Error("Failed to create court",
			"name", court.Name,
			"error", err,
		)
		return apperrors.Internal("Failed to create court", err)
	}

	s.cfg.Log.Info("Court created successfully",
		"id", court.ID,
		"name", court.Name,
		"category", court.Category,
		"hourly_price", court.HourlyPrice,
		"actor", actor.UserID,
	)
	return nil
}

func (s *courtService) GetByID(ctx context.Context, id string) (*model.Court, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Court ID cannot be empty")
	}

	court, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, courtserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Court", id)
		}
		s.cfg.Log.Error("Failed to get court by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve court", err)
	}
	return court, nil
}

func (s *courtService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Court, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var courts []*model.Court
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count courts", "error", err)
			errCount = apperrors.Internal("Failed to count courts", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		courts, err = s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all courts",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve courts", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return courts, count, nil
}

// Update edits a court in place. Existing slots keep the price they were
// created with.
func (s *courtService) Update(ctx context.Context, actor model.Actor, id string, updates *model.CourtUpdate) (*model.Court, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can edit courts")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.sanitizeUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Court update validation failed",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Validation("Court update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	merged := mergeCourtUpdates(existing, updates)
	if err := s.validator.Validate(merged); err != nil {
		return nil, apperrors.Validation("Court validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	merged.NameKey = sanitizer.NormalizeNameForComparison(merged.Name)
	merged.UpdatedAt = s.cfg.Clock()

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, courtserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Court", id)
		}
		if errors.Is(err, courtserrors.ErrDuplicateName) {
			return nil, apperrors.Conflict("A court named " + merged.Name + " already exists")
		}
		s.cfg.Log.Error("Failed to update court",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update court", err)
	}

	s.cfg.Log.Info("Court updated successfully",
		"id", id,
		"hourly_price", merged.HourlyPrice,
		"actor", actor.UserID,
	)
	return merged, nil
}

func (s *courtService) sanitize(court *model.Court) {
	court.Name = sanitizer.NormalizeName(court.Name)
	court.Category = model.CourtCategory(sanitizer.NormalizeCategory(string(court.Category)))
	court.Features = sanitizer.NormalizeFeatures(court.Features)
	court.Description = sanitizer.TrimAndNormalize(court.Description)
}

func (s *courtService) sanitizeUpdate(updates *model.CourtUpdate) {
	updates.Name = sanitizer.NormalizeName(updates.Name)
	updates.Category = model.CourtCategory(sanitizer.NormalizeCategory(string(updates.Category)))
	if updates.Features != nil {
		features := sanitizer.NormalizeFeatures(*updates.Features)
		updates.Features = &features
	}
	if updates.Description != nil {
		desc := sanitizer.TrimAndNormalize(*updates.Description)
		updates.Description = &desc
	}
}

func mergeCourtUpdates(existing *model.Court, updates *model.CourtUpdate) *model.Court {
	merged := existing.Clone()
	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Category != "" {
		merged.Category = updates.Category
	}
	if updates.HourlyPrice != nil {
		merged.HourlyPrice = *updates.HourlyPrice
	}
	if updates.Features != nil {
		merged.Features = *updates.Features
	}
	if updates.Capacity != nil {
		merged.Capacity = *updates.Capacity
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	return merged
}
