package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository"
)

const (
	MaxPaletteNameLength = 100
	MaxDescriptionLength = 500
)

// PaletteService implements palette CRUD and slot editing.
//
// Mutations go through repository.PaletteRepository.MutatePalette, so the
// ownership check, the validation against the current row and the write
// all happen in one transaction.
type PaletteService struct {
	palettes repository.PaletteRepository
	users    repository.UserRepository
	catalog  Catalog
	views    *viewBuilder
	now      Clock
	logger   *slog.Logger
}

// NewPaletteService creates a PaletteService.
func NewPaletteService(store repository.Store, catalog Catalog, logger *slog.Logger) *PaletteService {
	return &PaletteService{
		palettes: store,
		users:    store,
		catalog:  catalog,
		views:    &viewBuilder{users: store, likes: store, catalog: catalog, logger: logger},
		now:      utcNow,
		logger:   logger,
	}
}

func validateName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "palette name is required")
	}
	if utf8.RuneCountInString(name) > MaxPaletteNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("palette name must be %d characters or less", MaxPaletteNameLength))
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}

func validateMaxSlots(n int) error {
	if n < model.MinSlots || n > model.MaxSlots {
		return apperror.ValidationFailed("maxSlots",
			fmt.Sprintf("maxSlots must be between %d and %d", model.MinSlots, model.MaxSlots))
	}
	return nil
}

// ownedBy returns a mutation guard rejecting callers other than the owner.
func ownedBy(caller model.Identity, p *model.Palette) error {
	if p.OwnerID != caller.Subject {
		return apperror.Forbidden("you do not own this palette")
	}
	return nil
}

// Create makes an empty unpublished palette owned by the caller.
func (s *PaletteService) Create(ctx context.Context, caller model.Identity, name, description string) (string, error) {
	if caller.Anonymous() {
		return "", apperror.Unauthenticated()
	}

	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := validateDescription(description); err != nil {
		return "", err
	}

	p := &model.Palette{
		OwnerID:     caller.Subject,
		Name:        name,
		Description: description,
		Slots:       model.EmptySlots(model.MinSlots),
		MaxSlots:    model.MinSlots,
		SlotSchema:  model.SlotSchemaSlugs,
	}
	if err := s.palettes.CreatePalette(ctx, p); err != nil {
		s.logger.Error("failed to create palette",
			slog.String("owner", caller.Subject),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("service/palette: creating palette: %w", err)
	}

	s.logger.Info("palette created",
		slog.String("id", p.ID),
		slog.String("owner", p.OwnerID),
	)
	return p.ID, nil
}

// GetByID returns the annotated palette, or nil when id does not exist.
func (s *PaletteService) GetByID(ctx context.Context, id string) (*model.PaletteView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	p, err := s.palettes.GetPaletteByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/palette: getting %s: %w", id, err)
	}

	v, err := s.views.view(ctx, *p)
	if err != nil {
		return nil, fmt.Errorf("service/palette: %w", err)
	}
	return &v, nil
}

// GetByOwner returns the caller's palettes, newest first. Anonymous
// callers get an empty list.
func (s *PaletteService) GetByOwner(ctx context.Context, caller model.Identity) ([]model.PaletteView, error) {
	if caller.Anonymous() {
		return []model.PaletteView{}, nil
	}
	palettes, err := s.palettes.ListPalettesByOwner(ctx, caller.Subject)
	if err != nil {
		return nil, fmt.Errorf("service/palette: listing palettes of %s: %w", caller.Subject, err)
	}
	return s.annotate(ctx, palettes)
}

// GetPublished returns every published palette, newest first.
func (s *PaletteService) GetPublished(ctx context.Context) ([]model.PaletteView, error) {
	palettes, err := s.palettes.ListPublishedPalettes(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/palette: listing published palettes: %w", err)
	}
	return s.annotate(ctx, palettes)
}

func (s *PaletteService) annotate(ctx context.Context, palettes []model.Palette) ([]model.PaletteView, error) {
	views, err := s.views.views(ctx, palettes)
	if err != nil {
		return nil, fmt.Errorf("service/palette: %w", err)
	}
	return views, nil
}

// Update applies a partial patch. maxSlots may grow or stay the same but
// never shrink; slots are re-fitted to the resulting size.
func (s *PaletteService) Update(ctx context.Context, caller model.Identity, id string, upd model.PaletteUpdate) (string, error) {
	if caller.Anonymous() {
		return "", apperror.Unauthenticated()
	}

	name := strings.TrimSpace(deref(upd.Name))
	description := strings.TrimSpace(deref(upd.Description))

	_, err := s.palettes.MutatePalette(ctx, id, func(p *model.Palette) error {
		if err := ownedBy(caller, p); err != nil {
			return err
		}
		if upd.Name != nil {
			if err := validateName(name); err != nil {
				return err
			}
		}
		if upd.Description != nil {
			if err := validateDescription(description); err != nil {
				return err
			}
		}
		if upd.MaxSlots != nil {
			if err := validateMaxSlots(*upd.MaxSlots); err != nil {
				return err
			}
			if *upd.MaxSlots < p.MaxSlots {
				return apperror.ValidationFailed("maxSlots",
					fmt.Sprintf("maxSlots cannot shrink below %d", p.MaxSlots))
			}
		}

		if upd.Name != nil {
			p.Name = name
		}
		if upd.Description != nil {
			p.Description = description
		}
		if upd.MaxSlots != nil {
			p.MaxSlots = *upd.MaxSlots
		}
		normalize(s.catalog, p)
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return "", s.mutationError("updating", id, err)
	}
	return id, nil
}

// SetSlot writes slug into position index, or clears it when slug is "".
// Other positions are left as they are.
func (s *PaletteService) SetSlot(ctx context.Context, caller model.Identity, id string, index int, slug string) (string, error) {
	if caller.Anonymous() {
		return "", apperror.Unauthenticated()
	}
	slug = strings.TrimSpace(slug)

	_, err := s.palettes.MutatePalette(ctx, id, func(p *model.Palette) error {
		if err := ownedBy(caller, p); err != nil {
			return err
		}
		if slug != "" && !s.catalog.Has(slug) {
			return apperror.ValidationFailed("slug", fmt.Sprintf("unknown block %q", slug))
		}
		if index < 0 || index >= p.MaxSlots {
			return apperror.ValidationFailed("slotIndex",
				fmt.Sprintf("slot index must be between 0 and %d", p.MaxSlots-1))
		}
		normalize(s.catalog, p)
		p.Slots[index] = model.Slot(slug)
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return "", s.mutationError("setting slot of", id, err)
	}
	return id, nil
}

// ExpandSlots grows the palette to newMax slots, padding with empty ones.
// newMax must be within bounds and strictly greater than the current size.
func (s *PaletteService) ExpandSlots(ctx context.Context, caller model.Identity, id string, newMax int) (string, error) {
	if caller.Anonymous() {
		return "", apperror.Unauthenticated()
	}

	_, err := s.palettes.MutatePalette(ctx, id, func(p *model.Palette) error {
		if err := ownedBy(caller, p); err != nil {
			return err
		}
		if err := validateMaxSlots(newMax); err != nil {
			return err
		}
		if newMax <= p.MaxSlots {
			return apperror.ValidationFailed("maxSlots",
				fmt.Sprintf("maxSlots must be greater than %d", p.MaxSlots))
		}
		p.MaxSlots = newMax
		normalize(s.catalog, p)
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return "", s.mutationError("expanding", id, err)
	}
	return id, nil
}

// TogglePublish flips the published flag and returns the new value.
func (s *PaletteService) TogglePublish(ctx context.Context, caller model.Identity, id string) (bool, error) {
	if caller.Anonymous() {
		return false, apperror.Unauthenticated()
	}

	p, err := s.palettes.MutatePalette(ctx, id, func(p *model.Palette) error {
		if err := ownedBy(caller, p); err != nil {
			return err
		}
		p.IsPublished = !p.IsPublished
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return false, s.mutationError("publishing", id, err)
	}

	s.logger.Info("palette publish toggled",
		slog.String("id", id),
		slog.Bool("published", p.IsPublished),
	)
	return p.IsPublished, nil
}

// Remove deletes the palette. Likes pointing at it stay behind and are
// skipped by readers.
func (s *PaletteService) Remove(ctx context.Context, caller model.Identity, id string) (string, error) {
	if caller.Anonymous() {
		return "", apperror.Unauthenticated()
	}

	err := s.palettes.DeletePalette(ctx, id, func(p *model.Palette) error {
		return ownedBy(caller, p)
	})
	if err != nil {
		return "", s.mutationError("removing", id, err)
	}

	s.logger.Info("palette removed", slog.String("id", id))
	return id, nil
}

// PublicProfile returns a user's public profile with their published
// palettes.
func (s *PaletteService) PublicProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	u, err := s.users.GetUserByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if isAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/palette: getting user %s: %w", userID, err)
	}

	palettes, err := s.palettes.ListPublishedPalettesByOwner(ctx, u.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("service/palette: listing published palettes of %s: %w", u.ID, err)
	}
	views, err := s.annotate(ctx, palettes)
	if err != nil {
		return nil, err
	}

	return &model.UserProfile{
		PublicProfile: *u.Profile(),
		Palettes:      views,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mutationError passes apperrors through and wraps everything else.
func (s *PaletteService) mutationError(action, id string, err error) error {
	if isAppError(err) {
		return err
	}
	s.logger.Error("palette mutation failed",
		slog.String("action", action),
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("service/palette: %s %s: %w", action, id, err)
}
