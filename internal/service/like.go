package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository"
)

// LikeService records which users like which palettes.
type LikeService struct {
	likes    repository.LikeRepository
	palettes repository.PaletteRepository
	views    *viewBuilder
	logger   *slog.Logger
}

// NewLikeService creates a LikeService.
func NewLikeService(store repository.Store, catalog Catalog, logger *slog.Logger) *LikeService {
	return &LikeService{
		likes:    store,
		palettes: store,
		views:    &viewBuilder{users: store, likes: store, catalog: catalog, logger: logger},
		logger:   logger,
	}
}

// IsLiked reports whether the caller likes the palette. Anonymous callers
// never do.
func (s *LikeService) IsLiked(ctx context.Context, caller model.Identity, paletteID string) (bool, error) {
	if caller.Anonymous() {
		return false, nil
	}
	liked, err := s.likes.IsLiked(ctx, caller.Subject, paletteID)
	if err != nil {
		return false, fmt.Errorf("service/like: %w", err)
	}
	return liked, nil
}

// Toggle likes the palette, or unlikes it if the caller already did, and
// returns the new state.
func (s *LikeService) Toggle(ctx context.Context, caller model.Identity, paletteID string) (bool, error) {
	if caller.Anonymous() {
		return false, apperror.Unauthenticated()
	}
	liked, err := s.likes.ToggleLike(ctx, caller.Subject, paletteID)
	if err != nil {
		if isAppError(err) {
			return false, err
		}
		return false, fmt.Errorf("service/like: toggling %s: %w", paletteID, err)
	}

	s.logger.Debug("like toggled",
		slog.String("paletteID", paletteID),
		slog.String("user", caller.Subject),
		slog.Bool("liked", liked),
	)
	return liked, nil
}

// LikesCount returns the number of likes on a palette.
func (s *LikeService) LikesCount(ctx context.Context, paletteID string) (int, error) {
	n, err := s.likes.CountLikes(ctx, paletteID)
	if err != nil {
		return 0, fmt.Errorf("service/like: %w", err)
	}
	return n, nil
}

// UserLikedPalettes returns the palettes the caller liked, most recent
// like first. Palettes deleted or unpublished since are skipped.
func (s *LikeService) UserLikedPalettes(ctx context.Context, caller model.Identity) ([]model.PaletteView, error) {
	if caller.Anonymous() {
		return []model.PaletteView{}, nil
	}

	ids, err := s.likes.ListLikedPaletteIDs(ctx, caller.Subject)
	if err != nil {
		return nil, fmt.Errorf("service/like: %w", err)
	}

	palettes := make([]model.Palette, 0, len(ids))
	for _, id := range ids {
		p, err := s.palettes.GetPaletteByID(ctx, id)
		switch {
		case isNotFound(err):
			continue
		case err != nil:
			return nil, fmt.Errorf("service/like: loading liked palette %s: %w", id, err)
		case !p.IsPublished:
			continue
		}
		palettes = append(palettes, *p)
	}

	views, err := s.views.views(ctx, palettes)
	if err != nil {
		return nil, fmt.Errorf("service/like: %w", err)
	}
	return views, nil
}
