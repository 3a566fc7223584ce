package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository"
)

// Catalog is the part of the block catalog the services need.
type Catalog interface {
	Has(slug string) bool
	ResolveLegacy(id string) (slug string, ok bool)
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

func isAppError(err error) bool {
	return apperror.As(err) != nil
}

// resolveSlots returns slots with every legacy ref replaced by the slug it
// resolves to, or emptied when it dangles, and whether any position
// changed. Slug values are returned as stored, known to the catalog or not.
// Slugs-schema slots are never classified.
func resolveSlots(cat Catalog, slots model.Slots, schema int) (model.Slots, bool) {
	out := make(model.Slots, len(slots))
	copy(out, slots)
	if schema >= model.SlotSchemaSlugs {
		return out, false
	}

	changed := false
	for i, s := range slots {
		ref := model.ClassifySlot(s, schema)
		if ref.Kind != model.SlotLegacyRef {
			continue
		}
		slug, _ := cat.ResolveLegacy(ref.Value)
		out[i] = model.Slot(slug)
		if out[i] != s {
			changed = true
		}
	}
	return out, changed
}

// allKnown reports whether every non-empty slot is a catalog slug.
func allKnown(cat Catalog, slots model.Slots) bool {
	for _, s := range slots {
		if !s.Empty() && !cat.Has(string(s)) {
			return false
		}
	}
	return true
}

// normalize brings p to exactly MaxSlots positions with its legacy refs
// resolved. The slugs schema is stamped only once every slot holds a
// catalog slug; a legacy palette still holding stale slugs stays legacy
// so the migration can clear them.
func normalize(cat Catalog, p *model.Palette) {
	slots, _ := resolveSlots(cat, p.Slots, p.SlotSchema)
	p.Slots = slots.Fit(p.MaxSlots)
	if allKnown(cat, p.Slots) {
		p.SlotSchema = model.SlotSchemaSlugs
	}
}

// viewBuilder annotates palettes for readers with resolved slots, the
// owner's public profile and the like count.
type viewBuilder struct {
	users   repository.UserRepository
	likes   repository.LikeRepository
	catalog Catalog
	logger  *slog.Logger
}

func (b *viewBuilder) view(ctx context.Context, p model.Palette) (model.PaletteView, error) {
	views, err := b.views(ctx, []model.Palette{p})
	if err != nil {
		return model.PaletteView{}, err
	}
	return views[0], nil
}

// views annotates a listing. Owner profiles are looked up once per owner.
// A missing owner leaves Owner nil rather than failing the read.
func (b *viewBuilder) views(ctx context.Context, palettes []model.Palette) ([]model.PaletteView, error) {
	owners := make(map[string]*model.PublicProfile)
	out := make([]model.PaletteView, 0, len(palettes))

	for _, p := range palettes {
		owner, seen := owners[p.OwnerID]
		if !seen {
			u, err := b.users.GetUserByExternalID(ctx, p.OwnerID)
			switch {
			case err == nil:
				owner = u.Profile()
			case isNotFound(err):
				b.logger.Debug("palette owner has no user record",
					slog.String("paletteID", p.ID),
					slog.String("ownerID", p.OwnerID),
				)
			default:
				return nil, fmt.Errorf("loading owner of palette %s: %w", p.ID, err)
			}
			owners[p.OwnerID] = owner
		}

		count, err := b.likes.CountLikes(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("counting likes of palette %s: %w", p.ID, err)
		}

		slots, _ := resolveSlots(b.catalog, p.Slots, p.SlotSchema)
		p.Slots = slots.Fit(p.MaxSlots)
		out = append(out, model.PaletteView{
			Palette:    p,
			LikesCount: count,
			Owner:      owner,
		})
	}
	return out, nil
}
