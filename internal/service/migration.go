package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository"
)

// MigrationResult reports a slot migration run.
type MigrationResult struct {
	MigratedCount int `json:"migratedCount"`
}

// MigrationService rewrites palettes still stored under the legacy slot
// schema to slug-only slots.
type MigrationService struct {
	palettes repository.PaletteRepository
	catalog  Catalog
	now      Clock
	logger   *slog.Logger
}

// NewMigrationService creates a MigrationService.
func NewMigrationService(palettes repository.PaletteRepository, catalog Catalog, logger *slog.Logger) *MigrationService {
	return &MigrationService{
		palettes: palettes,
		catalog:  catalog,
		now:      utcNow,
		logger:   logger,
	}
}

// MigrateAll converts every legacy-schema palette. Afterwards each slot
// holds a catalog slug or nothing and every palette has exactly MaxSlots
// positions. Palettes whose slots change are counted and get a new UpdatedAt; the rest are only stamped
// with the current schema. Each palette commits on its own, so an
// interrupted run is recovered by running again. A run with nothing left
// to convert returns zero.
func (s *MigrationService) MigrateAll(ctx context.Context) (*MigrationResult, error) {
	legacy, err := s.palettes.ListPalettesBySlotSchema(ctx, model.SlotSchemaLegacy)
	if err != nil {
		return nil, fmt.Errorf("service/migration: listing legacy palettes: %w", err)
	}

	result := &MigrationResult{}
	for _, candidate := range legacy {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		changed := false
		_, err := s.palettes.MutatePalette(ctx, candidate.ID, func(p *model.Palette) error {
			if p.SlotSchema >= model.SlotSchemaSlugs {
				return nil
			}
			p.Slots, changed = migrateSlots(s.catalog, p.Slots, p.SlotSchema, p.MaxSlots)
			p.SlotSchema = model.SlotSchemaSlugs
			if changed {
				p.UpdatedAt = s.now()
			}
			return nil
		})
		switch {
		case isNotFound(err):
			continue
		case err != nil:
			return result, fmt.Errorf("service/migration: migrating palette %s: %w", candidate.ID, err)
		}

		if changed {
			result.MigratedCount++
			s.logger.Debug("palette slots migrated", slog.String("id", candidate.ID))
		}
	}

	s.logger.Info("slot migration finished",
		slog.Int("scanned", len(legacy)),
		slog.Int("migrated", result.MigratedCount),
	)
	return result, nil
}

// migrateSlots resolves legacy refs, empties slugs the catalog does not
// know and resizes to maxSlots. It reports whether the result differs
// from slots.
func migrateSlots(cat Catalog, slots model.Slots, schema, maxSlots int) (model.Slots, bool) {
	resolved, _ := resolveSlots(cat, slots, schema)
	for i, s := range resolved {
		if !s.Empty() && !cat.Has(string(s)) {
			resolved[i] = ""
		}
	}
	out := resolved.Fit(maxSlots)
	return out, !slices.Equal(out, slots)
}
