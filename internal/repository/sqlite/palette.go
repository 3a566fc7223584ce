package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository"
)

const paletteColumns = `id, owner_id, name, description, slots, max_slots,
	is_published, slot_schema, created_at, updated_at`

// newestFirst orders palette listings. id breaks ties between palettes
// created in the same instant; xids sort by creation time.
const newestFirst = ` ORDER BY created_at DESC, id DESC`

// CreatePalette inserts p, assigning its ID and timestamps.
func (db *DB) CreatePalette(ctx context.Context, p *model.Palette) error {
	t := now()
	p.ID = xid.New().String()
	p.CreatedAt = t
	p.UpdatedAt = t
	if p.Slots == nil {
		p.Slots = model.Slots{}
	}

	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO palettes (`+paletteColumns+`)
		 VALUES (:id, :owner_id, :name, :description, :slots, :max_slots,
		         :is_published, :slot_schema, :created_at, :updated_at)`, p)
	if err != nil {
		return fmt.Errorf("sqlite: inserting palette %q: %w", p.Name, err)
	}
	return nil
}

// GetPaletteByID retrieves a palette.
// Returns apperror.ErrNotFound if no palette exists with that ID.
func (db *DB) GetPaletteByID(ctx context.Context, id string) (*model.Palette, error) {
	return getPalette(ctx, db.conn, id)
}

func getPalette(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Palette, error) {
	var p model.Palette
	err := sqlx.GetContext(ctx, q, &p, `SELECT `+paletteColumns+` FROM palettes WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("palette", id)
		}
		return nil, fmt.Errorf("sqlite: getting palette %s: %w", id, err)
	}
	return &p, nil
}

// ListPalettesByOwner returns every palette of one owner, newest first.
func (db *DB) ListPalettesByOwner(ctx context.Context, ownerID string) ([]model.Palette, error) {
	return db.listPalettes(ctx, "palettes of "+ownerID,
		`SELECT `+paletteColumns+` FROM palettes WHERE owner_id = ?`+newestFirst, ownerID)
}

// ListPublishedPalettes returns all published palettes, newest first.
func (db *DB) ListPublishedPalettes(ctx context.Context) ([]model.Palette, error) {
	return db.listPalettes(ctx, "published palettes",
		`SELECT `+paletteColumns+` FROM palettes WHERE is_published = 1`+newestFirst)
}

// ListPublishedPalettesByOwner returns one owner's published palettes,
// newest first.
func (db *DB) ListPublishedPalettesByOwner(ctx context.Context, ownerID string) ([]model.Palette, error) {
	return db.listPalettes(ctx, "published palettes of "+ownerID,
		`SELECT `+paletteColumns+` FROM palettes WHERE owner_id = ? AND is_published = 1`+newestFirst,
		ownerID)
}

// ListPalettesBySlotSchema returns the palettes stored under one slot
// schema version, oldest first.
func (db *DB) ListPalettesBySlotSchema(ctx context.Context, schema int) ([]model.Palette, error) {
	return db.listPalettes(ctx, fmt.Sprintf("palettes with slot schema %d", schema),
		`SELECT `+paletteColumns+` FROM palettes WHERE slot_schema = ? ORDER BY created_at, id`,
		schema)
}

func (db *DB) listPalettes(ctx context.Context, what, query string, args ...any) ([]model.Palette, error) {
	palettes := []model.Palette{}
	if err := db.conn.SelectContext(ctx, &palettes, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", what, err)
	}
	return palettes, nil
}

// MutatePalette loads the palette, passes it to fn and writes back every
// mutable column, all in one transaction. fn is responsible for setting
// UpdatedAt when it changes something visible. If fn returns an error
// nothing is written and the error is returned as is.
func (db *DB) MutatePalette(ctx context.Context, id string, fn repository.PaletteMutation) (*model.Palette, error) {
	var out *model.Palette

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := getPalette(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		// Identity columns are not writable through a mutation.
		p.ID = id

		result, err := tx.NamedExecContext(ctx,
			`UPDATE palettes
			 SET name = :name, description = :description, slots = :slots,
			     max_slots = :max_slots, is_published = :is_published,
			     slot_schema = :slot_schema, updated_at = :updated_at
			 WHERE id = :id`, p)
		if err != nil {
			return fmt.Errorf("sqlite: updating palette %s: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("palette", id)
		}

		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePalette removes a palette if check, given the current row, returns
// nil. Likes referencing the palette are left in place.
func (db *DB) DeletePalette(ctx context.Context, id string, check func(p *model.Palette) error) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := getPalette(ctx, tx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(p); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM palettes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting palette %s: %w", id, err)
		}
		return nil
	})
}
