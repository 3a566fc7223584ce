package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/block-palettes/internal/apperror"
)

// IsLiked reports whether userID has liked paletteID.
func (db *DB) IsLiked(ctx context.Context, userID, paletteID string) (bool, error) {
	var n int
	err := db.conn.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM likes WHERE user_id = ? AND palette_id = ?`, userID, paletteID)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like %s/%s: %w", userID, paletteID, err)
	}
	return n > 0, nil
}

// ToggleLike removes the like if present and inserts it otherwise, in one
// transaction. The palette must exist. The UNIQUE (user_id, palette_id)
// index turns a racing double insert into a conflict instead of a
// duplicate row.
func (db *DB) ToggleLike(ctx context.Context, userID, paletteID string) (bool, error) {
	liked := false

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getPalette(ctx, tx, paletteID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = ? AND palette_id = ?`, userID, paletteID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting like %s/%s: %w", userID, paletteID, err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if removed > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO likes (id, user_id, palette_id, created_at) VALUES (?, ?, ?, ?)`,
			xid.New().String(), userID, paletteID, now())
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflictf("palette %s is already liked", paletteID)
			}
			return fmt.Errorf("sqlite: inserting like %s/%s: %w", userID, paletteID, err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

// CountLikes returns the number of likes on a palette.
func (db *DB) CountLikes(ctx context.Context, paletteID string) (int, error) {
	var n int
	if err := db.conn.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM likes WHERE palette_id = ?`, paletteID); err != nil {
		return 0, fmt.Errorf("sqlite: counting likes of %s: %w", paletteID, err)
	}
	return n, nil
}

// ListLikedPaletteIDs returns the palettes a user liked, most recent like
// first. IDs of palettes that no longer exist are included.
func (db *DB) ListLikedPaletteIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	if err := db.conn.SelectContext(ctx, &ids,
		`SELECT palette_id FROM likes WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID); err != nil {
		return nil, fmt.Errorf("sqlite: listing likes of %s: %w", userID, err)
	}
	return ids, nil
}
