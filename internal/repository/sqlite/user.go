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
)

const userColumns = `id, external_id, username, name, email, avatar_url,
	has_completed_signup, created_at, updated_at`

// UpsertUser creates the user for u.ExternalID or loads the existing one.
//
// For an existing user only email and avatar are refreshed, and only when
// u carries non-empty values that differ. Name and username are never
// touched here. On return u holds the stored record.
func (db *DB) UpsertUser(ctx context.Context, u *model.User) (bool, error) {
	created := false

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing model.User
		err := tx.GetContext(ctx, &existing,
			`SELECT `+userColumns+` FROM users WHERE external_id = ?`, u.ExternalID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			t := now()
			u.ID = xid.New().String()
			u.CreatedAt = t
			u.UpdatedAt = t
			_, err = tx.NamedExecContext(ctx,
				`INSERT INTO users (`+userColumns+`)
				 VALUES (:id, :external_id, :username, :name, :email, :avatar_url,
				         :has_completed_signup, :created_at, :updated_at)`, u)
			if err != nil {
				return fmt.Errorf("sqlite: inserting user (externalID=%s): %w", u.ExternalID, err)
			}
			created = true
			return nil

		case err != nil:
			return fmt.Errorf("sqlite: looking up user by external id %s: %w", u.ExternalID, err)
		}

		changed := false
		if u.Email != "" && u.Email != existing.Email {
			existing.Email = u.Email
			changed = true
		}
		if u.AvatarURL != "" && u.AvatarURL != existing.AvatarURL {
			existing.AvatarURL = u.AvatarURL
			changed = true
		}
		if changed {
			existing.UpdatedAt = now()
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET email = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
				existing.Email, existing.AvatarURL, existing.UpdatedAt, existing.ID)
			if err != nil {
				return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
			}
		}
		*u = existing
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, db.conn, "id", id)
}

// GetUserByExternalID retrieves a user by identity provider subject.
func (db *DB) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return db.getUser(ctx, db.conn, "external_id", externalID)
}

// GetUserByUsername retrieves a user by claimed username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, db.conn, "username", username)
}

// getUser looks a user up by one of the unique columns. column is always a
// constant from this file.
func (db *DB) getUser(ctx context.Context, q sqlx.QueryerContext, column, value string) (*model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, q, &u,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %s: %w", column, value, err)
	}
	return &u, nil
}

// ClaimUsername sets username on the user identified by externalID,
// mirroring it into name and marking signup complete.
//
// The availability check and the write share one transaction, and the
// UNIQUE index on username backs it, so of two concurrent claims for the
// same name exactly one succeeds. Claiming the name the user already holds
// succeeds without writing.
func (db *DB) ClaimUsername(ctx context.Context, externalID, username string) (*model.User, error) {
	var claimed *model.User

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		u, err := db.getUser(ctx, tx, "external_id", externalID)
		if err != nil {
			return err
		}

		if u.Username != nil {
			if *u.Username == username {
				claimed = u
				return nil
			}
			return apperror.Conflictf("you already have the username %q", *u.Username)
		}

		var holder string
		err = tx.GetContext(ctx, &holder, `SELECT external_id FROM users WHERE username = ?`, username)
		switch {
		case err == nil:
			return apperror.Conflictf("username %q is already taken", username)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("sqlite: checking username %s: %w", username, err)
		}

		u.Username = &username
		u.Name = username
		u.HasCompletedSignup = true
		u.UpdatedAt = now()
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET username = ?, name = ?, has_completed_signup = 1, updated_at = ?
			 WHERE id = ?`,
			username, u.Name, u.UpdatedAt, u.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflictf("username %q is already taken", username)
			}
			return fmt.Errorf("sqlite: claiming username for user %s: %w", u.ID, err)
		}

		claimed = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
