// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite provides the implementation.
package repository

import (
	"context"

	"github.com/sakif/block-palettes/internal/model"
)

// UserRepository stores user accounts keyed by external identity.
type UserRepository interface {
	// UpsertUser creates the user for u.ExternalID if none exists, otherwise
	// loads the existing record into u. created reports which happened.
	UpsertUser(ctx context.Context, u *model.User) (created bool, err error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// ClaimUsername assigns username to the user atomically. It fails with
	// a conflict if the name is taken or the user already holds another.
	ClaimUsername(ctx context.Context, externalID, username string) (*model.User, error)
}

// PaletteMutation edits a palette in place inside a transaction. Returning
// an error aborts the write.
type PaletteMutation func(p *model.Palette) error

// PaletteRepository stores palettes.
type PaletteRepository interface {
	CreatePalette(ctx context.Context, p *model.Palette) error
	GetPaletteByID(ctx context.Context, id string) (*model.Palette, error)
	ListPalettesByOwner(ctx context.Context, ownerID string) ([]model.Palette, error)
	ListPublishedPalettes(ctx context.Context) ([]model.Palette, error)
	ListPublishedPalettesByOwner(ctx context.Context, ownerID string) ([]model.Palette, error)
	ListPalettesBySlotSchema(ctx context.Context, schema int) ([]model.Palette, error)
	// MutatePalette reads, mutates and writes one palette atomically.
	MutatePalette(ctx context.Context, id string, fn PaletteMutation) (*model.Palette, error)
	// DeletePalette removes the palette if check allows it. Likes that
	// reference it are left in place.
	DeletePalette(ctx context.Context, id string, check func(p *model.Palette) error) error
}

// LikeRepository stores likes.
type LikeRepository interface {
	IsLiked(ctx context.Context, userID, paletteID string) (bool, error)
	// ToggleLike flips the like for the pair and reports the new state.
	ToggleLike(ctx context.Context, userID, paletteID string) (liked bool, err error)
	CountLikes(ctx context.Context, paletteID string) (int, error)
	ListLikedPaletteIDs(ctx context.Context, userID string) ([]string, error)
}

// Store is everything the services need from storage.
type Store interface {
	UserRepository
	PaletteRepository
	LikeRepository
}
