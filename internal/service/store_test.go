package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/catalog"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository"
)

// fakeStore is an in-memory repository.Store. One mutex stands in for the
// database transaction, so every method is atomic like its SQL twin.
type fakeStore struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	users    map[string]*model.User // by external id
	palettes map[string]*model.Palette
	likes    map[[2]string]time.Time // (user, palette) -> liked at

	// failNext makes the next call of the named method fail.
	failNext map[string]error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    make(map[string]*model.User),
		palettes: make(map[string]*model.Palette),
		likes:    make(map[[2]string]time.Time),
		failNext: make(map[string]error),
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) injected(method string) error {
	err := f.failNext[method]
	delete(f.failNext, method)
	return err
}

func (f *fakeStore) UpsertUser(_ context.Context, u *model.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("UpsertUser"); err != nil {
		return false, err
	}

	if existing, ok := f.users[u.ExternalID]; ok {
		if u.Email != "" {
			existing.Email = u.Email
		}
		if u.AvatarURL != "" {
			existing.AvatarURL = u.AvatarURL
		}
		*u = *existing
		return false, nil
	}
	t := f.tick()
	u.ID = f.nextID("user")
	u.CreatedAt, u.UpdatedAt = t, t
	stored := *u
	f.users[u.ExternalID] = &stored
	return true, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("GetUserByID"); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeStore) GetUserByExternalID(_ context.Context, externalID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("GetUserByExternalID"); err != nil {
		return nil, err
	}
	u, ok := f.users[externalID]
	if !ok {
		return nil, apperror.NotFound("user", externalID)
	}
	out := *u
	return &out, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username != nil && *u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) ClaimUsername(_ context.Context, externalID, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[externalID]
	if !ok {
		return nil, apperror.NotFound("user", externalID)
	}
	if u.Username != nil {
		if *u.Username == username {
			out := *u
			return &out, nil
		}
		return nil, apperror.Conflictf("you already have the username %q", *u.Username)
	}
	for _, other := range f.users {
		if other.Username != nil && *other.Username == username {
			return nil, apperror.Conflictf("username %q is already taken", username)
		}
	}
	name := username
	u.Username = &name
	u.Name = name
	u.HasCompletedSignup = true
	u.UpdatedAt = f.tick()
	out := *u
	return &out, nil
}

func (f *fakeStore) CreatePalette(_ context.Context, p *model.Palette) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("CreatePalette"); err != nil {
		return err
	}
	t := f.tick()
	p.ID = f.nextID("palette")
	p.CreatedAt, p.UpdatedAt = t, t
	f.palettes[p.ID] = clonePalette(p)
	return nil
}

func clonePalette(p *model.Palette) *model.Palette {
	out := *p
	out.Slots = append(model.Slots(nil), p.Slots...)
	return &out
}

func (f *fakeStore) GetPaletteByID(_ context.Context, id string) (*model.Palette, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("GetPaletteByID"); err != nil {
		return nil, err
	}
	p, ok := f.palettes[id]
	if !ok {
		return nil, apperror.NotFound("palette", id)
	}
	return clonePalette(p), nil
}

func (f *fakeStore) list(keep func(p *model.Palette) bool, oldestFirst bool) []model.Palette {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Palette{}
	for _, p := range f.palettes {
		if keep(p) {
			out = append(out, *clonePalette(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *fakeStore) ListPalettesByOwner(_ context.Context, ownerID string) ([]model.Palette, error) {
	return f.list(func(p *model.Palette) bool { return p.OwnerID == ownerID }, false), nil
}

func (f *fakeStore) ListPublishedPalettes(_ context.Context) ([]model.Palette, error) {
	return f.list(func(p *model.Palette) bool { return p.IsPublished }, false), nil
}

func (f *fakeStore) ListPublishedPalettesByOwner(_ context.Context, ownerID string) ([]model.Palette, error) {
	return f.list(func(p *model.Palette) bool { return p.IsPublished && p.OwnerID == ownerID }, false), nil
}

func (f *fakeStore) ListPalettesBySlotSchema(_ context.Context, schema int) ([]model.Palette, error) {
	return f.list(func(p *model.Palette) bool { return p.SlotSchema == schema }, true), nil
}

func (f *fakeStore) MutatePalette(_ context.Context, id string, fn repository.PaletteMutation) (*model.Palette, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.palettes[id]
	if !ok {
		return nil, apperror.NotFound("palette", id)
	}
	p := clonePalette(stored)
	if err := fn(p); err != nil {
		return nil, err
	}
	p.ID = id
	f.palettes[id] = clonePalette(p)
	return p, nil
}

func (f *fakeStore) DeletePalette(_ context.Context, id string, check func(p *model.Palette) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.palettes[id]
	if !ok {
		return apperror.NotFound("palette", id)
	}
	if check != nil {
		if err := check(clonePalette(p)); err != nil {
			return err
		}
	}
	delete(f.palettes, id)
	return nil
}

func (f *fakeStore) IsLiked(_ context.Context, userID, paletteID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.likes[[2]string{userID, paletteID}]
	return ok, nil
}

func (f *fakeStore) ToggleLike(_ context.Context, userID, paletteID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("ToggleLike"); err != nil {
		return false, err
	}
	if _, ok := f.palettes[paletteID]; !ok {
		return false, apperror.NotFound("palette", paletteID)
	}
	key := [2]string{userID, paletteID}
	if _, ok := f.likes[key]; ok {
		delete(f.likes, key)
		return false, nil
	}
	f.likes[key] = f.tick()
	return true, nil
}

func (f *fakeStore) CountLikes(_ context.Context, paletteID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("CountLikes"); err != nil {
		return 0, err
	}
	n := 0
	for key := range f.likes {
		if key[1] == paletteID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListLikedPaletteIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type liked struct {
		id string
		at time.Time
	}
	var all []liked
	for key, at := range f.likes {
		if key[0] == userID {
			all = append(all, liked{key[1], at})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.After(all[j].at) })
	ids := make([]string, 0, len(all))
	for _, l := range all {
		ids = append(ids, l.id)
	}
	return ids, nil
}

// putPalette stores p as is, bypassing CreatePalette's defaults. Used to
// plant legacy rows.
func (f *fakeStore) putPalette(p *model.Palette) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.CreatedAt.IsZero() {
		t := f.tick()
		p.CreatedAt, p.UpdatedAt = t, t
	}
	f.palettes[p.ID] = clonePalette(p)
}

func (f *fakeStore) stored(id string) *model.Palette {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.palettes[id]
	if !ok {
		return nil
	}
	return clonePalette(p)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default("")
	require.NoError(t, err)
	return c
}

func identity(n int) model.Identity {
	return model.Identity{
		Subject:   fmt.Sprintf("github:%d", n),
		Email:     fmt.Sprintf("user%d@example.com", n),
		AvatarURL: fmt.Sprintf("https://avatars.example.com/u/%d", n),
	}
}

var anonymous = model.Identity{}
