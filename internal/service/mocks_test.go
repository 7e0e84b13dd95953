package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"vilatur/internal/model"
	"vilatur/internal/queue"
	"vilatur/internal/storage"
)

// =============================================================================
// MOCK USER REPOSITORY
// =============================================================================

type mockUserRepository struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	updateFn        func(ctx context.Context, user *model.User) error
	setImageFn      func(ctx context.Context, userID int64, imageID string) (*string, error)

	// Track calls for assertions
	createCalls []*model.User
	updateCalls []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *model.User) error {
	m.updateCalls = append(m.updateCalls, user)
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) SetImage(ctx context.Context, _ *sqlx.Tx, userID int64, imageID string) (*string, error) {
	if m.setImageFn != nil {
		return m.setImageFn(ctx, userID, imageID)
	}
	return nil, nil
}

// usersByID serves GetByID and GetByUsername from a fixed set of users.
func usersByID(users ...*model.User) *mockUserRepository {
	return &mockUserRepository{
		getByIDFn: func(_ context.Context, id int64) (*model.User, error) {
			for _, u := range users {
				if u.ID == id {
					return u, nil
				}
			}
			return nil, model.ErrUserNotFound
		},
		getByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			for _, u := range users {
				if u.Username == username {
					return u, nil
				}
			}
			return nil, model.ErrUserNotFound
		},
	}
}

// =============================================================================
// IN-MEMORY LISTING REPOSITORY
// =============================================================================
//
// Behaves like the SQL repository: every single-listing read and write is
// scoped to the owner and happens atomically under one lock.

type memListingRepository struct {
	mu       sync.Mutex
	nextID   int64
	listings map[int64]model.Listing
	// objectKeys maps image id to object key, standing in for the images table
	objectKeys map[string]string

	createErr error
}

func newMemListingRepository() *memListingRepository {
	return &memListingRepository{
		nextID:     1,
		listings:   make(map[int64]model.Listing),
		objectKeys: make(map[string]string),
	}
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *memListingRepository) Create(_ context.Context, ownerID int64, f model.ListingFields) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}

	now := time.Now()
	l := model.Listing{
		ID:        r.nextID,
		OwnerID:   ownerID,
		Title:     f.Title,
		Content:   f.Content,
		Phone:     f.Phone,
		Site:      f.Site,
		Open:      strPtrOrNil(f.Open),
		Close:     strPtrOrNil(f.Close),
		Delivery:  f.Delivery,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Keywords:  strPtrOrNil(f.Keywords),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextID++
	r.listings[l.ID] = l
	return &l, nil
}

// put stores l as-is, bypassing validation.
func (r *memListingRepository) put(l model.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = l
	if l.ID >= r.nextID {
		r.nextID = l.ID + 1
	}
}

func (r *memListingRepository) get(id int64) (model.Listing, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	return l, ok
}

func (r *memListingRepository) GetByID(_ context.Context, id, ownerID int64) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.OwnerID != ownerID {
		return nil, model.ErrListingNotFound
	}
	return &l, nil
}

func (r *memListingRepository) ListSummaries(_ context.Context, ownerID int64) ([]model.ListingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.ListingSummary{}
	for _, l := range r.listings {
		if l.OwnerID == ownerID {
			out = append(out, model.ListingSummary{ID: l.ID, Title: l.Title, UpdatedAt: l.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memListingRepository) ListAll(_ context.Context) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func applyOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	*dst = strPtrOrNil(*v)
}

func (r *memListingRepository) Update(_ context.Context, id, ownerID int64, p model.ListingPatch) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.OwnerID != ownerID {
		return nil, model.ErrListingNotFound
	}

	for dst, v := range map[*string]*string{
		&l.Title: p.Title, &l.Content: p.Content, &l.Phone: p.Phone, &l.Site: p.Site,
		&l.Delivery: p.Delivery, &l.Latitude: p.Latitude, &l.Longitude: p.Longitude,
	} {
		if v != nil {
			*dst = *v
		}
	}
	applyOptional(&l.Open, p.Open)
	applyOptional(&l.Close, p.Close)
	applyOptional(&l.Keywords, p.Keywords)
	l.UpdatedAt = time.Now()

	r.listings[id] = l
	return &l, nil
}

func (r *memListingRepository) Delete(_ context.Context, id, ownerID int64) (*model.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.OwnerID != ownerID {
		return &model.DeleteResult{Deleted: 0}, nil
	}
	delete(r.listings, id)

	res := &model.DeleteResult{Deleted: 1}
	if l.ImageID != nil {
		if key, ok := r.objectKeys[*l.ImageID]; ok {
			res.ImageObjectKey = &key
			delete(r.objectKeys, *l.ImageID)
		}
	}
	return res, nil
}

func (r *memListingRepository) SetImage(_ context.Context, _ *sqlx.Tx, id, ownerID int64, imageID string) (*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.OwnerID != ownerID {
		return nil, model.ErrListingNotFound
	}
	previous := l.ImageID
	l.ImageID = &imageID
	r.listings[id] = l
	return previous, nil
}

// =============================================================================
// MOCK IMAGE REPOSITORY
// =============================================================================

type mockImageRepository struct {
	mu     sync.Mutex
	images map[string]model.Image

	createErr error
}

func newMockImageRepository(existing ...model.Image) *mockImageRepository {
	m := &mockImageRepository{images: make(map[string]model.Image)}
	for _, img := range existing {
		m.images[img.ID] = img
	}
	return m
}

func (m *mockImageRepository) Create(_ context.Context, _ *sqlx.Tx, img *model.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	img.CreatedAt = time.Now()
	m.images[img.ID] = *img
	return nil
}

func (m *mockImageRepository) GetByID(_ context.Context, id string) (*model.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, model.ErrImageNotFound
	}
	return &img, nil
}

func (m *mockImageRepository) Delete(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return "", model.ErrImageNotFound
	}
	delete(m.images, id)
	return img.ObjectKey, nil
}

func (m *mockImageRepository) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.images[id]
	return ok
}

// =============================================================================
// BLOBS, QUEUE AND CACHE
// =============================================================================

// flakyBlobStore is a MemoryStore whose Delete can be made to fail.
type flakyBlobStore struct {
	*storage.MemoryStore
	deleteErr error
}

func (s *flakyBlobStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.Delete(ctx, key)
}

var errBlobUnavailable = errors.New("object storage unavailable")

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ImageEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event queue.ImageEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "1-0", nil
}

func (p *recordingPublisher) published() []queue.ImageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.ImageEvent(nil), p.events...)
}

type spyDirectoryCache struct {
	mu          sync.Mutex
	listings    []model.Listing
	found       bool
	getErr      error
	generation  int64
	invalidated int
	sets        int
	staleSets   int

	// onGeneration runs right after the generation is read, before the database load.
	onGeneration func()
}

func (c *spyDirectoryCache) GetAll(context.Context) ([]model.Listing, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listings, c.found, c.getErr
}

func (c *spyDirectoryCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	gen, hook := c.generation, c.onGeneration
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return gen, nil
}

func (c *spyDirectoryCache) SetAll(_ context.Context, listings []model.Listing, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.staleSets++
		return nil
	}
	c.listings = listings
	c.found = true
	c.sets++
	return nil
}

func (c *spyDirectoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings = nil
	c.found = false
	c.generation++
	c.invalidated++
	return nil
}
