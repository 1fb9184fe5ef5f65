package application

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/oksasatya/go-user-lifecycle/internal/domain/apperror"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/entity"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/storage"
)

var errBoom = errors.New("boom")

// fakeUserRepo mirrors the postgres repository's observable behavior.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*entity.User
	nextID int
	clock  time.Time

	insertErr error
	updateErr error
	// updateErrOnce fails only the next UpdateFields call.
	updateErrOnce error
	deleteErr     error
	listErr       error

	updateCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*entity.User{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *fakeUserRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeUserRepo) seed(u entity.User) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if u.ID == "" {
		u.ID = "u" + strconv.Itoa(r.nextID)
	}
	now := r.tick()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	r.users[u.ID] = &u
	return u.ID
}

func (r *fakeUserRepo) snapshot(id string) entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[id]
}

func (r *fakeUserRepo) ListActive(_ context.Context, offset, limit int) ([]entity.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, 0, apperror.Store("database error", r.listErr)
	}
	var active []entity.User
	for _, u := range r.users {
		if u.State {
			active = append(active, *u)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].UpdatedAt.Equal(active[j].UpdatedAt) {
			return active[i].UpdatedAt.After(active[j].UpdatedAt)
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	total := int64(len(active))
	if offset >= len(active) {
		return []entity.User{}, total, nil
	}
	end := offset + limit
	if end > len(active) {
		end = len(active)
	}
	return active[offset:end], total, nil
}

func (r *fakeUserRepo) GetActiveByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.State {
		return nil, apperror.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetCredentials(_ context.Context, id string) (*entity.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.State {
		return nil, apperror.NotFound("user not found")
	}
	return &entity.Credentials{ID: u.ID, Email: u.Email, FirstName: u.FirstName, PasswordHash: u.PasswordHash, Photo: u.Photo}, nil
}

func (r *fakeUserRepo) Insert(_ context.Context, u *entity.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return "", r.insertErr
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return "", apperror.Conflict("email already registered", errBoom)
		}
	}
	r.nextID++
	u.ID = "u" + strconv.Itoa(r.nextID)
	u.CreatedAt = r.tick()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return u.ID, nil
}

func (r *fakeUserRepo) UpdateFields(_ context.Context, id string, p entity.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if err := r.updateErrOnce; err != nil {
		r.updateErrOnce = nil
		return err
	}
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[id]
	if !ok || !u.State {
		return apperror.NotFound("user not found")
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.IsUser != nil {
		u.IsUser = *p.IsUser
	}
	if p.Photo != nil {
		u.Photo = entity.NewPhotoRef(p.Photo.AssetID, p.Photo.Locator)
	}
	u.UpdatedAt = r.tick()
	return nil
}

func (r *fakeUserRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	u, ok := r.users[id]
	if !ok {
		return apperror.NotFound("user not found")
	}
	u.State, u.IsAdmin, u.IsUser, u.Photo = false, false, false, entity.PhotoRef{}
	u.UpdatedAt = r.tick()
	return nil
}

// fakePhotoStore keeps assets in memory and counts calls.
type fakePhotoStore struct {
	mu     sync.Mutex
	assets map[string][]byte
	n      int

	uploadErr  error
	replaceErr error
	deleteErr  error

	uploads  int
	replaces int
	deletes  int
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{assets: map[string][]byte{}}
}

func (s *fakePhotoStore) put(in storage.PhotoUpload) (storage.PhotoAsset, error) {
	b, err := io.ReadAll(in.Reader)
	if err != nil {
		return storage.PhotoAsset{}, err
	}
	s.n++
	id := in.Folder + "/asset-" + strconv.Itoa(s.n)
	s.assets[id] = b
	return storage.PhotoAsset{AssetID: id, Locator: "https://cdn.test/" + id}, nil
}

func (s *fakePhotoStore) Upload(_ context.Context, in storage.PhotoUpload) (storage.PhotoAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.uploadErr != nil {
		return storage.PhotoAsset{}, s.uploadErr
	}
	return s.put(in)
}

func (s *fakePhotoStore) Replace(_ context.Context, existing string, in storage.PhotoUpload) (storage.PhotoAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces++
	if s.replaceErr != nil {
		return storage.PhotoAsset{}, s.replaceErr
	}
	asset, err := s.put(in)
	if err != nil {
		return storage.PhotoAsset{}, err
	}
	delete(s.assets, existing)
	return asset, nil
}

func (s *fakePhotoStore) Delete(_ context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.assets, assetID)
	return nil
}

func (s *fakePhotoStore) has(assetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.assets[assetID]
	return ok
}

func (s *fakePhotoStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assets)
}

type fakeNotifier struct {
	events []UserEvent
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, ev UserEvent) error {
	n.events = append(n.events, ev)
	return n.err
}

type fakeIndexer struct {
	indexed map[string]entity.User
	removed []string
	hits    []SearchHit
	err     error
}

func newFakeIndexer() *fakeIndexer { return &fakeIndexer{indexed: map[string]entity.User{}} }

func (f *fakeIndexer) Index(_ context.Context, u *entity.User) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[u.ID] = *u
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	delete(f.indexed, id)
	return f.err
}

func (f *fakeIndexer) Search(_ context.Context, _ string, _ int) ([]SearchHit, error) {
	return f.hits, f.err
}
