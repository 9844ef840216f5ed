package handlers

import (
	"context"
	"sync"
	"time"

	"mabletask/admin/dataview"
	"mabletask/admin/models"
	"mabletask/admin/store"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int]*models.User
	nextID int
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int]*models.User), nextID: 1}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, name string, hashed []byte) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return nil, store.ErrDuplicate
		}
	}
	u := &models.User{ID: f.nextID, Email: email, Name: name, HashedPassword: hashed}
	f.byID[u.ID] = u
	f.nextID++
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

type fakeEvents struct {
	events    []models.Event
	inserted  []models.Event
	lastQuery dataview.EventQuery
	lastRange [2]time.Time
	lastType  string
	err       error
}

func (f *fakeEvents) InsertEvents(_ context.Context, events []models.Event) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, events...)
	return nil
}

func (f *fakeEvents) ListEvents(_ context.Context, q dataview.EventQuery) ([]models.Event, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeEvents) EventCountsOverTime(_ context.Context, _ string, start, end time.Time, eventType string) ([]models.EventCount, error) {
	f.lastRange = [2]time.Time{start, end}
	f.lastType = eventType
	if f.err != nil {
		return nil, f.err
	}
	return []models.EventCount{{Time: start, Count: 5}}, nil
}

func (f *fakeEvents) UniqueUsersOverTime(_ context.Context, _ string, start, end time.Time) ([]models.EventCount, error) {
	f.lastRange = [2]time.Time{start, end}
	if f.err != nil {
		return nil, f.err
	}
	return []models.EventCount{{Time: start, Count: 2}}, nil
}

type fakeProducts struct {
	mu       sync.Mutex
	products []models.Product
	err      error
}

func (f *fakeProducts) index(id string) int {
	for i, p := range f.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeProducts) List(context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Product{}, f.products...), nil
}

func (f *fakeProducts) Get(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		p := f.products[i]
		return &p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	p.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	f.products = append(f.products, *p)
	return nil
}

func (f *fakeProducts) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(p.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	f.products[i] = *p
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return store.ErrNotFound
	}
	f.products = append(f.products[:i], f.products[i+1:]...)
	return nil
}
