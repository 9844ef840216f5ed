package handlers

import (
	"context"
	"time"

	"mabletask/admin/dataview"
	"mabletask/admin/models"
)

// UserRepository is the subset of store.UserStore the auth handlers use.
type UserRepository interface {
	CreateUser(ctx context.Context, email, name string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// EventRepository is implemented by store.EventStore.
type EventRepository interface {
	InsertEvents(ctx context.Context, events []models.Event) error
	ListEvents(ctx context.Context, q dataview.EventQuery) ([]models.Event, error)
	EventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventType string) ([]models.EventCount, error)
	UniqueUsersOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCount, error)
}

// ProductRepository is implemented by store.ProductStore.
type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}
