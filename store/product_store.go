package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"mabletask/admin/models"
)

const productColumns = "id, title, body_html, vendor, product_type, price, tags, created_at, updated_at"

// ProductStore persists products in PostgreSQL. When a cache is set, List is
// served cache-aside and every mutation drops the cached listing.
type ProductStore struct {
	db     *sql.DB
	cache  *ProductCache
	logger *zap.Logger
}

func NewProductStore(db *sql.DB, cache *ProductCache, logger *zap.Logger) *ProductStore {
	return &ProductStore{db: db, cache: cache, logger: logger}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.BodyHTML,
		&p.Vendor,
		&p.ProductType,
		&p.Price,
		pq.Array(&p.Tags),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, err
}

// cachedList looks up the listing for the current generation. A negative gen
// means the cache is off or unreadable and nothing should be stored.
func (s *ProductStore) cachedList(ctx context.Context) (products []models.Product, hit bool, gen int64) {
	if s.cache == nil {
		return nil, false, -1
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn("Product cache read failed, falling back to database", zap.Error(err))
		return nil, false, -1
	}
	products, hit, err = s.cache.Get(ctx, gen)
	if err != nil {
		s.logger.Warn("Product cache read failed, falling back to database", zap.Error(err))
		return nil, false, gen
	}
	return products, hit, gen
}

func (s *ProductStore) List(ctx context.Context) ([]models.Product, error) {
	// The generation is read before the query, so a write that lands in
	// between retires whatever this call caches.
	cached, hit, gen := s.cachedList(ctx)
	if hit {
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during products query: %w", err)
	}

	if gen >= 0 {
		if err := s.cache.Set(ctx, gen, products); err != nil {
			s.logger.Warn("Failed to populate product cache", zap.Error(err))
		}
	}
	return products, nil
}

func (s *ProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// Create inserts p and fills its timestamps.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, title, body_html, vendor, product_type, price, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.BodyHTML, p.Vendor, p.ProductType, p.Price, pq.Array(p.Tags),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %s: %w", p.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info("Product created", zap.String("product_id", p.ID))
	return nil
}

// Update replaces every editable field of the product with p.ID.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET title = $2, body_html = $3, vendor = $4, product_type = $5, price = $6, tags = $7, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.BodyHTML, p.Vendor, p.ProductType, p.Price, pq.Array(p.Tags),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info("Product updated", zap.String("product_id", p.ID))
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	s.invalidate(ctx)
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func (s *ProductStore) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Error("Failed to invalidate product cache", zap.Error(err))
	}
}
