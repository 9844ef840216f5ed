package client

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"mabletask/admin/dataview"
	"mabletask/admin/models"
)

// ProductTable is the state behind the product management table. Mutations
// always refetch the list instead of patching it locally.
type ProductTable struct {
	client   *Client
	notifier Notifier
	logger   *zap.Logger
	seq      Sequencer

	mu        sync.RWMutex
	products  []models.Product
	search    string
	sortField dataview.SortField
	sortDir   dataview.SortDirection
	loading   bool
}

func NewProductTable(c *Client, notifier Notifier) *ProductTable {
	return &ProductTable{
		client:    c,
		notifier:  notifier,
		logger:    c.logger,
		products:  []models.Product{},
		sortField: dataview.SortByTitle,
		sortDir:   dataview.Ascending,
	}
}

// Refresh reloads the products. Without a session nothing is fetched.
func (t *ProductTable) Refresh(ctx context.Context) error {
	if !t.client.Session().Authenticated() {
		return ErrNotSignedIn
	}

	ctx, gen := t.seq.Begin(ctx)
	defer t.seq.End(gen)
	t.seq.Apply(gen, func() { t.setLoading(true) })

	products, err := t.client.ListProducts(ctx)
	if err != nil {
		if !t.seq.Apply(gen, func() { t.setLoading(false) }) {
			return nil
		}
		t.handleError(err, "Error fetching products")
		return err
	}

	t.seq.Apply(gen, func() {
		t.mu.Lock()
		t.products = products
		t.loading = false
		t.mu.Unlock()
	})
	return nil
}

func (t *ProductTable) setLoading(v bool) {
	t.mu.Lock()
	t.loading = v
	t.mu.Unlock()
}

func (t *ProductTable) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading
}

func (t *ProductTable) SetSearch(term string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.search = term
}

// ToggleSort behaves like a click on the column header of field.
func (t *ProductTable) ToggleSort(field dataview.SortField) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sortField, t.sortDir = dataview.ToggleSort(t.sortField, t.sortDir, field)
}

func (t *ProductTable) Sort() (dataview.SortField, dataview.SortDirection) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortField, t.sortDir
}

// Rows returns the products as displayed: filtered by the search term, then sorted.
func (t *ProductTable) Rows() []models.Product {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return dataview.ProductView(t.products, t.search, t.sortField, t.sortDir)
}

// Create submits the draft. Invalid drafts are rejected without a request or
// a notification.
func (t *ProductTable) Create(ctx context.Context, draft models.ProductDraft) (*models.Product, error) {
	created, err := t.client.CreateProduct(ctx, draft)
	if err != nil {
		if isDraftError(err) {
			return nil, err
		}
		t.handleError(err, "Error creating product")
		return nil, err
	}
	t.notifier.Notify(Notification{Title: "Product created", Severity: SeveritySuccess})
	t.refetch(ctx)
	return created, nil
}

func (t *ProductTable) Update(ctx context.Context, p models.Product) (*models.Product, error) {
	updated, err := t.client.UpdateProduct(ctx, p)
	if err != nil {
		t.handleError(err, "Error updating product")
		return nil, err
	}
	t.notifier.Notify(Notification{Title: "Product updated", Severity: SeveritySuccess})
	t.refetch(ctx)
	return updated, nil
}

func (t *ProductTable) Delete(ctx context.Context, id string) error {
	if err := t.client.DeleteProduct(ctx, id); err != nil {
		t.handleError(err, "Error deleting product")
		return err
	}
	t.notifier.Notify(Notification{Title: "Product deleted", Severity: SeveritySuccess})
	t.refetch(ctx)
	return nil
}

// refetch reports its own failures; the mutation already succeeded.
func (t *ProductTable) refetch(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil && !errors.Is(err, ErrNotSignedIn) {
		t.logger.Debug("Refetch after mutation failed", zap.Error(err))
	}
}

func (t *ProductTable) handleError(err error, title string) {
	t.logger.Error(title, zap.Error(err))
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotSignedIn) {
		t.notifier.Notify(Notification{Title: "Session expired", Description: "Please sign in again", Severity: SeverityError})
		return
	}
	t.notifier.Notify(Notification{Title: title, Description: MessageOf(err, "An error occurred"), Severity: SeverityError})
}

func isDraftError(err error) bool {
	return errors.Is(err, models.ErrTitleRequired) ||
		errors.Is(err, models.ErrPriceRequired) ||
		errors.Is(err, models.ErrPriceInvalid)
}
