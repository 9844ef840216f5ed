package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mabletask/admin/apperrors"
	"mabletask/admin/dataview"
	"mabletask/admin/models"
	"mabletask/admin/store"
)

type ProductHandlers struct {
	products ProductRepository
	idPrefix string
	logger   *zap.Logger
}

func NewProductHandlers(products ProductRepository, idPrefix string, logger *zap.Logger) *ProductHandlers {
	return &ProductHandlers{products: products, idPrefix: idPrefix, logger: logger}
}

func (h *ProductHandlers) respondStoreError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		apperrors.Respond(c, apperrors.NotFound("Product not found"))
	case errors.Is(err, store.ErrDuplicate):
		apperrors.Respond(c, apperrors.Conflict("Product already exists"))
	default:
		h.logger.Error(message, zap.String("id", c.Param("id")), zap.Error(err))
		apperrors.Respond(c, apperrors.Internal(message, err))
	}
}

// List returns every product. Optional search, sort and direction query
// parameters apply the same filtering and ordering as the admin table.
func (h *ProductHandlers) List(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, "Failed to list products", err)
		return
	}

	search, sortBy, direction := c.Query("search"), c.Query("sort"), c.Query("direction")
	if search != "" || sortBy != "" || direction != "" {
		products = dataview.ProductView(products, search,
			dataview.ParseSortField(sortBy), dataview.ParseSortDirection(direction))
	}
	c.JSON(http.StatusOK, models.ProductsResponse{Products: products})
}

func (h *ProductHandlers) Get(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, "Failed to fetch product", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandlers) Create(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid request body", err))
		return
	}

	p := req.Product(h.idPrefix + uuid.NewString())
	if p.Title == "" {
		apperrors.Respond(c, apperrors.BadRequest("Invalid product", models.ErrTitleRequired))
		return
	}

	if err := h.products.Create(c.Request.Context(), &p); err != nil {
		h.respondStoreError(c, "Failed to create product", err)
		return
	}
	h.logger.Info("Product created", zap.String("id", p.ID))
	c.JSON(http.StatusCreated, p)
}

// Update replaces the whole record. The id in the path wins over the body.
func (h *ProductHandlers) Update(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid request body", err))
		return
	}

	p.ID = c.Param("id")
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		apperrors.Respond(c, apperrors.BadRequest("Invalid product", models.ErrTitleRequired))
		return
	}
	if p.Price.IsZero() {
		apperrors.Respond(c, apperrors.BadRequest("Invalid product", models.ErrPriceRequired))
		return
	}
	if !p.Price.Valid() || p.Price.Float64() < 0 {
		apperrors.Respond(c, apperrors.BadRequest("Invalid product", models.ErrPriceInvalid))
		return
	}
	if p.ProductType == "" {
		p.ProductType = models.DefaultProductType
	}
	p.Tags = models.NormalizeTags(p.Tags)

	if err := h.products.Update(c.Request.Context(), &p); err != nil {
		h.respondStoreError(c, "Failed to update product", err)
		return
	}
	h.logger.Info("Product updated", zap.String("id", p.ID))
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandlers) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.respondStoreError(c, "Failed to delete product", err)
		return
	}
	h.logger.Info("Product deleted", zap.String("id", id))
	c.Status(http.StatusNoContent)
}
