// Package dataview holds the pure transformations that turn fetched records
// into what the admin screens show: the filtered and sorted product table, the
// per-day event chart series and the query string of a filtered event fetch.
package dataview

import (
	"math"
	"slices"
	"strings"

	"mabletask/admin/models"
)

type SortField string

const (
	SortByTitle SortField = "title"
	SortBySKU   SortField = "sku"
	SortByPrice SortField = "price"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ParseSortField falls back to title for unknown values.
func ParseSortField(s string) SortField {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortBySKU, SortByPrice:
		return f
	default:
		return SortByTitle
	}
}

// ParseSortDirection falls back to ascending for unknown values.
func ParseSortDirection(s string) SortDirection {
	if SortDirection(strings.ToLower(strings.TrimSpace(s))) == Descending {
		return Descending
	}
	return Ascending
}

// ToggleSort returns the ordering after a click on the header of field.
func ToggleSort(current SortField, dir SortDirection, clicked SortField) (SortField, SortDirection) {
	if clicked == current && dir == Ascending {
		return clicked, Descending
	}
	return clicked, Ascending
}

// ExtractSKU returns the segment after the last "/" of a product id.
func ExtractSKU(id string) string {
	return id[strings.LastIndex(id, "/")+1:]
}

// FilterProducts keeps the products whose title, vendor or SKU contains term,
// ignoring case. The input slice is left untouched.
func FilterProducts(products []models.Product, term string) []models.Product {
	needle := strings.ToLower(term)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if productMatches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

func productMatches(p models.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) {
		return true
	}
	if p.Vendor != nil && strings.Contains(strings.ToLower(*p.Vendor), needle) {
		return true
	}
	return strings.Contains(strings.ToLower(ExtractSKU(p.ID)), needle)
}

// SortProducts returns a stably sorted copy of products.
func SortProducts(products []models.Product, field SortField, dir SortDirection) []models.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []models.Product{}
	}
	cmp := productComparator(field)
	if dir == Descending {
		slices.SortStableFunc(out, func(a, b models.Product) int { return -cmp(a, b) })
	} else {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

// ProductView is FilterProducts followed by SortProducts.
func ProductView(products []models.Product, term string, field SortField, dir SortDirection) []models.Product {
	return SortProducts(FilterProducts(products, term), field, dir)
}

func productComparator(field SortField) func(a, b models.Product) int {
	switch field {
	case SortBySKU:
		return func(a, b models.Product) int {
			return strings.Compare(ExtractSKU(a.ID), ExtractSKU(b.ID))
		}
	case SortByPrice:
		return func(a, b models.Product) int {
			return comparePrices(a.Price.Float64(), b.Price.Float64())
		}
	default:
		return func(a, b models.Product) int {
			return strings.Compare(a.Title, b.Title)
		}
	}
}

// comparePrices orders NaN after every number and treats two NaNs as equal.
func comparePrices(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
