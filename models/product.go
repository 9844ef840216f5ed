package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultProductType = "General"

// Product is a catalogue record. The trailing segment of ID is the SKU.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	BodyHTML    *string   `json:"body_html,omitempty"`
	Vendor      *string   `json:"vendor,omitempty"`
	ProductType string    `json:"product_type"`
	Price       Price     `json:"price"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductsResponse is the body of GET /api/products.
type ProductsResponse struct {
	Products []Product `json:"products"`
}

// CreateProductRequest is the body of POST /api/products.
type CreateProductRequest struct {
	Title       string   `json:"title" binding:"required"`
	BodyHTML    string   `json:"body_html"`
	Vendor      string   `json:"vendor"`
	ProductType string   `json:"product_type"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Tags        []string `json:"tags"`
}

// Product builds the record to insert. Empty optional strings become absent.
func (r CreateProductRequest) Product(id string) Product {
	p := Product{
		ID:          id,
		Title:       strings.TrimSpace(r.Title),
		BodyHTML:    optional(r.BodyHTML),
		Vendor:      optional(r.Vendor),
		ProductType: r.ProductType,
		Tags:        NormalizeTags(r.Tags),
	}
	if p.ProductType == "" {
		p.ProductType = DefaultProductType
	}
	if r.Price != nil {
		p.Price = PriceFromFloat(*r.Price)
	}
	return p
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// NormalizeTags trims tags and drops empty and duplicate entries, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Price keeps the textual form of a product price. The backend may send it as
// a JSON number or a JSON string; both decode. Values that are not numeric are
// preserved as-is and report NaN from Float64.
type Price struct {
	raw string
}

func ParsePrice(s string) Price {
	return Price{raw: strings.TrimSpace(s)}
}

func PriceFromFloat(f float64) Price {
	return Price{raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

func PriceFromDecimal(d decimal.Decimal) Price {
	return Price{raw: d.String()}
}

func (p Price) String() string { return p.raw }

func (p Price) IsZero() bool { return p.raw == "" }

func (p Price) Decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(p.raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid price %q: %w", p.raw, err)
	}
	return d, nil
}

func (p Price) Valid() bool {
	_, err := p.Decimal()
	return err == nil
}

// Float64 returns the numeric value, or NaN when the price does not parse.
func (p Price) Float64() float64 {
	d, err := p.Decimal()
	if err != nil {
		return math.NaN()
	}
	return d.InexactFloat64()
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p.raw == "" {
		return []byte("null"), nil
	}
	if d, err := p.Decimal(); err == nil {
		return []byte(d.String()), nil
	}
	return json.Marshal(p.raw)
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		p.raw = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode price: %w", err)
		}
		p.raw = strings.TrimSpace(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode price: %w", err)
		}
		p.raw = n.String()
	}
	return nil
}

// Scan reads a NUMERIC column.
func (p *Price) Scan(src interface{}) error {
	var d decimal.NullDecimal
	if err := d.Scan(src); err != nil {
		return err
	}
	if !d.Valid {
		p.raw = ""
		return nil
	}
	p.raw = d.Decimal.String()
	return nil
}

func (p Price) Value() (driver.Value, error) {
	if p.raw == "" {
		return nil, nil
	}
	d, err := p.Decimal()
	if err != nil {
		return nil, err
	}
	return d.String(), nil
}

var (
	ErrTitleRequired = errors.New("title is required")
	ErrPriceRequired = errors.New("price is required")
	ErrPriceInvalid  = errors.New("price must be a non-negative number")
)

// ProductDraft is the editable state of the "create product" form.
type ProductDraft struct {
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Price       string
	Tags        []string
}

func NewProductDraft() ProductDraft {
	return ProductDraft{ProductType: DefaultProductType, Tags: []string{}}
}

// AddTag appends a trimmed tag. Empty and duplicate tags are rejected.
func (d *ProductDraft) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, existing := range d.Tags {
		if existing == tag {
			return false
		}
	}
	d.Tags = append(d.Tags, tag)
	return true
}

func (d *ProductDraft) RemoveTag(tag string) {
	kept := d.Tags[:0]
	for _, existing := range d.Tags {
		if existing != tag {
			kept = append(kept, existing)
		}
	}
	d.Tags = kept
}

// CanSubmit mirrors the disabled state of the submit button.
func (d ProductDraft) CanSubmit() bool {
	return d.Title != "" && d.Price != ""
}

func (d ProductDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(d.Price) == "" {
		return ErrPriceRequired
	}
	f := ParsePrice(d.Price).Float64()
	if math.IsNaN(f) || f < 0 {
		return ErrPriceInvalid
	}
	return nil
}

func (d ProductDraft) CreateRequest() (CreateProductRequest, error) {
	if err := d.Validate(); err != nil {
		return CreateProductRequest{}, err
	}
	price := ParsePrice(d.Price).Float64()
	req := CreateProductRequest{
		Title:       d.Title,
		BodyHTML:    d.BodyHTML,
		Vendor:      d.Vendor,
		ProductType: d.ProductType,
		Price:       &price,
		Tags:        append([]string{}, d.Tags...),
	}
	if req.ProductType == "" {
		req.ProductType = DefaultProductType
	}
	return req, nil
}
