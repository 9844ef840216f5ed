package client

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mabletask/admin/models"
)

const testToken = "token-123"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend is a minimal in-memory version of the admin API.
type fakeBackend struct {
	server *httptest.Server

	mu       sync.Mutex
	products []models.Product
	events   []models.Event
	lastID   string
	hits     map[string]int

	// beforeEvents, when set, runs before GET /api/events responds.
	beforeEvents func(c *gin.Context)
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{hits: make(map[string]int)}

	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(func(c *gin.Context) {
		b.mu.Lock()
		b.hits[c.Request.Method+" "+c.FullPath()]++
		b.mu.Unlock()
		c.Next()
	})

	r.POST("/api/auth/signin", func(c *gin.Context) {
		var req models.SigninRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Password != "correct-horse" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": testToken,
			"token_type":   "Bearer",
			"user":         gin.H{"id": 1, "email": req.Email, "name": "Ada"},
		})
	})
	r.POST("/api/auth/signup", func(c *gin.Context) {
		var req models.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Email == "taken@example.com" {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
	})
	r.POST("/api/auth/signout", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
	})
	r.GET("/api/events", func(c *gin.Context) {
		b.mu.Lock()
		hook := b.beforeEvents
		b.mu.Unlock()
		if hook != nil {
			hook(c)
			if c.IsAborted() {
				return
			}
		}
		b.mu.Lock()
		events := append([]models.Event{}, b.events...)
		b.mu.Unlock()
		c.JSON(http.StatusOK, models.EventsResponse{Events: events, Count: len(events)})
	})

	auth := r.Group("/api/products", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+testToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}
		c.Next()
	})
	auth.GET("", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		c.JSON(http.StatusOK, models.ProductsResponse{Products: append([]models.Product{}, b.products...)})
	})
	auth.POST("", func(c *gin.Context) {
		var req models.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		p := req.Product("gid://mable/Product/new")
		b.mu.Lock()
		b.products = append(b.products, p)
		b.mu.Unlock()
		c.JSON(http.StatusCreated, p)
	})
	auth.PUT("/:id", func(c *gin.Context) {
		var p models.Product
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastID = c.Param("id")
		for i := range b.products {
			if b.products[i].ID == b.lastID {
				p.ID = b.lastID
				b.products[i] = p
				c.JSON(http.StatusOK, p)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	})
	auth.DELETE("/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastID = c.Param("id")
		for i := range b.products {
			if b.products[i].ID == b.lastID {
				b.products = append(b.products[:i], b.products[i+1:]...)
				c.Status(http.StatusNoContent)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	})

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

// Hits counts requests by method and route pattern, e.g. "GET /api/products".
func (b *fakeBackend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func (b *fakeBackend) LastID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastID
}

func newTestSession(t *testing.T) (*Session, *MemoryTokenStore, *MemoryTokenStore) {
	t.Helper()
	durable, ephemeral := NewMemoryTokenStore(), NewMemoryTokenStore()
	s, err := NewSession(durable, ephemeral, zap.NewNop())
	require.NoError(t, err)
	return s, durable, ephemeral
}

// signedInClient returns a client whose session already holds testToken.
func signedInClient(t *testing.T, b *fakeBackend) *Client {
	t.Helper()
	s, _, _ := newTestSession(t)
	require.NoError(t, s.Store(Credentials{Token: testToken}, false))
	return New(b.server.URL, s)
}

// recorder collects notifications.
type recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

func (r *recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.all))
	for i, n := range r.all {
		out[i] = n.Title
	}
	return out
}

func (r *recorder) Last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}
	}
	return r.all[len(r.all)-1]
}
