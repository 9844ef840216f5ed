package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mabletask/admin/apperrors"
	"mabletask/admin/middleware"
	"mabletask/admin/models"
	"mabletask/admin/store"
	"mabletask/admin/utils"
)

var emailValidator = validator.New()

// normalizeEmail trims and lowercases raw, then checks the result is an address.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := emailValidator.Var(email, "required,email"); err != nil {
		return "", err
	}
	return email, nil
}

type AuthHandlers struct {
	users        UserRepository
	issuer       *utils.TokenIssuer
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandlers(users UserRepository, issuer *utils.TokenIssuer, secureCookie bool, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{users: users, issuer: issuer, secureCookie: secureCookie, logger: logger}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid request body", err))
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid email address", err))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.String("email", email), zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to process password", err))
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), email, strings.TrimSpace(req.Name), hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			apperrors.Respond(c, apperrors.Conflict("User with this email already exists"))
			return
		}
		h.logger.Error("Failed to create user", zap.String("email", email), zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to register user", err))
		return
	}

	h.logger.Info("User registered", zap.Int("user_id", user.ID), zap.String("email", user.Email))
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}

// Signin checks the credentials and returns a bearer token. The same token is
// set as an HTTP-only cookie for browser clients.
func (h *AuthHandlers) Signin(c *gin.Context) {
	var req models.SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid request body", err))
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid email address", err))
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.logger.Info("Signin failed: unknown email", zap.String("email", email))
			apperrors.Respond(c, apperrors.Unauthorized("Invalid credentials"))
			return
		}
		h.logger.Error("Signin lookup failed", zap.String("email", email), zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to sign in", err))
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		h.logger.Info("Signin failed: password mismatch", zap.String("email", email))
		apperrors.Respond(c, apperrors.Unauthorized("Invalid credentials"))
		return
	}

	token, _, err := h.issuer.Generate(user)
	if err != nil {
		h.logger.Error("Failed to generate JWT", zap.Int("user_id", user.ID), zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to generate authentication token", err))
		return
	}

	ttl := h.issuer.TTL()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(ttl.Seconds()), "/", "", h.secureCookie, true)

	h.logger.Info("User signed in", zap.Int("user_id", user.ID))
	c.JSON(http.StatusOK, models.SigninResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		User:        user,
	})
}

func (h *AuthHandlers) Signout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
}

// Profile returns the signed-in user. Requests authenticated by API key have no user.
func (h *AuthHandlers) Profile(c *gin.Context) {
	userID := c.GetInt(middleware.ContextUserID)
	if userID == 0 {
		apperrors.Respond(c, apperrors.Unauthorized("Unauthorized: no user session"))
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apperrors.Respond(c, apperrors.NotFound("User not found"))
			return
		}
		apperrors.Respond(c, apperrors.Internal("Failed to load profile", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "ip_address": c.ClientIP()})
}
