package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventbook/event-booking-api/internal/config"
	"github.com/eventbook/event-booking-api/internal/model"
	"github.com/eventbook/event-booking-api/internal/repository"
	"github.com/eventbook/event-booking-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authData is the payload returned by register and login.
type authData struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

// Register creates a user account and returns a token immediately.
// Registration always produces the "user" role; admins come from seeding.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	errs := make([]FieldError, 0, 4)
	if req.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		errs = append(errs, FieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, FieldError{Field: "password", Message: "password must be at least 6 characters"})
	}
	if req.Phone == "" {
		errs = append(errs, FieldError{Field: "phone", Message: "phone is required"})
	}
	if len(errs) > 0 {
		return respondValidation(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, req.Phone, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return respondError(c, http.StatusConflict, "email already exists")
		}
		c.Logger().Errorf("register: create user: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, model.RoleUser, h.Cfg.AccessTTLMin)
	if err != nil {
		c.Logger().Errorf("register: issue token: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}

	return respondData(c, http.StatusCreated, authData{
		ID: uid, Name: req.Name, Email: req.Email, Role: model.RoleUser, Token: access.Token,
	})
}

// Login verifies credentials and returns a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondError(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return respondError(c, http.StatusUnauthorized, "invalid credentials")
		}
		c.Logger().Errorf("login: query user: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	if !u.IsActive {
		return respondError(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return respondError(c, http.StatusUnauthorized, "invalid credentials")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		c.Logger().Errorf("login: issue token: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}

	return respondData(c, http.StatusOK, authData{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Token: access.Token,
	})
}

// Me returns the authenticated caller's identity from the token claims.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return respondError(c, http.StatusUnauthorized, "unauthorized")
		}
		c.Logger().Errorf("me: load user: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondData(c, http.StatusOK, echo.Map{
		"id": u.ID, "name": u.Name, "email": u.Email, "phone": u.Phone, "role": u.Role,
	})
}
