package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecowatcher/backend/internal/services"
	"github.com/ecowatcher/backend/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	accounts *services.AccountService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Register creates a penyumbang account awaiting verification.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.accounts.Register(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	user, token, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":  user,
			"token": token,
		},
	})
}

// UserHandler serves the admin user management endpoints (pengguna).
type UserHandler struct {
	accounts *services.AccountService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// ListUsers returns non-admin users, optionally filtered.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	users, total, err := h.accounts.ListUsers(c.UserContext(), services.UserFilter{
		Level:  c.Query("level"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		Offset: pg.Offset,
		Limit:  pg.Limit,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": users, "pagination": pg.Meta(total)})
}

type idRequest struct {
	ID string `json:"id"`
}

// Verify activates a user account.
func (h *UserHandler) Verify(c *fiber.Ctx) error {
	var req idRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	user, err := h.accounts.Verify(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

// AddCourier creates an active kurir account.
func (h *UserHandler) AddCourier(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.accounts.AddCourier(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": user})
}
