package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-reporter/internal/api/dto"
	"github.com/spec-kit/civic-reporter/internal/service"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, userService *service.UserService) *UsersHandler {
	return &UsersHandler{auth: authService, users: userService}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User registered successfully", authResponse(result))
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Login successful", authResponse(result))
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", fiber.Map{"user": dto.NewUserResponse(principal.User)})
}

// Leaderboard handles GET /users/leaderboard.
func (h *UsersHandler) Leaderboard(c *fiber.Ctx) error {
	users, err := h.users.Leaderboard(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	out := make([]dto.PublicUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.NewPublicUserResponse(u))
	}
	return respond(c, http.StatusOK, "", fiber.Map{"users": out})
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", fiber.Map{"user": dto.NewPublicUserResponse(*user)})
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	}
}
