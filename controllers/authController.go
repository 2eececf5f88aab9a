package controllers

import (
	"errors"

	"equiherds-backend/auth"
	"equiherds-backend/database"
	"equiherds-backend/logging"
	"equiherds-backend/middlewares"
	"equiherds-backend/models"
	"equiherds-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// AuthController serves registration, login and the caller's own profile.
type AuthController struct {
	users     database.UserStore
	tokens    *auth.TokenService
	passwords *auth.PasswordHasher
}

func NewAuthController(users database.UserStore, tokens *auth.TokenService, passwords *auth.PasswordHasher) *AuthController {
	return &AuthController{users: users, tokens: tokens, passwords: passwords}
}

type registerRequest struct {
	FirstName       string         `json:"first_name" validate:"required,max=100"`
	LastName        string         `json:"last_name" validate:"required,max=100"`
	Email           string         `json:"email" validate:"required,email,max=254"`
	Password        string         `json:"password" validate:"required,min=8,max=72" normalize:"-"`
	PasswordConfirm string         `json:"password_confirm" validate:"required" normalize:"-"`
	Role            string         `json:"role" validate:"omitempty,oneof=user seller stable_owner"`
	Profile         map[string]any `json:"profile"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required" normalize:"-"`
}

type updateMeRequest struct {
	FirstName *string        `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string        `json:"last_name" validate:"omitempty,min=1,max=100"`
	Profile   map[string]any `json:"profile"`
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	if req.Password != req.PasswordConfirm {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "passwords do not match",
		})
	}

	ctx := c.UserContext()
	if _, err := a.users.FindByEmail(ctx, req.Email); err == nil {
		return emailTaken(c)
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     models.NormalizeEmail(req.Email),
		Role:      req.Role,
	}
	if req.Profile != nil {
		user.Profile = datatypes.JSONMap(req.Profile)
	}
	if err := user.SetPassword(a.passwords, req.Password); err != nil {
		// max=72 counts runes, bcrypt counts bytes.
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "password too long")
		}
		return err
	}

	if err := a.users.Create(ctx, &user); err != nil {
		// Lost a race with a concurrent registration for the same address.
		if errors.Is(err, database.ErrDuplicate) {
			return emailTaken(c)
		}
		return err
	}

	logging.FromContext(ctx).Info().Str("user_id", user.Id).Str("role", user.Role).Msg("user registered")
	return c.Status(fiber.StatusCreated).JSON(user)
}

func emailTaken(c *fiber.Ctx) error {
	c.Status(fiber.StatusBadRequest)
	return c.JSON(fiber.Map{
		"message": "email already exists",
	})
}

// Login answers unknown email and wrong password identically, including the
// time spent hashing.
func (a *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := a.users.FindByEmail(c.UserContext(), req.Email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		a.passwords.VerifyMissing(req.Password)
		return invalidCredentials(c)
	case err != nil:
		return err
	}

	if !user.ComparePassword(a.passwords, req.Password) {
		return invalidCredentials(c)
	}

	token, err := a.tokens.Issue(user.Id, user.Email, user.Role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int64(a.tokens.TTL().Seconds()),
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.FullName(),
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func invalidCredentials(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	c.Status(fiber.StatusUnauthorized)
	return c.JSON(fiber.Map{
		"message": "invalid credentials",
	})
}

// Logout is a no-op on the server: tokens are not tracked, clients drop them.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "success",
	})
}

func (a *AuthController) Me(c *fiber.Ctx) error {
	claims, ok := middlewares.ClaimsFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}
	user, err := a.users.FindByID(c.UserContext(), claims.Subject)
	if errors.Is(err, database.ErrNotFound) {
		return auth.ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (a *AuthController) UpdateMe(c *fiber.Ctx) error {
	claims, ok := middlewares.ClaimsFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}

	var req updateMeRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	updates := utils.UpdatesFromPtrDTO(&req, nil)
	if req.Profile != nil {
		updates["profile"] = datatypes.JSONMap(req.Profile)
	}

	user, err := a.users.Update(c.UserContext(), claims.Subject, updates)
	if errors.Is(err, database.ErrNotFound) {
		return auth.ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	return c.JSON(user)
}
