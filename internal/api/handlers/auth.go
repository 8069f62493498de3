package handlers

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/tkellner/homelab-manager/internal/apperr"
	"github.com/tkellner/homelab-manager/internal/auth"
	"github.com/tkellner/homelab-manager/internal/db"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// Passwords need at least one lower, one upper and one digit.
var (
	hasLower = regexp.MustCompile(`[a-z]`)
	hasUpper = regexp.MustCompile(`[A-Z]`)
	hasDigit = regexp.MustCompile(`[0-9]`)
)

type RegisterRequest struct {
	Username  string  `json:"username" binding:"required,min=3,max=50"`
	Email     string  `json:"email" binding:"required,email,max=100"`
	Password  string  `json:"password" binding:"required,min=8"`
	FirstName *string `json:"first_name" binding:"omitempty,max=50"`
	LastName  *string `json:"last_name" binding:"omitempty,max=50"`
	Role      string  `json:"role" binding:"omitempty,oneof=user admin"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type authPayload struct {
	User  *db.User `json:"user"`
	Token string   `json:"token"`
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		h.fail(c, validationError("username", `may only contain letters, numbers, "." and "_"`))
		return
	}
	if !hasLower.MatchString(req.Password) || !hasUpper.MatchString(req.Password) || !hasDigit.MatchString(req.Password) {
		h.fail(c, validationError("password", "must contain at least one uppercase letter, one lowercase letter and one number"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	role := db.RoleUser
	if req.Role != "" {
		role = db.Role(req.Role)
	}

	user := &db.User{
		Username:                req.Username,
		Email:                   req.Email,
		PasswordHash:            hash,
		Role:                    role,
		FirstName:               req.FirstName,
		LastName:                req.LastName,
		NotificationPreferences: db.DefaultNotificationPreferences(),
	}

	if err := h.store.CreateUser(user); err != nil {
		h.fail(c, storeErr(err, "User not found", "Username or email already exists"))
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "User registered successfully", authPayload{User: user, Token: token})
}

// Login handles POST /api/v1/auth/login. Unknown identifier and wrong
// password produce the same message.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.store.GetUserByIdentifier(req.Identifier)
	if err != nil {
		h.fail(c, apperr.New(apperr.Authentication, "Invalid credentials"))
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		h.fail(c, apperr.New(apperr.Authentication, "Invalid credentials"))
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Login successful", authPayload{User: user, Token: token})
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.store.GetUserByID(actor(c).ID)
	if err != nil {
		h.fail(c, storeErr(err, "User not found", ""))
		return
	}
	respond(c, http.StatusOK, "Profile retrieved successfully", user)
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so this is
// a no-op acknowledgment; clients discard the token.
func (h *Handler) Logout(c *gin.Context) {
	respond(c, http.StatusOK, "Logout successful", nil)
}

func (h *Handler) issueToken(user *db.User) (string, error) {
	return auth.GenerateToken(
		user.ID, user.Username, user.Role,
		h.config.JWT.Secret, h.config.JWT.Issuer, h.config.JWT.ExpiresIn,
	)
}
