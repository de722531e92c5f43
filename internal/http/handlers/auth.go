package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"taskhive/internal/domain"
	"taskhive/internal/logger"
	"taskhive/internal/service"

	"github.com/gin-gonic/gin"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validate checks input shape only; forLogin skips the length rule because
// login must not reveal which rule an existing password would break.
func (r *credentialsRequest) validate(forLogin bool) map[string]string {
	errs := make(map[string]string)
	if !emailRe.MatchString(r.Email) {
		errs["email"] = "invalid email address"
	}
	if forLogin {
		if r.Password == "" {
			errs["password"] = "password is required"
		}
	} else if len(r.Password) < 6 {
		errs["password"] = "password must be at least 6 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if errs := req.validate(false); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.Error("register: lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	hash, err := service.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		logger.Error("register: hash failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	user := &domain.User{Email: req.Email, PasswordHash: hash}
	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
			return
		}
		logger.Error("register: create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "userId": user.ID})
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if errs := req.validate(true); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// same response as a wrong password: do not reveal which part failed
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		logger.Error("login: lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	if !service.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	accessToken, err := h.Tokens.IssueAccess(user.ID)
	if err != nil {
		logger.Error("login: issue access token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	refreshToken, err := h.Tokens.IssueRefresh(user.ID)
	if err != nil {
		logger.Error("login: issue refresh token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken, "refreshToken": refreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh trades a valid refresh token for a fresh access token.
// The refresh token itself is not rotated.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	// a missing or malformed body is treated as "no token offered", hence 401
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token required"})
		return
	}

	userID, err := h.Tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "Invalid refresh token"})
		return
	}

	accessToken, err := h.Tokens.IssueAccess(userID)
	if err != nil {
		logger.Error("refresh: issue access token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}
