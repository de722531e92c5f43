package handlers

import (
	"taskhive/internal/domain"
	"taskhive/internal/http/middleware"
	"taskhive/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Users      domain.UserRepository
	Tasks      domain.TaskRepository
	Tokens     *service.TokenService
	BcryptCost int
}

func NewHandler(users domain.UserRepository, tasks domain.TaskRepository, tokens *service.TokenService, bcryptCost int) *Handler {
	if bcryptCost <= 0 {
		bcryptCost = service.DefaultBcryptCost
	}
	return &Handler{
		Users:      users,
		Tasks:      tasks,
		Tokens:     tokens,
		BcryptCost: bcryptCost,
	}
}

// getUserID extracts the verified identity set by the auth middleware.
func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
