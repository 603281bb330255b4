package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/intervue/internal/services"
)

type UserHandler struct {
	svc services.UserService
}

func NewUserHandler(svc services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) HasProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	has, err := h.svc.HasProfile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_profile": has})
}
