package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/intervue/internal/services"
)

type FeedbackHandler struct {
	svc services.FeedbackService
}

func NewFeedbackHandler(svc services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

func (h *FeedbackHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fb, err := h.svc.GetByFeedbackID(c.Request.Context(), userID, c.Param("feedback_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, fb)
}

func (h *FeedbackHandler) GetByInterview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fb, err := h.svc.GetByInterviewID(c.Request.Context(), userID, c.Param("interview_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, fb)
}
