package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/services"
	"github.com/yoockh/intervue/internal/utils"
)

type InterviewHandler struct {
	interviews services.InterviewService
	feedback   services.FeedbackService
}

func NewInterviewHandler(interviews services.InterviewService, feedback services.FeedbackService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, feedback: feedback}
}

func (h *InterviewHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateInterviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Create", "invalid request body", err))
		return
	}

	iv, err := h.interviews.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, iv)
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	iv, err := h.interviews.Get(c.Request.Context(), userID, c.Param("interview_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, iv)
}

func (h *InterviewHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var limit int64
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.ParseInt(v, 10, 64)
	}

	out, err := h.interviews.List(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": out})
}

type SaveTranscriptRequest struct {
	InterviewID string           `json:"interviewId"`
	Messages    []models.Message `json:"messages"`
}

// SaveTranscript takes the client-side message log of a finished session and
// runs the persistence pipeline. The transcript write is the hard part of the
// contract: once it lands, the response is 200 even when feedback generation
// fails, with the pending message telling the client to poll later.
func (h *InterviewHandler) SaveTranscript(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SaveTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if req.InterviewID == "" || len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	res, err := h.feedback.SaveTranscript(c.Request.Context(), userID, req.InterviewID, req.Messages)
	if err != nil {
		if utils.IsCode(err, utils.CodeInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		if utils.IsCode(err, utils.CodeNotFound) || utils.IsCode(err, utils.CodeForbidden) {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if res.Pending {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Transcript saved, feedback generation pending",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"feedbackId": res.FeedbackID,
	})
}
