package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/services"
	"github.com/yoockh/intervue/internal/storage"
	"github.com/yoockh/intervue/internal/utils"
)

const audioURLTTL = 15 * time.Minute

// EventsHandler exposes the raw session event buffer for debugging.
// Admin-only; events with archived audio get a short-lived signed URL.
type EventsHandler struct {
	buffers services.BufferService
	signer  storage.Signer
}

func NewEventsHandler(buffers services.BufferService, signer storage.Signer) *EventsHandler {
	return &EventsHandler{buffers: buffers, signer: signer}
}

type sessionEventView struct {
	models.SessionEvent
	AudioURL string `json:"audio_url,omitempty"`
}

func (h *EventsHandler) ListByInterview(c *gin.Context) {
	interviewID := c.Param("interview_id")
	if interviewID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EventsHandler.ListByInterview", "missing interview_id", nil))
		return
	}

	var limit int64
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.ParseInt(v, 10, 64)
	}

	events, err := h.buffers.ListByInterview(c.Request.Context(), interviewID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]sessionEventView, 0, len(events))
	for _, ev := range events {
		view := sessionEventView{SessionEvent: ev}
		if ev.AudioPath != "" && h.signer != nil {
			if url, serr := h.signer.SignedGetURL(c.Request.Context(), ev.AudioPath, audioURLTTL); serr == nil {
				view.AudioURL = url
			}
		}
		out = append(out, view)
	}

	c.JSON(http.StatusOK, gin.H{"events": out})
}
