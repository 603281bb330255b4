package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	pgrepo "github.com/yoockh/intervue/internal/repositories/postgres"
	"github.com/yoockh/intervue/internal/utils"
)

// TurnHandler serves the relational turn log. Both queries are scoped to the
// caller's user id, so a foreign interview id just comes back empty.
type TurnHandler struct {
	turns pgrepo.TurnRepository
}

func NewTurnHandler(turns pgrepo.TurnRepository) *TurnHandler {
	return &TurnHandler{turns: turns}
}

func (h *TurnHandler) ListByInterview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")
	if interviewID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TurnHandler.ListByInterview", "missing interview_id", nil))
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	rows, err := h.turns.ListByInterview(c.Request.Context(), userID, interviewID, limit)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "TurnHandler.ListByInterview", "failed to list turns", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"turns": rows})
}

// Latest returns the caller's most recent turns across all interviews.
func (h *TurnHandler) Latest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	n := 0
	if v := c.Query("limit"); v != "" {
		n, _ = strconv.Atoi(v)
	}

	rows, err := h.turns.LatestN(c.Request.Context(), userID, n)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "TurnHandler.Latest", "failed to list turns", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"turns": rows})
}
