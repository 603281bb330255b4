package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/intervue/internal/models"
)

type stubTurnRepo struct {
	rows       []models.TurnRecord
	gotUserID  string
	gotLimit   int
	gotLatestN int
}

func (r *stubTurnRepo) Insert(ctx context.Context, turn *models.TurnRecord) error { return nil }

func (r *stubTurnRepo) ListByInterview(ctx context.Context, userID, interviewID string, limit int) ([]models.TurnRecord, error) {
	r.gotUserID = userID
	r.gotLimit = limit
	return r.rows, nil
}

func (r *stubTurnRepo) LatestN(ctx context.Context, userID string, n int) ([]models.TurnRecord, error) {
	r.gotUserID = userID
	r.gotLatestN = n
	return r.rows, nil
}

func newTurnRouter(repo *stubTurnRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})

	h := NewTurnHandler(repo)
	r.GET("/interviews/:interview_id/turns", h.ListByInterview)
	r.GET("/users/me/turns", h.Latest)
	return r
}

func TestTurnHandler(t *testing.T) {
	t.Run("lists an interview's turns scoped to the caller", func(t *testing.T) {
		repo := &stubTurnRepo{rows: []models.TurnRecord{
			{ID: "t-1", InterviewID: "iv-1", Role: models.RoleCandidate, Content: "hi", Timestamp: time.Now().UTC()},
		}}
		r := newTurnRouter(repo)

		req := httptest.NewRequest(http.MethodGet, "/interviews/iv-1/turns?limit=25", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-1", repo.gotUserID)
		assert.Equal(t, 25, repo.gotLimit)

		var resp map[string][]models.TurnRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp["turns"], 1)
		assert.Equal(t, "t-1", resp["turns"][0].ID)
	})

	t.Run("latest turns default the window", func(t *testing.T) {
		repo := &stubTurnRepo{}
		r := newTurnRouter(repo)

		req := httptest.NewRequest(http.MethodGet, "/users/me/turns", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-1", repo.gotUserID)
		assert.Equal(t, 0, repo.gotLatestN)
	})
}
