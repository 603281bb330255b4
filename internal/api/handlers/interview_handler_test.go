package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/services"
	"github.com/yoockh/intervue/internal/utils"
)

type stubFeedbackService struct {
	result *services.SaveTranscriptResult
	err    error

	gotUserID      string
	gotInterviewID string
	gotMessages    []models.Message
	calls          int
}

func (s *stubFeedbackService) SaveTranscript(ctx context.Context, userID, interviewID string, messages []models.Message) (*services.SaveTranscriptResult, error) {
	s.calls++
	s.gotUserID = userID
	s.gotInterviewID = interviewID
	s.gotMessages = messages
	return s.result, s.err
}

func (s *stubFeedbackService) Generate(ctx context.Context, interviewID string) (string, error) {
	return "", nil
}

func (s *stubFeedbackService) GetByFeedbackID(ctx context.Context, userID, feedbackID string) (*models.InterviewFeedback, error) {
	return nil, utils.ErrNotFound
}

func (s *stubFeedbackService) GetByInterviewID(ctx context.Context, userID, interviewID string) (*models.InterviewFeedback, error) {
	return nil, utils.ErrNotFound
}

type stubInterviewService struct{}

func (s *stubInterviewService) Create(ctx context.Context, userID string, in services.CreateInterviewInput) (*models.Interview, error) {
	return &models.Interview{InterviewID: "iv-new", UserID: userID, Role: in.Role, Level: in.Level}, nil
}

func (s *stubInterviewService) Get(ctx context.Context, userID, interviewID string) (*models.Interview, error) {
	return nil, utils.E(utils.CodeNotFound, "stub", "interview not found", nil)
}

func (s *stubInterviewService) List(ctx context.Context, userID string, limit int64) ([]models.Interview, error) {
	return nil, nil
}

func (s *stubInterviewService) SetStatus(ctx context.Context, interviewID, status string) error {
	return nil
}

func newTestRouter(fb *stubFeedbackService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})

	h := NewInterviewHandler(&stubInterviewService{}, fb)
	r.POST("/interviews/save-transcript", h.SaveTranscript)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSaveTranscriptHandler(t *testing.T) {
	t.Run("missing interview id is 400 and nothing is persisted", func(t *testing.T) {
		fb := &stubFeedbackService{}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript", `{"messages":[{"role":"user","content":"hi"}]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Missing required fields"}`, w.Body.String())
		assert.Equal(t, 0, fb.calls)
	})

	t.Run("empty messages is 400", func(t *testing.T) {
		fb := &stubFeedbackService{}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript", `{"interviewId":"iv-1","messages":[]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, fb.calls)
	})

	t.Run("malformed json is 400", func(t *testing.T) {
		fb := &stubFeedbackService{}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript", `{"interviewId":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, fb.calls)
	})

	t.Run("success returns the feedback id", func(t *testing.T) {
		fb := &stubFeedbackService{result: &services.SaveTranscriptResult{FeedbackID: "fb-123"}}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript",
			`{"interviewId":"iv-1","messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "fb-123", resp["feedbackId"])

		assert.Equal(t, "user-1", fb.gotUserID)
		assert.Equal(t, "iv-1", fb.gotInterviewID)
		assert.Len(t, fb.gotMessages, 2)
	})

	t.Run("pending generation is still 200", func(t *testing.T) {
		fb := &stubFeedbackService{result: &services.SaveTranscriptResult{Pending: true}}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript",
			`{"interviewId":"iv-1","messages":[{"role":"user","content":"hi"}]}`)

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "Transcript saved, feedback generation pending", resp["message"])
		assert.Nil(t, resp["feedbackId"])
	})

	t.Run("pipeline failure is 500", func(t *testing.T) {
		fb := &stubFeedbackService{err: utils.E(utils.CodeInternal, "FeedbackService.SaveTranscript", "failed to save transcript", nil)}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript",
			`{"interviewId":"iv-1","messages":[{"role":"user","content":"hi"}]}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	})

	t.Run("unknown interview is 404", func(t *testing.T) {
		fb := &stubFeedbackService{err: utils.E(utils.CodeNotFound, "FeedbackService.SaveTranscript", "interview not found", nil)}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript",
			`{"interviewId":"missing","messages":[{"role":"user","content":"hi"}]}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("foreign interview is 403", func(t *testing.T) {
		fb := &stubFeedbackService{err: utils.E(utils.CodeForbidden, "FeedbackService.SaveTranscript", "interview belongs to another user", nil)}
		r := newTestRouter(fb)

		w := postJSON(r, "/interviews/save-transcript",
			`{"interviewId":"iv-1","messages":[{"role":"user","content":"hi"}]}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
