package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/providers/llm"
	"github.com/yoockh/intervue/internal/utils"
)

type fakeInterviewRepo struct {
	byID map[string]*models.Interview

	saveErr         error
	linkErr         error
	savedID         string
	savedMessages   []models.Message
	savedTranscript string
	linkedFeedback  string
}

func newFakeInterviewRepo(ivs ...*models.Interview) *fakeInterviewRepo {
	r := &fakeInterviewRepo{byID: map[string]*models.Interview{}}
	for _, iv := range ivs {
		r.byID[iv.InterviewID] = iv
	}
	return r
}

func (r *fakeInterviewRepo) Create(ctx context.Context, iv *models.Interview) error {
	r.byID[iv.InterviewID] = iv
	return nil
}

func (r *fakeInterviewRepo) GetByInterviewID(ctx context.Context, id string) (*models.Interview, error) {
	iv, ok := r.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *iv
	return &cp, nil
}

func (r *fakeInterviewRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error) {
	var out []models.Interview
	for _, iv := range r.byID {
		if iv.UserID == userID {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (r *fakeInterviewRepo) SetStatus(ctx context.Context, id, status string) error {
	if iv, ok := r.byID[id]; ok {
		iv.Status = status
	}
	return nil
}

func (r *fakeInterviewRepo) SaveTranscript(ctx context.Context, id, transcript string, messages []models.Message, finishedAt time.Time) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	iv, ok := r.byID[id]
	if !ok {
		return utils.ErrNotFound
	}
	r.savedID = id
	r.savedTranscript = transcript
	r.savedMessages = messages
	iv.Transcript = transcript
	iv.Messages = messages
	iv.Status = models.InterviewStatusCompleted
	if iv.FinishedAt == nil {
		t := finishedAt
		iv.FinishedAt = &t
	}
	return nil
}

func (r *fakeInterviewRepo) SetFeedbackID(ctx context.Context, id, feedbackID string) error {
	if r.linkErr != nil {
		return r.linkErr
	}
	if iv, ok := r.byID[id]; ok {
		iv.FeedbackID = feedbackID
	}
	r.linkedFeedback = feedbackID
	return nil
}

type fakeFeedbackRepo struct {
	upsertErr error
	byID      map[string]*models.InterviewFeedback
	upserts   int
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{byID: map[string]*models.InterviewFeedback{}}
}

func (r *fakeFeedbackRepo) Upsert(ctx context.Context, fb *models.InterviewFeedback) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts++
	cp := *fb
	r.byID[fb.FeedbackID] = &cp
	return nil
}

func (r *fakeFeedbackRepo) GetByFeedbackID(ctx context.Context, id string) (*models.InterviewFeedback, error) {
	fb, ok := r.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return fb, nil
}

func (r *fakeFeedbackRepo) GetByInterviewID(ctx context.Context, id string) (*models.InterviewFeedback, error) {
	for _, fb := range r.byID {
		if fb.InterviewID == id {
			return fb, nil
		}
	}
	return nil, utils.ErrNotFound
}

type fakeLLM struct {
	out string
	err error

	lastPrompt string
	lastOpts   llm.GenerateOptions
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	f.lastPrompt = prompt
	f.lastOpts = opts
	return f.out, f.err
}

func (f *fakeLLM) Close() error { return nil }

const validFeedbackJSON = `{
  "totalScore": 78,
  "categoryScores": [
    {"name": "Communication", "score": 80, "comment": "clear"},
    {"name": "Technical Knowledge", "score": 75, "comment": "solid"},
    {"name": "Problem Solving", "score": 82, "comment": "methodical"},
    {"name": "Cultural Fit", "score": 70, "comment": "fine"},
    {"name": "Confidence & Clarity", "score": 83, "comment": "calm"}
  ],
  "strengths": ["structure", "depth"],
  "areasForImprovement": ["pacing"],
  "overallFeedback": "A solid performance overall."
}`

func testInterview() *models.Interview {
	return &models.Interview{
		InterviewID: "iv-1",
		UserID:      "user-1",
		Role:        "Backend Engineer",
		Level:       "senior",
		Techstack:   "Go, Postgres",
		Questions:   []string{"Describe a hard bug you fixed."},
		Status:      models.InterviewStatusPending,
	}
}

func testMessages() []models.Message {
	return []models.Message{
		{Role: models.RoleInterviewer, Content: "Tell me about yourself"},
		{Role: models.RoleCandidate, Content: "I build backend services"},
	}
}

func newTestFeedbackService(ivRepo *fakeInterviewRepo, fbRepo *fakeFeedbackRepo, provider *fakeLLM) FeedbackService {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewFeedbackService(ivRepo, fbRepo, provider, nil, nil, l)
}

func TestRenderTranscript(t *testing.T) {
	out := RenderTranscript(testMessages())
	assert.Equal(t, "Interviewer: Tell me about yourself\n\nCandidate: I build backend services", out)
}

func TestFeedbackIDForIsDeterministic(t *testing.T) {
	a := FeedbackIDFor("iv-1")
	b := FeedbackIDFor("iv-1")
	c := FeedbackIDFor("iv-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		out, err := ExtractJSONObject(`{"a": 1}`)
		require.NoError(t, err)
		assert.Equal(t, `{"a": 1}`, out)
	})

	t.Run("object wrapped in prose and fences", func(t *testing.T) {
		out, err := ExtractJSONObject("Here you go:\n```json\n{\"a\": {\"b\": 2}}\n```\nHope that helps!")
		require.NoError(t, err)
		assert.Equal(t, `{"a": {"b": 2}}`, out)
	})

	t.Run("braces inside strings do not confuse the scan", func(t *testing.T) {
		out, err := ExtractJSONObject(`{"comment": "use {x} carefully"} trailing`)
		require.NoError(t, err)
		assert.Equal(t, `{"comment": "use {x} carefully"}`, out)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ExtractJSONObject("sorry, I cannot help with that")
		assert.Error(t, err)
	})

	t.Run("unterminated object", func(t *testing.T) {
		_, err := ExtractJSONObject(`{"a": 1`)
		assert.Error(t, err)
	})
}

func TestBuildFeedbackPrompt(t *testing.T) {
	iv := testInterview()
	prompt := BuildFeedbackPrompt(iv, "Interviewer: hi\n\nCandidate: hello")

	assert.Contains(t, prompt, "Role: Backend Engineer")
	assert.Contains(t, prompt, "Experience Level: senior")
	assert.Contains(t, prompt, "Tech Stack: Go, Postgres")
	assert.Contains(t, prompt, "Candidate: hello")
	for _, name := range models.RubricCategories {
		assert.Contains(t, prompt, name)
	}
	assert.Contains(t, prompt, `"totalScore"`)
	assert.Contains(t, prompt, `"areasForImprovement"`)
}

func TestSaveTranscript(t *testing.T) {
	t.Run("happy path returns feedback id and links it", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		fbRepo := newFakeFeedbackRepo()
		provider := &fakeLLM{out: "Sure!\n" + validFeedbackJSON}
		svc := newTestFeedbackService(ivRepo, fbRepo, provider)

		res, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)
		require.False(t, res.Pending)
		assert.Equal(t, FeedbackIDFor("iv-1"), res.FeedbackID)
		assert.Equal(t, res.FeedbackID, ivRepo.linkedFeedback)

		fb, err := fbRepo.GetByFeedbackID(context.Background(), res.FeedbackID)
		require.NoError(t, err)
		assert.Equal(t, "iv-1", fb.InterviewID)
		assert.Equal(t, "user-1", fb.UserID)
		assert.InDelta(t, 78, fb.TotalScore, 0.001)
		require.Len(t, fb.CategoryScores, 5)
		assert.Equal(t, models.RubricCategories[0], fb.CategoryScores[0].Name)

		assert.Equal(t, float32(0.7), provider.lastOpts.Temperature)
		assert.Equal(t, int32(2048), provider.lastOpts.MaxOutputTokens)
	})

	t.Run("transcript and messages are persisted before generation", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		fbRepo := newFakeFeedbackRepo()
		svc := newTestFeedbackService(ivRepo, fbRepo, &fakeLLM{err: errors.New("model down")})

		_, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)

		assert.Equal(t, "iv-1", ivRepo.savedID)
		assert.Len(t, ivRepo.savedMessages, 2)
		assert.Contains(t, ivRepo.savedTranscript, "Candidate: I build backend services")
		assert.Equal(t, models.InterviewStatusCompleted, ivRepo.byID["iv-1"].Status)
		assert.NotNil(t, ivRepo.byID["iv-1"].FinishedAt)
	})

	t.Run("generation failure is pending, not an error", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		fbRepo := newFakeFeedbackRepo()
		svc := newTestFeedbackService(ivRepo, fbRepo, &fakeLLM{err: errors.New("model down")})

		res, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)
		assert.True(t, res.Pending)
		assert.Empty(t, res.FeedbackID)
		assert.Equal(t, 0, fbRepo.upserts)
	})

	t.Run("unparseable model output is pending", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		svc := newTestFeedbackService(ivRepo, newFakeFeedbackRepo(), &fakeLLM{out: "I refuse to produce JSON"})

		res, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)
		assert.True(t, res.Pending)
	})

	t.Run("payload missing a rubric category is pending", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		bad := `{
  "totalScore": 70,
  "categoryScores": [
    {"name": "Communication", "score": 80, "comment": "x"},
    {"name": "Technical Knowledge", "score": 75, "comment": "x"},
    {"name": "Problem Solving", "score": 82, "comment": "x"},
    {"name": "Cultural Fit", "score": 70, "comment": "x"}
  ],
  "strengths": [], "areasForImprovement": [],
  "overallFeedback": "ok"
}`
		svc := newTestFeedbackService(ivRepo, newFakeFeedbackRepo(), &fakeLLM{out: bad})

		res, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)
		assert.True(t, res.Pending)
	})

	t.Run("out-of-range score is pending", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		bad := `{
  "totalScore": 70,
  "categoryScores": [
    {"name": "Communication", "score": 120, "comment": "x"},
    {"name": "Technical Knowledge", "score": 75, "comment": "x"},
    {"name": "Problem Solving", "score": 82, "comment": "x"},
    {"name": "Cultural Fit", "score": 70, "comment": "x"},
    {"name": "Confidence & Clarity", "score": 83, "comment": "x"}
  ],
  "strengths": [], "areasForImprovement": [],
  "overallFeedback": "ok"
}`
		svc := newTestFeedbackService(ivRepo, newFakeFeedbackRepo(), &fakeLLM{out: bad})

		res, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)
		assert.True(t, res.Pending)
	})

	t.Run("transcript write failure is a hard error", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		ivRepo.saveErr = errors.New("mongo down")
		svc := newTestFeedbackService(ivRepo, newFakeFeedbackRepo(), &fakeLLM{out: validFeedbackJSON})

		_, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInternal))
	})

	t.Run("missing interview is not found", func(t *testing.T) {
		svc := newTestFeedbackService(newFakeInterviewRepo(), newFakeFeedbackRepo(), &fakeLLM{})

		_, err := svc.SaveTranscript(context.Background(), "user-1", "nope", testMessages())
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeNotFound))
	})

	t.Run("other user's interview is forbidden", func(t *testing.T) {
		svc := newTestFeedbackService(newFakeInterviewRepo(testInterview()), newFakeFeedbackRepo(), &fakeLLM{})

		_, err := svc.SaveTranscript(context.Background(), "intruder", "iv-1", testMessages())
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeForbidden))
	})

	t.Run("empty messages are invalid", func(t *testing.T) {
		svc := newTestFeedbackService(newFakeInterviewRepo(testInterview()), newFakeFeedbackRepo(), &fakeLLM{})

		_, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", nil)
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	})

	t.Run("retried save reuses the same feedback id", func(t *testing.T) {
		ivRepo := newFakeInterviewRepo(testInterview())
		fbRepo := newFakeFeedbackRepo()
		svc := newTestFeedbackService(ivRepo, fbRepo, &fakeLLM{out: validFeedbackJSON})

		first, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)
		second, err := svc.SaveTranscript(context.Background(), "user-1", "iv-1", testMessages())
		require.NoError(t, err)

		assert.Equal(t, first.FeedbackID, second.FeedbackID)
		assert.Len(t, fbRepo.byID, 1)
	})
}

func TestGenerate(t *testing.T) {
	t.Run("regenerates from the saved transcript", func(t *testing.T) {
		iv := testInterview()
		iv.Transcript = "Interviewer: hi\n\nCandidate: hello"
		ivRepo := newFakeInterviewRepo(iv)
		fbRepo := newFakeFeedbackRepo()
		provider := &fakeLLM{out: validFeedbackJSON}
		svc := newTestFeedbackService(ivRepo, fbRepo, provider)

		id, err := svc.Generate(context.Background(), "iv-1")
		require.NoError(t, err)
		assert.Equal(t, FeedbackIDFor("iv-1"), id)
		assert.Contains(t, provider.lastPrompt, "Candidate: hello")
		assert.Equal(t, id, ivRepo.linkedFeedback)
	})

	t.Run("refuses when no transcript was saved", func(t *testing.T) {
		svc := newTestFeedbackService(newFakeInterviewRepo(testInterview()), newFakeFeedbackRepo(), &fakeLLM{})

		_, err := svc.Generate(context.Background(), "iv-1")
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeConflict))
	})
}
