package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/intervue/internal/cache"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/providers/llm"
	mongorepo "github.com/yoockh/intervue/internal/repositories/mongo"
	"github.com/yoockh/intervue/internal/utils"
)

// FeedbackRetryStream receives one entry per interview whose feedback
// generation failed after the transcript was saved.
const FeedbackRetryStream = "feedback:retry"

// feedbackNamespace seeds the deterministic feedback id, so regenerating
// feedback for the same interview always lands on the same document.
var feedbackNamespace = uuid.MustParse("8f1e9a40-3c52-4d1b-9a6e-2b7c41d0f5aa")

const (
	feedbackTemperature     float32 = 0.7
	feedbackMaxOutputTokens int32   = 2048
)

// SaveTranscriptResult reports how far the pipeline got. FeedbackID is set
// only when generation succeeded; Pending means the transcript is durable but
// feedback will arrive later via the retry worker.
type SaveTranscriptResult struct {
	FeedbackID string
	Pending    bool
}

type FeedbackService interface {
	// SaveTranscript persists the transcript unconditionally, then attempts
	// feedback generation. A generation failure is not an error: the result
	// comes back Pending and a retry is enqueued.
	SaveTranscript(ctx context.Context, userID, interviewID string, messages []models.Message) (*SaveTranscriptResult, error)

	// Generate runs feedback generation for an interview whose transcript is
	// already saved. Used by the retry worker.
	Generate(ctx context.Context, interviewID string) (string, error)

	GetByFeedbackID(ctx context.Context, userID, feedbackID string) (*models.InterviewFeedback, error)
	GetByInterviewID(ctx context.Context, userID, interviewID string) (*models.InterviewFeedback, error)
}

type feedbackService struct {
	interviews mongorepo.InterviewRepository
	feedback   mongorepo.FeedbackRepository
	llm        llm.Provider
	rdb        *redis.Client
	cache      cache.Cache
	log        *logrus.Logger
}

func NewFeedbackService(
	interviews mongorepo.InterviewRepository,
	feedback mongorepo.FeedbackRepository,
	provider llm.Provider,
	rdb *redis.Client,
	c cache.Cache,
	log *logrus.Logger,
) FeedbackService {
	return &feedbackService{
		interviews: interviews,
		feedback:   feedback,
		llm:        provider,
		rdb:        rdb,
		cache:      c,
		log:        log,
	}
}

// FeedbackIDFor derives the feedback document id for an interview.
func FeedbackIDFor(interviewID string) string {
	return uuid.NewSHA1(feedbackNamespace, []byte("feedback:"+interviewID)).String()
}

// RenderTranscript flattens the message log into the stored transcript text:
// one labeled line per turn, blank line between turns.
func RenderTranscript(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		label := "Interviewer"
		if m.Role == models.RoleCandidate {
			label = "Candidate"
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n\n")
}

func (s *feedbackService) SaveTranscript(ctx context.Context, userID, interviewID string, messages []models.Message) (*SaveTranscriptResult, error) {
	const op = "FeedbackService.SaveTranscript"

	if interviewID == "" || userID == "" || len(messages) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id, user_id, and messages are required", nil)
	}

	iv, err := s.interviews.GetByInterviewID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	if iv.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "interview belongs to another user", nil)
	}

	transcript := RenderTranscript(messages)
	if err := s.interviews.SaveTranscript(ctx, interviewID, transcript, messages, time.Now().UTC()); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save transcript", err)
	}
	s.invalidate(ctx, interviewID)

	fb, genErr := s.generate(ctx, iv, transcript)
	if genErr != nil {
		s.log.WithError(genErr).WithField("interview_id", interviewID).
			Warn("feedback generation failed, transcript saved, retry enqueued")
		s.enqueueRetry(ctx, interviewID)
		return &SaveTranscriptResult{Pending: true}, nil
	}

	if err := s.feedback.Upsert(ctx, fb); err != nil {
		s.log.WithError(err).WithField("interview_id", interviewID).
			Warn("feedback write failed, retry enqueued")
		s.enqueueRetry(ctx, interviewID)
		return &SaveTranscriptResult{Pending: true}, nil
	}
	if err := s.interviews.SetFeedbackID(ctx, interviewID, fb.FeedbackID); err != nil {
		// feedback doc exists and is reachable by its deterministic id; the
		// retry pass repairs the back-link
		s.log.WithError(err).WithField("interview_id", interviewID).
			Warn("feedback back-link failed, retry enqueued")
		s.enqueueRetry(ctx, interviewID)
		return &SaveTranscriptResult{Pending: true}, nil
	}
	s.invalidate(ctx, interviewID)

	return &SaveTranscriptResult{FeedbackID: fb.FeedbackID}, nil
}

func (s *feedbackService) Generate(ctx context.Context, interviewID string) (string, error) {
	const op = "FeedbackService.Generate"

	if interviewID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "interview_id is required", nil)
	}

	iv, err := s.interviews.GetByInterviewID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return "", utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return "", utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	if iv.Transcript == "" {
		return "", utils.E(utils.CodeConflict, op, "interview has no saved transcript", nil)
	}

	fb, err := s.generate(ctx, iv, iv.Transcript)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "feedback generation failed", err)
	}
	if err := s.feedback.Upsert(ctx, fb); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to write feedback", err)
	}
	if err := s.interviews.SetFeedbackID(ctx, interviewID, fb.FeedbackID); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to link feedback", err)
	}
	s.invalidate(ctx, interviewID)

	return fb.FeedbackID, nil
}

func (s *feedbackService) GetByFeedbackID(ctx context.Context, userID, feedbackID string) (*models.InterviewFeedback, error) {
	const op = "FeedbackService.GetByFeedbackID"

	if feedbackID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "feedback_id is required", nil)
	}
	fb, err := s.feedback.GetByFeedbackID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "feedback not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get feedback", err)
	}
	if userID != "" && fb.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "feedback belongs to another user", nil)
	}
	return fb, nil
}

func (s *feedbackService) GetByInterviewID(ctx context.Context, userID, interviewID string) (*models.InterviewFeedback, error) {
	const op = "FeedbackService.GetByInterviewID"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id is required", nil)
	}
	fb, err := s.feedback.GetByInterviewID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "feedback not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get feedback", err)
	}
	if userID != "" && fb.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "feedback belongs to another user", nil)
	}
	return fb, nil
}

// generate runs the model, extracts the JSON payload, and validates it into a
// well-formed feedback document. Any failure aborts the whole attempt; no
// partially-valid feedback is ever persisted.
func (s *feedbackService) generate(ctx context.Context, iv *models.Interview, transcript string) (*models.InterviewFeedback, error) {
	prompt := BuildFeedbackPrompt(iv, transcript)

	raw, err := s.llm.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature:     feedbackTemperature,
		MaxOutputTokens: feedbackMaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}

	payload, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var parsed feedbackPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("parse feedback payload: %w", err)
	}
	if err := parsed.validate(); err != nil {
		return nil, err
	}

	return &models.InterviewFeedback{
		FeedbackID:          FeedbackIDFor(iv.InterviewID),
		InterviewID:         iv.InterviewID,
		UserID:              iv.UserID,
		TotalScore:          parsed.TotalScore,
		CategoryScores:      parsed.canonicalCategories(),
		Strengths:           parsed.Strengths,
		AreasForImprovement: parsed.AreasForImprovement,
		OverallFeedback:     strings.TrimSpace(parsed.OverallFeedback),
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (s *feedbackService) enqueueRetry(ctx context.Context, interviewID string) {
	if s.rdb == nil {
		return
	}
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: FeedbackRetryStream,
		Values: map[string]any{"interview_id": interviewID},
	}).Err()
	if err != nil {
		s.log.WithError(err).WithField("interview_id", interviewID).
			Error("failed to enqueue feedback retry")
	}
}

func (s *feedbackService) invalidate(ctx context.Context, interviewID string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, interviewCacheKey(interviewID))
	}
}

// BuildFeedbackPrompt renders the evaluation prompt for one finished
// interview.
func BuildFeedbackPrompt(iv *models.Interview, transcript string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories. Be thorough and detailed in your analysis.\n\n")
	sb.WriteString("Interview Details:\n")
	sb.WriteString("- Role: " + iv.Role + "\n")
	sb.WriteString("- Experience Level: " + iv.Level + "\n")
	sb.WriteString("- Tech Stack: " + iv.Techstack + "\n\n")
	sb.WriteString("Interview Transcript:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n\nPlease provide detailed feedback in the following JSON format:\n")
	sb.WriteString("{\n  \"totalScore\": <number 0-100>,\n  \"categoryScores\": [\n")
	for i, name := range models.RubricCategories {
		sb.WriteString("    {\"name\": \"" + name + "\", \"score\": <number 0-100>, \"comment\": \"<detailed feedback>\"}")
		if i < len(models.RubricCategories)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  ],\n")
	sb.WriteString("  \"strengths\": [\"<strength 1>\", \"<strength 2>\", \"<strength 3>\"],\n")
	sb.WriteString("  \"areasForImprovement\": [\"<area 1>\", \"<area 2>\", \"<area 3>\"],\n")
	sb.WriteString("  \"overallFeedback\": \"<comprehensive paragraph summarizing the interview performance>\"\n}\n")
	sb.WriteString("Respond with only the JSON object.\n")
	return sb.String()
}

// ExtractJSONObject returns the first balanced top-level JSON object in text.
// Models wrap payloads in prose or code fences; everything around the object
// is ignored.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errors.New("no JSON object in model output")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errors.New("unterminated JSON object in model output")
}

type feedbackPayload struct {
	TotalScore          float64                `json:"totalScore"`
	CategoryScores      []models.CategoryScore `json:"categoryScores"`
	Strengths           []string               `json:"strengths"`
	AreasForImprovement []string               `json:"areasForImprovement"`
	OverallFeedback     string                 `json:"overallFeedback"`
}

// validate enforces the rubric shape: all five named categories present
// exactly once, every score within [0,100]. A payload that fails here is
// discarded entirely.
func (p *feedbackPayload) validate() error {
	if p.TotalScore < 0 || p.TotalScore > 100 {
		return fmt.Errorf("totalScore %v out of range", p.TotalScore)
	}
	if len(p.CategoryScores) != len(models.RubricCategories) {
		return fmt.Errorf("expected %d category scores, got %d", len(models.RubricCategories), len(p.CategoryScores))
	}

	seen := make(map[string]models.CategoryScore, len(p.CategoryScores))
	for _, cs := range p.CategoryScores {
		name := strings.TrimSpace(cs.Name)
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate category %q", name)
		}
		if cs.Score < 0 || cs.Score > 100 {
			return fmt.Errorf("category %q score %v out of range", name, cs.Score)
		}
		seen[name] = cs
	}
	for _, want := range models.RubricCategories {
		if _, ok := seen[want]; !ok {
			return fmt.Errorf("missing category %q", want)
		}
	}
	if strings.TrimSpace(p.OverallFeedback) == "" {
		return errors.New("overallFeedback is empty")
	}
	return nil
}

// canonicalCategories returns the category scores in rubric order regardless
// of the order the model produced them.
func (p *feedbackPayload) canonicalCategories() []models.CategoryScore {
	byName := make(map[string]models.CategoryScore, len(p.CategoryScores))
	for _, cs := range p.CategoryScores {
		cs.Name = strings.TrimSpace(cs.Name)
		byName[cs.Name] = cs
	}
	out := make([]models.CategoryScore, 0, len(models.RubricCategories))
	for _, name := range models.RubricCategories {
		out = append(out, byName[name])
	}
	return out
}
