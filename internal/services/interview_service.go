package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/intervue/internal/cache"
	"github.com/yoockh/intervue/internal/models"
	mongorepo "github.com/yoockh/intervue/internal/repositories/mongo"
	"github.com/yoockh/intervue/internal/utils"
)

const interviewCacheTTL = 5 * time.Minute

type CreateInterviewInput struct {
	Role      string   `json:"role"`
	Level     string   `json:"level"`
	Techstack string   `json:"techstack"`
	Type      string   `json:"type"`
	Questions []string `json:"questions"`
}

type InterviewService interface {
	Create(ctx context.Context, userID string, in CreateInterviewInput) (*models.Interview, error)
	Get(ctx context.Context, userID, interviewID string) (*models.Interview, error)
	List(ctx context.Context, userID string, limit int64) ([]models.Interview, error)
	SetStatus(ctx context.Context, interviewID, status string) error
}

type interviewService struct {
	interviews mongorepo.InterviewRepository
	cache      cache.Cache
}

func NewInterviewService(interviews mongorepo.InterviewRepository, c cache.Cache) InterviewService {
	return &interviewService{interviews: interviews, cache: c}
}

func interviewCacheKey(interviewID string) string {
	return "interview:" + interviewID
}

func (s *interviewService) Create(ctx context.Context, userID string, in CreateInterviewInput) (*models.Interview, error) {
	const op = "InterviewService.Create"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if strings.TrimSpace(in.Role) == "" || strings.TrimSpace(in.Level) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "role and level are required", nil)
	}
	if in.Type == "" {
		in.Type = "interview"
	}

	iv := &models.Interview{
		InterviewID: uuid.NewString(),
		UserID:      userID,
		Role:        strings.TrimSpace(in.Role),
		Level:       strings.TrimSpace(in.Level),
		Techstack:   strings.TrimSpace(in.Techstack),
		Type:        in.Type,
		Questions:   in.Questions,
		Status:      models.InterviewStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.interviews.Create(ctx, iv); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}
	return iv, nil
}

func (s *interviewService) Get(ctx context.Context, userID, interviewID string) (*models.Interview, error) {
	const op = "InterviewService.Get"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id is required", nil)
	}

	key := interviewCacheKey(interviewID)
	if s.cache != nil {
		var cached models.Interview
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			if userID != "" && cached.UserID != userID {
				return nil, utils.E(utils.CodeForbidden, op, "interview belongs to another user", nil)
			}
			return &cached, nil
		}
	}

	iv, err := s.interviews.GetByInterviewID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interview", err)
	}
	if userID != "" && iv.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "interview belongs to another user", nil)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, iv, interviewCacheTTL)
	}
	return iv, nil
}

func (s *interviewService) List(ctx context.Context, userID string, limit int64) ([]models.Interview, error) {
	const op = "InterviewService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.interviews.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	return out, nil
}

func (s *interviewService) SetStatus(ctx context.Context, interviewID, status string) error {
	const op = "InterviewService.SetStatus"

	if interviewID == "" || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "interview_id and status are required", nil)
	}
	if err := s.interviews.SetStatus(ctx, interviewID, status); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to set status", err)
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, interviewCacheKey(interviewID))
	}
	return nil
}
