package services

import (
	"context"
	"time"

	"github.com/yoockh/intervue/internal/models"
	mongorepo "github.com/yoockh/intervue/internal/repositories/mongo"
	"github.com/yoockh/intervue/internal/utils"
)

type BufferService interface {
	CaptureEvent(ctx context.Context, ev *models.SessionEvent) error
	MarkArchive(ctx context.Context, interviewID string, seq int64, status, audioPath, text string, confidence float64) error
	ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.SessionEvent, error)
}

type bufferService struct {
	buffers mongorepo.BufferRepository
	ttl     time.Duration
}

func NewBufferService(buffers mongorepo.BufferRepository, ttl time.Duration) BufferService {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &bufferService{buffers: buffers, ttl: ttl}
}

func (s *bufferService) CaptureEvent(ctx context.Context, ev *models.SessionEvent) error {
	const op = "BufferService.CaptureEvent"

	if ev == nil || ev.InterviewID == "" || ev.Seq <= 0 || ev.Type == "" {
		return utils.E(utils.CodeInvalidArgument, op, "interview_id, seq (>0), and type are required", nil)
	}

	now := time.Now().UTC()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}
	ev.ExpiresAt = ev.Timestamp.Add(s.ttl)

	if err := s.buffers.InsertEvent(ctx, ev); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to capture session event", err)
	}
	return nil
}

func (s *bufferService) MarkArchive(ctx context.Context, interviewID string, seq int64, status, audioPath, text string, confidence float64) error {
	const op = "BufferService.MarkArchive"

	if interviewID == "" || seq <= 0 || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "interview_id, seq (>0), and status are required", nil)
	}
	if err := s.buffers.MarkArchive(ctx, interviewID, seq, status, audioPath, text, confidence); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update archive fields", err)
	}
	return nil
}

func (s *bufferService) ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.SessionEvent, error) {
	const op = "BufferService.ListByInterview"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id is required", nil)
	}
	out, err := s.buffers.ListByInterview(ctx, interviewID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list session events", err)
	}
	return out, nil
}
