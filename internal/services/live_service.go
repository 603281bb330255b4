package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/intervue/internal/models"
	pgrepo "github.com/yoockh/intervue/internal/repositories/postgres"
	"github.com/yoockh/intervue/internal/providers/voice"
	"github.com/yoockh/intervue/internal/realtime"
	"github.com/yoockh/intervue/internal/utils"
)

// AudioArchiveStream receives one entry per audio event captured during a
// live session; the archive worker drains it.
const AudioArchiveStream = "audio:archive"

const callbackTimeout = 5 * time.Second

// TranscriptChannel and StatusChannel name the pub/sub channels a client
// subscribes to for one interview's live updates.
func TranscriptChannel(interviewID string) string { return "interview:" + interviewID + ":transcript" }
func StatusChannel(interviewID string) string     { return "interview:" + interviewID + ":status" }

type LiveService interface {
	// Start opens a live voice session for the interview. One session per
	// interview; a second Start while one is active is rejected.
	Start(ctx context.Context, userID, interviewID string) error

	// End closes the session, saves the transcript, and runs the feedback
	// pipeline. Safe to call when no session is active for the interview;
	// that case returns CodeNotFound.
	End(ctx context.Context, userID, interviewID string) (*SaveTranscriptResult, error)

	Status(interviewID string) realtime.Status
	Transcript(interviewID string) []models.Message
}

type liveSession struct {
	userID      string
	interviewID string
	ctl         *realtime.Controller
	seq         atomic.Int64
}

type liveService struct {
	interviews InterviewService
	profiles   pgrepo.ProfileRepository
	voice      voice.Provider
	transport  realtime.Transport
	turns      pgrepo.TurnRepository
	buffer     BufferService
	feedback   FeedbackService
	rdb        *redis.Client
	log        *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*liveSession
}

func NewLiveService(
	interviews InterviewService,
	profiles pgrepo.ProfileRepository,
	voiceProvider voice.Provider,
	transport realtime.Transport,
	turns pgrepo.TurnRepository,
	buffer BufferService,
	feedback FeedbackService,
	rdb *redis.Client,
	log *logrus.Logger,
) LiveService {
	return &liveService{
		interviews: interviews,
		profiles:   profiles,
		voice:      voiceProvider,
		transport:  transport,
		turns:      turns,
		buffer:     buffer,
		feedback:   feedback,
		rdb:        rdb,
		log:        log,
		sessions:   make(map[string]*liveSession),
	}
}

func (s *liveService) Start(ctx context.Context, userID, interviewID string) error {
	const op = "LiveService.Start"

	if userID == "" || interviewID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and interview_id are required", nil)
	}

	iv, err := s.interviews.Get(ctx, userID, interviewID)
	if err != nil {
		return err
	}

	fullName := "there"
	if p, perr := s.profiles.GetByUserID(ctx, userID); perr == nil && strings.TrimSpace(p.FullName) != "" {
		fullName = strings.TrimSpace(p.FullName)
	}

	signedURL, err := s.voice.SignedSessionURL(ctx)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to obtain signed session url", err)
	}

	s.mu.Lock()
	if _, exists := s.sessions[interviewID]; exists {
		s.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "a live session is already active for this interview", nil)
	}
	ls := &liveSession{userID: userID, interviewID: interviewID}
	ls.ctl = realtime.NewController(s.transport, realtime.Options{
		OnStatusChange:     func(st realtime.Status) { s.publishStatus(interviewID, st) },
		OnTranscriptUpdate: func(msgs []models.Message) { s.publishTranscript(interviewID, msgs) },
		OnError: func(err error) {
			s.log.WithError(err).WithField("interview_id", interviewID).Warn("live session error")
		},
		OnEvent: func(ev realtime.Event) { s.captureEvent(ls, ev) },
		Logger:  s.log,
	})
	s.sessions[interviewID] = ls
	s.mu.Unlock()

	cfg := realtime.StartConfig{
		SignedURL:    signedURL,
		SystemPrompt: BuildInterviewerPrompt(iv, fullName),
		FirstMessage: BuildFirstMessage(iv, fullName),
	}
	if err := ls.ctl.Start(ctx, cfg); err != nil {
		s.mu.Lock()
		delete(s.sessions, interviewID)
		s.mu.Unlock()
		return err
	}

	if err := s.interviews.SetStatus(ctx, interviewID, models.InterviewStatusInProgress); err != nil {
		s.log.WithError(err).WithField("interview_id", interviewID).Warn("failed to mark interview in-progress")
	}
	return nil
}

func (s *liveService) End(ctx context.Context, userID, interviewID string) (*SaveTranscriptResult, error) {
	const op = "LiveService.End"

	if userID == "" || interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and interview_id are required", nil)
	}

	s.mu.Lock()
	ls, ok := s.sessions[interviewID]
	if !ok {
		s.mu.Unlock()
		return nil, utils.E(utils.CodeNotFound, op, "no live session for this interview", nil)
	}
	if ls.userID != userID {
		s.mu.Unlock()
		return nil, utils.E(utils.CodeForbidden, op, "session belongs to another user", nil)
	}
	delete(s.sessions, interviewID)
	s.mu.Unlock()

	ls.ctl.End(ctx)

	messages := ls.ctl.Transcript()
	if len(messages) == 0 {
		return nil, utils.E(utils.CodeConflict, op, "session produced no transcript", nil)
	}
	return s.feedback.SaveTranscript(ctx, userID, interviewID, messages)
}

func (s *liveService) Status(interviewID string) realtime.Status {
	s.mu.Lock()
	ls, ok := s.sessions[interviewID]
	s.mu.Unlock()
	if !ok {
		return realtime.StatusIdle
	}
	return ls.ctl.Status()
}

func (s *liveService) Transcript(interviewID string) []models.Message {
	s.mu.Lock()
	ls, ok := s.sessions[interviewID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return ls.ctl.Transcript()
}

func (s *liveService) publishStatus(interviewID string, st realtime.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	payload, _ := json.Marshal(map[string]string{"status": string(st)})
	if err := s.rdb.Publish(ctx, StatusChannel(interviewID), payload).Err(); err != nil {
		s.log.WithError(err).WithField("interview_id", interviewID).Warn("status publish failed")
	}
}

func (s *liveService) publishTranscript(interviewID string, msgs []models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{"messages": msgs})
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, TranscriptChannel(interviewID), payload).Err(); err != nil {
		s.log.WithError(err).WithField("interview_id", interviewID).Warn("transcript publish failed")
	}
}

// captureEvent records the raw envelope in the TTL buffer, appends a turn row
// for classified messages, and hands audio payloads to the archive stream.
// Captures never block or fail the session; a lost write is logged and the
// session keeps running.
func (s *liveService) captureEvent(ls *liveSession, ev realtime.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	seq := ls.seq.Add(1)

	doc := &models.SessionEvent{
		InterviewID: ls.interviewID,
		Seq:         seq,
		Type:        string(ev.EventType()),
	}

	msg, classified := realtime.Classify(ev)
	if classified {
		doc.Role = msg.Role
		doc.Text = msg.Content
	}

	var audioB64 string
	if ae, ok := ev.(realtime.AudioEvent); ok && ae.Audio != "" {
		audioB64 = ae.Audio
		doc.HasAudio = true
		doc.ArchiveStatus = models.ArchiveStatusPending
	}

	if err := s.buffer.CaptureEvent(ctx, doc); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"interview_id": ls.interviewID, "seq": seq,
		}).Warn("event capture failed")
	}

	if classified {
		turn := &models.TurnRecord{
			ID:          uuid.NewString(),
			UserID:      ls.userID,
			InterviewID: ls.interviewID,
			Role:        msg.Role,
			Content:     msg.Content,
			Timestamp:   time.Now().UTC(),
		}
		if err := s.turns.Insert(ctx, turn); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"interview_id": ls.interviewID, "seq": seq,
			}).Warn("turn insert failed")
		}
	}

	if audioB64 != "" {
		err := s.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: AudioArchiveStream,
			Values: map[string]any{
				"interview_id": ls.interviewID,
				"seq":          seq,
				"audio":        audioB64,
			},
		}).Err()
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"interview_id": ls.interviewID, "seq": seq,
			}).Warn("audio archive enqueue failed")
		}
	}
}

// BuildInterviewerPrompt renders the system prompt that drives the voice
// agent for one interview.
func BuildInterviewerPrompt(iv *models.Interview, fullName string) string {
	var sb strings.Builder
	sb.WriteString("You are a professional job interview assistant. Your task is to conduct a mock interview for the following position:\n\n")
	sb.WriteString("Role: " + iv.Role + "\n")
	sb.WriteString("Experience Level: " + iv.Level + "\n")
	sb.WriteString("Tech Stack: " + iv.Techstack + "\n\n")
	if len(iv.Questions) > 0 {
		sb.WriteString("Here are the interview questions to ask:\n")
		for i, q := range iv.Questions {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, q))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Instructions:\n")
	sb.WriteString("1. Start by greeting the candidate (" + fullName + ") warmly and introducing yourself\n")
	sb.WriteString("2. Ask each question one at a time\n")
	sb.WriteString("3. Listen to their response and provide brief acknowledgment\n")
	sb.WriteString("4. After all questions, thank them and let them know the interview is complete\n")
	sb.WriteString("5. Keep the conversation professional but friendly\n")
	sb.WriteString("6. Do not provide feedback during the interview, just acknowledge their answers\n\n")
	sb.WriteString("Begin when the candidate is ready.")
	return sb.String()
}

func BuildFirstMessage(iv *models.Interview, fullName string) string {
	return "Hello " + fullName + "! I'm your AI interviewer today. I'll be conducting a mock interview for the " + iv.Role + " position. Are you ready to begin?"
}
