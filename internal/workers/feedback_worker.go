package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/intervue/internal/services"
)

// FeedbackWorkerPool retries feedback generation for interviews whose
// transcript was saved but whose synchronous generation attempt failed.
// The deterministic feedback id makes a duplicate delivery harmless: the
// second attempt overwrites the same document.
type FeedbackWorkerPool struct {
	Redis      *redis.Client
	Feedback   services.FeedbackService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	MaxAttempts    int
}

func (p *FeedbackWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Feedback == nil {
		return errors.New("FeedbackWorkerPool missing dependency: Redis/Feedback must be set")
	}
	if p.Stream == "" {
		p.Stream = services.FeedbackRetryStream
	}
	if p.Group == "" {
		p.Group = "feedback-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "fb"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *FeedbackWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *FeedbackWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	interviewID := getStr("interview_id")
	if interviewID == "" {
		return
	}
	attempt, _ := strconv.Atoi(getStr("attempt"))
	attempt++

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":     msg.ID,
		"interview_id": interviewID,
		"attempt":      attempt,
	})

	feedbackID, err := p.Feedback.Generate(ctx, interviewID)
	if err == nil {
		log.WithField("feedback_id", feedbackID).Info("feedback generated on retry")
		return
	}

	if attempt >= p.MaxAttempts {
		log.WithError(err).Error("feedback retry exhausted")
		return
	}

	log.WithError(err).Warn("feedback retry failed, re-enqueueing")
	reErr := p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream,
		Values: map[string]any{
			"interview_id": interviewID,
			"attempt":      strconv.Itoa(attempt),
		},
	}).Err()
	if reErr != nil {
		log.WithError(reErr).Error("failed to re-enqueue feedback retry")
	}
}
