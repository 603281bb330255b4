package workers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/intervue/internal/models"
	"github.com/yoockh/intervue/internal/providers/stt"
	"github.com/yoockh/intervue/internal/services"
	"github.com/yoockh/intervue/internal/storage"
)

// ArchiveWorkerPool drains the audio archive stream: each entry is one audio
// event from a live session. The payload is uploaded to object storage and
// transcribed, and the session event document is updated with the result.
type ArchiveWorkerPool struct {
	Redis      *redis.Client
	Buffers    services.BufferService
	Uploader   storage.Uploader
	STT        stt.Provider
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *ArchiveWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Buffers == nil || p.Uploader == nil || p.STT == nil {
		return errors.New("ArchiveWorkerPool missing dependency: Redis/Buffers/Uploader/STT must be set")
	}
	if p.Stream == "" {
		p.Stream = services.AudioArchiveStream
	}
	if p.Group == "" {
		p.Group = "archive-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "arc"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
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

func (p *ArchiveWorkerPool) runConsumer(ctx context.Context, consumer string) {
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

func (p *ArchiveWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	interviewID := getStr("interview_id")
	seqStr := getStr("seq")
	if interviewID == "" || seqStr == "" {
		return
	}
	seq, _ := strconv.ParseInt(seqStr, 10, 64)

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":     msg.ID,
		"interview_id": interviewID,
		"seq":          seq,
	})

	raw := getStr("audio")
	if raw == "" {
		return
	}
	if i := strings.Index(raw, ","); i >= 0 {
		raw = raw[i+1:] // strip data:...;base64,
	}
	audio, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.WithError(err).Warn("base64 decode failed")
		_ = p.Buffers.MarkArchive(ctx, interviewID, seq, models.ArchiveStatusFailed, "", "", 0)
		return
	}

	_ = p.Buffers.MarkArchive(ctx, interviewID, seq, models.ArchiveStatusProcessing, "", "", 0)

	objectName := "interviews/" + interviewID + "/" + seqStr + ".pcm"
	path, err := p.Uploader.Upload(ctx, objectName, "audio/l16", bytes.NewReader(audio))
	if err != nil {
		log.WithError(err).Error("audio upload failed")
		_ = p.Buffers.MarkArchive(ctx, interviewID, seq, models.ArchiveStatusFailed, "", "", 0)
		return
	}

	text, conf, err := p.STT.Transcribe(ctx, audio, "")
	if err != nil {
		log.WithError(err).Error("stt failed")
		// upload succeeded, so keep the path on the failed record
		_ = p.Buffers.MarkArchive(ctx, interviewID, seq, models.ArchiveStatusFailed, path, "", 0)
		return
	}

	_ = p.Buffers.MarkArchive(ctx, interviewID, seq, models.ArchiveStatusDone, path, text, conf)
	log.Debug("audio event archived")
}
