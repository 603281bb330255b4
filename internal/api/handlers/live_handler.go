package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/intervue/internal/services"
	"github.com/yoockh/intervue/internal/utils"
)

const (
	// relayPongWait bounds how long a relay client may go silent before the
	// socket is considered dead; relayPingInterval keeps healthy clients inside
	// that window by forcing a pong response.
	relayPongWait     = 60 * time.Second
	relayPingInterval = relayPongWait * 9 / 10

	relayWriteWait = 10 * time.Second
)

// relayStream is the live update feed for one interview. *redis.PubSub
// satisfies it.
type relayStream interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// LiveHandler bridges a client websocket to one interview's live session:
// the server owns the vendor connection, and the client receives transcript
// and status updates relayed from Redis pub/sub.
type LiveHandler struct {
	live     services.LiveService
	redis    *redis.Client
	log      *logrus.Logger
	upgrader websocket.Upgrader

	newStream func(ctx context.Context, interviewID string) relayStream

	pongWait     time.Duration
	pingInterval time.Duration
}

func NewLiveHandler(live services.LiveService, rdb *redis.Client, log *logrus.Logger) *LiveHandler {
	h := &LiveHandler{
		live:  live,
		redis: rdb,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
		pongWait:     relayPongWait,
		pingInterval: relayPingInterval,
	}
	h.newStream = func(ctx context.Context, interviewID string) relayStream {
		return rdb.Subscribe(ctx,
			services.TranscriptChannel(interviewID),
			services.StatusChannel(interviewID),
		)
	}
	return h
}

// Start opens the vendor session without a relay socket attached. The
// client can join later over the websocket route, which attaches to the
// running session instead of opening a second one.
func (h *LiveHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")
	if interviewID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "LiveHandler.Start", "missing interview_id", nil))
		return
	}

	if err := h.live.Start(c.Request.Context(), userID, interviewID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": "in-progress"})
}

// End closes the session and runs the feedback pipeline on the final
// transcript. Mirrors the save-transcript response shape.
func (h *LiveHandler) End(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")
	if interviewID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "LiveHandler.End", "missing interview_id", nil))
		return
	}

	res, err := h.live.End(c.Request.Context(), userID, interviewID)
	if err != nil {
		writeError(c, err)
		return
	}

	if res.Pending {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Transcript saved, feedback generation pending",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "feedbackId": res.FeedbackID})
}

type liveClientMsg struct {
	Type string `json:"type"` // "end_session"
}

type liveConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *liveConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(relayWriteWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *liveConn) writePing() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(relayWriteWait))
}

func (h *LiveHandler) InterviewWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")
	if interviewID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "LiveHandler.InterviewWS", "missing interview_id", nil))
		return
	}

	// owns is false when the session was already running (REST start); an
	// attached socket relays updates but its disconnect does not end the session.
	owns := true
	if err := h.live.Start(c.Request.Context(), userID, interviewID); err != nil {
		if !utils.IsCode(err, utils.CodeConflict) {
			writeError(c, err)
			return
		}
		owns = false
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response; tear down the session we opened
		if owns {
			h.endSession(userID, interviewID)
		}
		return
	}
	defer conn.Close()

	wc := &liveConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream := h.newStream(ctx, interviewID)
	defer stream.Close()

	var ended atomic.Bool
	defer func() {
		if owns && !ended.Load() {
			// socket dropped without an explicit end; salvage the transcript
			h.endSession(userID, interviewID)
		}
	}()

	// reader: client -> session control. The deadline is refreshed by pongs
	// from our keepalive pings and by any client frame, so a connected client
	// that only listens stays alive.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.pongWait))
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))

			var msg liveClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
				continue
			}

			switch msg.Type {
			case "end_session":
				res, eerr := h.live.End(ctx, userID, interviewID)
				ended.Store(true)
				if eerr != nil {
					h.log.WithError(eerr).WithField("interview_id", interviewID).Warn("session end failed")
					_ = wc.writeText([]byte(`{"type":"error","code":"INTERNAL","message":"failed to end session"}`))
					return
				}
				payload, _ := json.Marshal(map[string]any{
					"type":        "session_saved",
					"feedback_id": res.FeedbackID,
					"pending":     res.Pending,
				})
				_ = wc.writeText(payload)
				return

			default:
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
			}
		}
	}()

	// writer: pub/sub -> client, with keepalive pings holding the client's
	// read deadline open
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	updates := stream.Channel()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := wc.writePing(); err != nil {
				return
			}
		case m, open := <-updates:
			if !open {
				return
			}
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) endSession(userID, interviewID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := h.live.End(ctx, userID, interviewID); err != nil && !utils.IsCode(err, utils.CodeNotFound) {
		h.log.WithError(err).WithField("interview_id", interviewID).Warn("session cleanup failed")
	}
}
