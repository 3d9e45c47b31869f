package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/api/validators"
	"github.com/deorejayesh9663/UniTrade/internal/conversations"
	"github.com/deorejayesh9663/UniTrade/internal/messages"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 16 * 1024
	pendingReplies = 8
)

type clientFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewUpgrader accepts handshakes from the allowed origins only. An empty
// list accepts same-origin requests.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := slices.Clone(origins)
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(allowed) > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.ContainsFunc(allowed, func(candidate string) bool {
				return strings.EqualFold(candidate, origin)
			})
		}
	}
	return upgrader
}

// ConversationStream pushes the message list of one conversation on every
// change. Clients may send {"type":"message","text":"..."} frames to post.
func ConversationStream(svc messages.Service, upgrader *websocket.Upgrader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := middleware.PrincipalFromContext(ctx)

		ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		if logg != nil {
			ctx = logg.WithConversationID(ctx, id.String())
		}

		sub, err := svc.Subscribe(ctx, actor, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer sub.Close()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "websocket upgrade failed")
			}
			return
		}

		onFrame := func(raw []byte) types.LiveFrame {
			var in clientFrame
			if err := json.Unmarshal(raw, &in); err != nil || in.Type != "message" {
				return errorFrame(pkgerrors.New(pkgerrors.CodeValidation, "expected a message frame"))
			}
			msg, err := svc.Append(ctx, actor, id, in.Text)
			if err != nil {
				return errorFrame(err)
			}
			return types.LiveFrame{Type: types.LiveFrameAck, Data: msg}
		}
		pump(ctx, cancel, conn, sub.C(), onFrame, logg)
	}
}

// InboxStream pushes the caller's merged buying and selling conversation
// list on every change.
func InboxStream(svc conversations.Service, upgrader *websocket.Upgrader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}
		actor := middleware.PrincipalFromContext(ctx)

		ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()

		feed, err := svc.SubscribeForUser(ctx, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer feed.Close()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "websocket upgrade failed")
			}
			return
		}
		pump(ctx, cancel, conn, feed.C(), nil, logg)
	}
}

// pump owns conn. The reader goroutine handles pongs and inbound frames; the
// calling goroutine is the only writer. Either side ending cancels ctx.
func pump[T any](ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, snapshots <-chan T, onFrame func([]byte) types.LiveFrame, logg *logger.Logger) {
	replies := make(chan types.LiveFrame, pendingReplies)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		readPump(ctx, conn, replies, onFrame, logg)
	}()
	defer func() {
		cancel()
		_ = conn.Close()
		wg.Wait()
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			if err := writeFrame(conn, types.LiveFrame{Type: types.LiveFrameSnapshot, Data: snapshot}); err != nil {
				return
			}
		case reply := <-replies:
			if err := writeFrame(conn, reply); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(ctx context.Context, conn *websocket.Conn, replies chan<- types.LiveFrame, onFrame func([]byte) types.LiveFrame, logg *logger.Logger) {
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if logg != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "websocket closed unexpectedly")
			}
			return
		}
		if onFrame == nil {
			continue
		}
		select {
		case replies <- onFrame(raw):
		case <-ctx.Done():
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame types.LiveFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

func errorFrame(err error) types.LiveFrame {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	code := typed.Code()
	message := pkgerrors.MetadataFor(code).PublicMessage
	if code != pkgerrors.CodeInternal && code != pkgerrors.CodeDependency && typed.Message() != "" {
		message = typed.Message()
	}
	return types.LiveFrame{Type: types.LiveFrameError, Error: string(code), Message: message}
}
