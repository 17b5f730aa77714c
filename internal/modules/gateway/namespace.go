package gateway

import (
	"context"
	"time"

	socketio "github.com/zishang520/socket.io/v2/socket"
	"github.com/teamspace/hub/internal/modules/hub"
	"go.uber.org/zap"
)

const authTimeout = 5 * time.Second

// inbound wire event names (client → hub).
const (
	msgJoinRooms       = "join-rooms"
	msgSendMessage     = "send-message"
	msgTypingStart     = "typing-start"
	msgTypingStop      = "typing-stop"
	msgMarkAsRead      = "mark-as-read"
	msgJoinConference  = "join-conference"
	msgLeaveConference = "leave-conference"
	msgOffer           = "offer"
	msgAnswer          = "answer"
	msgICECandidate    = "ice-candidate"
	msgToggleMute      = "toggle-mute"
	msgToggleVideo     = "toggle-video"
)

func (g *Gateway) registerNamespace() {
	ns := g.sio.Of(namespaceChat, nil)
	_ = ns.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		g.onConnection(client)
	})
}

func (g *Gateway) onConnection(client *socketio.Socket) {
	sid := string(client.Id())

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	token := extractToken(client)
	conn, err := g.hub.Connect(ctx, token, sid, func(ev hub.Event) {
		_ = client.Emit(string(ev.Kind), ev.Payload)
	})
	if err != nil {
		_ = client.Emit(string(hub.EventError), hub.ErrorPayload{Message: "authentication failed"})
		client.Disconnect(true)
		return
	}

	if g.logger != nil {
		g.logger.Info("client connected",
			zap.String("sid", sid),
			zap.String("user", conn.UserID()),
		)
	}

	// Dispatch table: wire name → handler. Every handler reports failures
	// back to this connection only; other connections are unaffected.
	handlers := map[string]func(p payload){
		msgJoinRooms:       func(p payload) { g.onJoinRooms(client, conn) },
		msgSendMessage:     func(p payload) { g.onSendMessage(client, conn, p) },
		msgTypingStart:     func(p payload) { g.reportErr(client, g.hub.TypingStart(conn, p.str("roomId"))) },
		msgTypingStop:      func(p payload) { g.reportErr(client, g.hub.TypingStop(conn, p.str("roomId"))) },
		msgMarkAsRead:      func(p payload) { g.onMarkAsRead(client, conn, p) },
		msgJoinConference:  func(p payload) { g.onJoinConference(client, conn, p) },
		msgLeaveConference: func(p payload) { g.hub.LeaveConference(conn, p.str("conferenceRoomId")) },
		msgOffer:           func(p payload) { g.onSignal(client, conn, hub.EventOffer, p) },
		msgAnswer:          func(p payload) { g.onSignal(client, conn, hub.EventAnswer, p) },
		msgICECandidate:    func(p payload) { g.onSignal(client, conn, hub.EventICECandidate, p) },
		msgToggleMute: func(p payload) {
			g.reportErr(client, g.hub.ToggleMute(conn, p.str("conferenceRoomId"), p.boolean("isMuted")))
		},
		msgToggleVideo: func(p payload) {
			g.reportErr(client, g.hub.ToggleVideo(conn, p.str("conferenceRoomId"), p.boolean("isVideoOff")))
		},
	}

	for name, fn := range handlers {
		handler := fn
		_ = client.On(name, func(eventArgs ...any) {
			handler(parsePayload(eventArgs...))
		})
	}

	_ = client.On("disconnect", func(_ ...any) {
		g.hub.Disconnect(sid)
		if g.logger != nil {
			g.logger.Info("client disconnected",
				zap.String("sid", sid),
				zap.String("user", conn.UserID()),
			)
		}
	})
}

func (g *Gateway) onJoinRooms(client *socketio.Socket, conn *hub.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	if _, err := g.hub.JoinRooms(ctx, conn); err != nil {
		g.reportErr(client, err)
	}
}

func (g *Gateway) onSendMessage(client *socketio.Socket, conn *hub.Connection, p payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := g.hub.SendMessage(ctx, conn, p.str("roomId"), p.str("content"), p.strSlice("attachments"))
	g.reportErr(client, err)
}

func (g *Gateway) onMarkAsRead(client *socketio.Socket, conn *hub.Connection, p payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := g.hub.MarkRead(ctx, conn, p.str("roomId"))
	g.reportErr(client, err)
}

func (g *Gateway) onJoinConference(client *socketio.Socket, conn *hub.Connection, p payload) {
	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	snapshot, err := g.hub.JoinConference(ctx, conn, p.str("conferenceRoomId"))
	if err != nil {
		g.reportErr(client, err)
		return
	}
	_ = client.Emit(string(hub.EventConferenceParticipants), snapshot)
}

func (g *Gateway) onSignal(client *socketio.Socket, conn *hub.Connection, kind hub.EventKind, p payload) {
	err := g.hub.Signal(kind, conn, p.str("targetUserId"), p.str("conferenceRoomId"), p.raw("envelope"))
	g.reportErr(client, err)
}

// reportErr sends an error event back to the originating connection. A nil
// error is a no-op.
func (g *Gateway) reportErr(client *socketio.Socket, err error) {
	if err == nil {
		return
	}
	_ = client.Emit(string(hub.EventError), hub.ErrorPayload{
		Message:   err.Error(),
		Retryable: hub.IsRetryable(err),
	})
}
