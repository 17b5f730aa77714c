// Package gateway binds the real-time hub to its socket.io transport. It
// owns the only mapping between wire event names and the hub's typed
// events; nothing inward of here deals in raw strings.
package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"github.com/teamspace/hub/internal/modules/hub"
	"github.com/teamspace/hub/internal/pkg/response"
	"go.uber.org/zap"
)

const namespaceChat = "/chat"

// Gateway mounts the hub on a socket.io server.
type Gateway struct {
	hub    *hub.Hub
	sio    *socketio.Server
	logger *zap.Logger
}

func New(h *hub.Hub, logger *zap.Logger) *Gateway {
	g := &Gateway{
		hub:    h,
		sio:    socketio.NewServer(nil, nil),
		logger: logger,
	}
	g.registerNamespace()
	return g
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (g *Gateway) Handler() http.Handler {
	return g.sio.ServeHandler(nil)
}

// Close shuts the socket.io server down.
func (g *Gateway) Close() {
	g.sio.Close(nil)
}

// RegisterRoutes mounts socket.io at the engine root (the default client
// path) and the stats endpoint under the API group.
func RegisterRoutes(root, api *gin.RouterGroup, g *Gateway) {
	handler := gin.WrapH(g.Handler())
	root.Any("/socket.io", handler)
	root.Any("/socket.io/*any", handler)

	api.GET("/gateway/stats", func(c *gin.Context) {
		response.OK(c, g.hub.Stats())
	})
}
