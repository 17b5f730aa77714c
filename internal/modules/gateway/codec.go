package gateway

import (
	"encoding/json"
	"strings"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

// payload is a loosely-typed inbound event body. Socket.io clients send
// maps, JSON strings, or structs depending on the client library, so the
// accessors normalize all of them.
type payload map[string]interface{}

func parsePayload(args ...any) payload {
	if len(args) == 0 || args[0] == nil {
		return payload{}
	}

	switch raw := args[0].(type) {
	case map[string]interface{}:
		return payload(raw)
	case string:
		return unmarshalPayload([]byte(raw))
	case []byte:
		return unmarshalPayload(raw)
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return payload{}
		}
		return unmarshalPayload(data)
	}
}

func unmarshalPayload(data []byte) payload {
	out := payload{}
	if err := json.Unmarshal(data, &out); err != nil {
		return payload{}
	}
	return out
}

func (p payload) str(key string) string {
	v, _ := p[key].(string)
	return strings.TrimSpace(v)
}

func (p payload) boolean(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p payload) raw(key string) interface{} {
	return p[key]
}

func (p payload) strSlice(key string) []string {
	list, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// extractToken pulls the connection credential from the handshake query or
// the Authorization header.
func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if token := firstValue(handshake.Query, "token"); token != "" {
		return normalizeToken(token)
	}
	if token := firstValue(handshake.Headers, "authorization"); token != "" {
		return normalizeToken(token)
	}
	return ""
}

func firstValue(values map[string][]string, key string) string {
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		v := strings.TrimSpace(list[0])
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
