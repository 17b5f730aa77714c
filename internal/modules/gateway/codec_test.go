package gateway

import (
	"reflect"
	"testing"
)

func TestParsePayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want payload
	}{
		{
			name: "no args",
			args: nil,
			want: payload{},
		},
		{
			name: "nil arg",
			args: []any{nil},
			want: payload{},
		},
		{
			name: "map",
			args: []any{map[string]interface{}{"roomId": "r1"}},
			want: payload{"roomId": "r1"},
		},
		{
			name: "json string",
			args: []any{`{"roomId":"r1","content":"hi"}`},
			want: payload{"roomId": "r1", "content": "hi"},
		},
		{
			name: "json bytes",
			args: []any{[]byte(`{"roomId":"r1"}`)},
			want: payload{"roomId": "r1"},
		},
		{
			name: "struct remarshal",
			args: []any{struct {
				RoomID string `json:"roomId"`
			}{RoomID: "r1"}},
			want: payload{"roomId": "r1"},
		},
		{
			name: "garbage string",
			args: []any{"not json"},
			want: payload{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePayload(tt.args...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePayload = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestPayloadAccessors(t *testing.T) {
	p := payload{
		"room":   "  general  ",
		"muted":  true,
		"number": 3.0,
		"files":  []interface{}{"a.png", "  b.png ", "", 7},
		"nested": map[string]interface{}{"sdp": "v=0"},
	}

	if got := p.str("room"); got != "general" {
		t.Errorf("str(room) = %q", got)
	}
	if got := p.str("missing"); got != "" {
		t.Errorf("str(missing) = %q", got)
	}
	if got := p.str("number"); got != "" {
		t.Errorf("str on non-string = %q", got)
	}
	if !p.boolean("muted") || p.boolean("room") {
		t.Error("boolean accessor mismatch")
	}
	if got := p.strSlice("files"); !reflect.DeepEqual(got, []string{"a.png", "b.png"}) {
		t.Errorf("strSlice = %v", got)
	}
	if got := p.strSlice("room"); got != nil {
		t.Errorf("strSlice on non-list = %v", got)
	}
	if p.raw("nested") == nil {
		t.Error("raw(nested) = nil")
	}
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc.def.ghi", "abc.def.ghi"},
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc.def.ghi", "abc.def.ghi"},
		{"  Bearer   abc  ", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeToken(tt.in); got != tt.want {
			t.Errorf("normalizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstValue(t *testing.T) {
	values := map[string][]string{
		"Authorization": {"Bearer tok"},
		"X-Other":       {""},
	}
	if got := firstValue(values, "authorization"); got != "Bearer tok" {
		t.Errorf("firstValue = %q", got)
	}
	if got := firstValue(values, "x-other"); got != "" {
		t.Errorf("firstValue(empty header) = %q", got)
	}
	if got := firstValue(nil, "token"); got != "" {
		t.Errorf("firstValue(nil) = %q", got)
	}
}
