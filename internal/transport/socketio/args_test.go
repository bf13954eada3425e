package socketio

import "testing"

func TestArgNumber(t *testing.T) {
	tests := []struct {
		name   string
		args   []any
		want   float64
		wantOK bool
	}{
		{"bare", []any{float64(42)}, 42, true},
		{"object", []any{map[string]interface{}{"value": float64(7.5)}}, 7.5, true},
		{"wrong key", []any{map[string]interface{}{"other": float64(1)}}, 0, false},
		{"string", []any{"12"}, 0, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := argNumber(tt.args, "value")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("argNumber = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestArgString(t *testing.T) {
	if s, ok := argString([]any{"/a.mp3"}, "path"); !ok || s != "/a.mp3" {
		t.Errorf("bare string = %q, %v", s, ok)
	}
	if s, ok := argString([]any{map[string]interface{}{"path": "/b.mp3"}}, "path"); !ok || s != "/b.mp3" {
		t.Errorf("object = %q, %v", s, ok)
	}
	if _, ok := argString([]any{""}, "path"); ok {
		t.Error("empty string should be rejected")
	}
	if _, ok := argString([]any{float64(3)}, "path"); ok {
		t.Error("number should be rejected")
	}
}
