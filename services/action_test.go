package services

import "testing"

func TestActionEncode(t *testing.T) {
	tests := []struct {
		name     string
		action   Action
		expected string
	}{
		{
			name:     "download action",
			action:   Action{Kind: ActionDownload, Token: "tok-1", FormatID: "137"},
			expected: "DL|tok-1|137",
		},
		{
			name:     "audio action",
			action:   Action{Kind: ActionAudio, Token: "tok-2", AudioFormat: "mp3"},
			expected: "AUDIO|tok-2|mp3",
		},
		{
			name:     "cancel action",
			action:   Action{Kind: ActionCancel, Token: "tok-3"},
			expected: "CANCEL|tok-3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Encode(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		kind    ActionKind
	}{
		{name: "valid download", data: "DL|tok|137", kind: ActionDownload},
		{name: "valid audio mp3", data: "AUDIO|tok|mp3", kind: ActionAudio},
		{name: "valid audio m4a", data: "AUDIO|tok|m4a", kind: ActionAudio},
		{name: "valid cancel", data: "CANCEL|tok", kind: ActionCancel},
		{name: "unknown kind", data: "NOPE|tok|137", wantErr: true},
		{name: "download without format", data: "DL|tok", wantErr: true},
		{name: "download with empty format", data: "DL|tok|", wantErr: true},
		{name: "audio with bad format", data: "AUDIO|tok|flac", wantErr: true},
		{name: "cancel with extra field", data: "CANCEL|tok|junk", wantErr: true},
		{name: "empty token", data: "DL||137", wantErr: true},
		{name: "garbage", data: "garbage", wantErr: true},
		{name: "empty string", data: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := ParseAction(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got action %+v", tt.data, action)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if action.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, action.Kind)
			}
			if action.Token != "tok" {
				t.Errorf("expected token %q, got %q", "tok", action.Token)
			}
		})
	}
}

func TestParseActionRoundTrip(t *testing.T) {
	original := Action{Kind: ActionAudio, Token: "abc-def", AudioFormat: "m4a"}
	parsed, err := ParseAction(original.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != original {
		t.Errorf("round trip mismatch: %+v != %+v", parsed, original)
	}
}
