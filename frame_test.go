package main

import (
	"errors"
	"testing"
)

func TestDecodeClientFrame(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ClientFrame
		wantErr  bool
	}{
		{
			name:     "chat",
			input:    `{"type":"chat","text":"hello"}`,
			expected: ClientFrame{Type: "chat", Text: "hello"},
		},
		{
			name:     "join room",
			input:    `{"type":"join_room","room":"lounge"}`,
			expected: ClientFrame{Type: "join_room", Room: "lounge"},
		},
		{
			name:     "direct message",
			input:    `{"type":"direct_message","target":"bob","text":"psst"}`,
			expected: ClientFrame{Type: "direct_message", Target: "bob", Text: "psst"},
		},
		{
			name:     "unknown type still decodes",
			input:    `{"type":"dance"}`,
			expected: ClientFrame{Type: "dance"},
		},
		{
			name:    "not json",
			input:   `fire!!`,
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   `{"text":"hello"}`,
			wantErr: true,
		},
		{
			name:    "truncated",
			input:   `{"type":"chat","text":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := decodeClientFrame([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("error = %v, want ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeClientFrame: %v", err)
			}
			if frame != tt.expected {
				t.Errorf("frame = %+v, want %+v", frame, tt.expected)
			}
		})
	}
}

func TestParseOdds(t *testing.T) {
	tests := []struct {
		input   string
		num     int
		den     int
		wantErr bool
	}{
		{input: "1/6", num: 1, den: 6},
		{input: "1/2", num: 1, den: 2},
		{input: "6/6", num: 6, den: 6},
		{input: "2/6", num: 2, den: 6},
		{input: "0/6", wantErr: true},
		{input: "7/6", wantErr: true},
		{input: "1/0", wantErr: true},
		{input: "1", wantErr: true},
		{input: "one/six", wantErr: true},
		{input: "1/256", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			num, den, err := parseOdds(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseOdds(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOdds(%q): %v", tt.input, err)
			}
			if num != tt.num || den != tt.den {
				t.Errorf("parseOdds(%q) = %d/%d, want %d/%d", tt.input, num, den, tt.num, tt.den)
			}
		})
	}
}
