package models

import "testing"

func TestResolveContent(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		attachment *MessageAttachment
		want       string
	}{
		{"plain text", "hello team", nil, "hello team"},
		{"text wins over attachment", "see attached", &MessageAttachment{Filename: "report.pdf"}, "see attached"},
		{"attachment filename fallback", "", &MessageAttachment{Filename: "report.pdf"}, "report.pdf"},
		{"attachment without filename", "", &MessageAttachment{}, "Message"},
		{"empty everything", "", nil, "Message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveContent(tt.content, tt.attachment); got != tt.want {
				t.Errorf("ResolveContent(%q, %v) = %q, want %q", tt.content, tt.attachment, got, tt.want)
			}
		})
	}
}

func TestMessageTypeValid(t *testing.T) {
	for _, mt := range []MessageType{MessageText, MessageImage, MessageFile, MessageSystem} {
		if !mt.Valid() {
			t.Errorf("%s should be valid", mt)
		}
	}
	if MessageType("video").Valid() {
		t.Error("video should be invalid")
	}
	if MessageType("").Valid() {
		t.Error("empty type should be invalid")
	}
}
