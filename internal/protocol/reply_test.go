package protocol

import (
	"errors"
	"testing"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Reply
		wantErr bool
	}{
		{"plain ok", "OK", Reply{Kind: ReplyOK}, false},
		{"upload ok", "OK report.pdf 1024",
			Reply{Kind: ReplyOK, Name: "report.pdf", Size: 1024, HasSize: true}, false},
		{"upload ok quoted", `OK "my report.pdf" 10`,
			Reply{Kind: ReplyOK, Name: "my report.pdf", Size: 10, HasSize: true}, false},
		{"ready", "READY", Reply{Kind: ReplyReady}, false},
		{"ready with size", "READY 4096",
			Reply{Kind: ReplyReady, Size: 4096, HasSize: true}, false},
		{"error", "ERR not found",
			Reply{Kind: ReplyErr, Message: "not found"}, false},
		{"error verbatim spacing", "ERR backend failed:  disk  full ",
			Reply{Kind: ReplyErr, Message: "backend failed:  disk  full "}, false},
		{"empty error", "ERR", Reply{Kind: ReplyErr}, false},

		{"ready bad size", "READY many", Reply{}, true},
		{"ready negative size", "READY -1", Reply{}, true},
		{"ok one arg", "OK justname", Reply{}, true},
		{"ok bad size", "OK name lots", Reply{}, true},
		{"unknown head", "HELLO there", Reply{}, true},
		{"empty line", "", Reply{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReply(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if tt.wantErr {
				var pe *ProtocolError
				if !errors.As(err, &pe) {
					t.Fatalf("ParseReply(%q) error = %v, want ProtocolError", tt.line, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseReply(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestReplyEncodersRoundTrip(t *testing.T) {
	tests := []struct {
		line string
		want Reply
	}{
		{EncodeOK(), Reply{Kind: ReplyOK}},
		{EncodeUploadOK("report.pdf", 1024),
			Reply{Kind: ReplyOK, Name: "report.pdf", Size: 1024, HasSize: true}},
		{EncodeUploadOK("my report.pdf", 2),
			Reply{Kind: ReplyOK, Name: "my report.pdf", Size: 2, HasSize: true}},
		{EncodeReady(), Reply{Kind: ReplyReady}},
		{EncodeDownloadReady(77), Reply{Kind: ReplyReady, Size: 77, HasSize: true}},
		{EncodeErr("not found"), Reply{Kind: ReplyErr, Message: "not found"}},
	}

	for _, tt := range tests {
		got, err := ParseReply(tt.line)
		if err != nil {
			t.Fatalf("ParseReply(%q) failed: %v", tt.line, err)
		}
		if got != tt.want {
			t.Errorf("ParseReply(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestEncodeErrFlattensNewlines(t *testing.T) {
	line := EncodeErr("top\nbottom\r\n")
	if line != "ERR top bottom  " {
		t.Errorf("EncodeErr = %q", line)
	}
}
