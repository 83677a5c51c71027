package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildRecording(t *testing.T, meta RecordingMetadata, messages []Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(recordingMagic)

	metaBytes := []byte(`{"version":"` + meta.Version + `"}`)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(metaBytes))); err != nil {
		t.Fatalf("write metadata length: %v", err)
	}
	buf.Write(metaBytes)

	for _, m := range messages {
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	return buf.Bytes()
}

func TestReadBinaryRecordingRoundTrip(t *testing.T) {
	want := []Message{
		{UserID: 1, Payload: &JoinMessage{Flags: JoinFlagsAuth, Name: "alice"}},
		{UserID: 1, Payload: &UndoPointMessage{}},
		{UserID: 2, Payload: &PenUpMessage{}},
	}
	data := buildRecording(t, RecordingMetadata{Version: "1.0"}, want)

	meta, got, err := ReadBinaryRecording(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadBinaryRecording: %v", err)
	}
	if meta.Version != "1.0" {
		t.Fatalf("metadata version = %q, want 1.0", meta.Version)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].UserID != want[i].UserID {
			t.Fatalf("message %d user id = %d, want %d", i, got[i].UserID, want[i].UserID)
		}
	}
}

func TestReadBinaryRecordingRejectsBadMagic(t *testing.T) {
	if _, _, err := ReadBinaryRecording(bytes.NewReader([]byte("not-a-recording"))); err == nil {
		t.Fatal("expected an error for a bad magic header")
	}
}

func TestReadTextRecordingSplitsHeaderAndBody(t *testing.T) {
	input := "!version=1\n!generator=stroke\n1 join auth alice\n2 penup\n"
	headers, lines, err := ReadTextRecording(bytes.NewReader([]byte(input)))
	if err != nil {
		t.Fatalf("ReadTextRecording: %v", err)
	}
	if headers["version"] != "1" || headers["generator"] != "stroke" {
		t.Fatalf("unexpected headers: %+v", headers)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d body lines, want 2: %v", len(lines), lines)
	}
}

func TestParseTextUserLine(t *testing.T) {
	userID, rest, err := ParseTextUserLine("7 chat hello there")
	if err != nil {
		t.Fatalf("ParseTextUserLine: %v", err)
	}
	if userID != 7 || rest != "chat hello there" {
		t.Fatalf("got (%d, %q), want (7, \"chat hello there\")", userID, rest)
	}
}
