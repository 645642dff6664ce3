package log

import (
	"io"
	"path/filepath"
	"testing"

	"croftsim/internal/protocol"
)

func TestRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewTickRecorder(dir, "run-x")
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	for i := uint64(0); i < 100; i++ {
		msg := protocol.TickMsg{
			Type:            protocol.TypeTick,
			ProtocolVersion: protocol.Version,
			RunID:           "run-x",
			Tick:            i,
			Digest:          "d",
		}
		if err := rec.WriteTick(msg); err != nil {
			t.Fatalf("write tick %d: %v", i, err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := OpenTickReader(filepath.Join(dir, "run-x.jsonl.zst"))
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	for want := uint64(0); ; want++ {
		msg, err := r.Next()
		if err == io.EOF {
			if want != 100 {
				t.Fatalf("read %d ticks, want 100", want)
			}
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if msg.Tick != want || msg.RunID != "run-x" {
			t.Fatalf("tick %d: got %+v", want, msg)
		}
	}
}

func TestRecorderRefusesDuplicateRun(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewTickRecorder(dir, "run-y")
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	defer rec.Close()

	if _, err := NewTickRecorder(dir, "run-y"); err == nil {
		t.Fatalf("second recorder for the same run succeeded")
	}
}

func TestWriteAfterCloseFails(t *testing.T) {
	rec, err := NewTickRecorder(t.TempDir(), "run-z")
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rec.WriteTick(protocol.TickMsg{}); err == nil {
		t.Fatalf("write after close succeeded")
	}
}
