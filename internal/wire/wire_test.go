package wire

import (
	"bufio"
	"math/big"
	"strings"
	"testing"

	"github.com/abentley/chordring/internal/ringmath"
)

const bits = 32

func TestRequestRoundTrip(t *testing.T) {
	loc := ringmath.NewLocation(bits, "10.0.0.1", 8820, 3)
	cases := []Request{
		{Command: ClosestPrecedingFinger, VNID: 2, Key: big.NewInt(12345)},
		{Command: GetPredecessor, VNID: 0},
		{Command: GetSuccessor, VNID: 7},
		{Command: Info, VNID: 1},
		{Command: Join, VNID: 0, Location: loc},
		{Command: Lookup, VNID: 4, Key: big.NewInt(999)},
		{Command: Notify, VNID: 5, Location: loc},
	}

	for _, req := range cases {
		line := req.Serialize()
		got, err := ParseRequest(line, bits)
		if err != nil {
			t.Fatalf("parse(%q): unexpected error: %v", line, err)
		}
		if got.Command != req.Command || got.VNID != req.VNID {
			t.Fatalf("round trip mismatch for %q: got %+v want %+v", line, got, req)
		}
		if req.Key != nil && got.Key.Cmp(req.Key) != 0 {
			t.Fatalf("key mismatch for %q", line)
		}
		if req.Command == Join || req.Command == Notify {
			if !got.Location.Equal(req.Location) {
				t.Fatalf("location mismatch for %q", line)
			}
		}
	}
}

func TestResponseRoundTripIncludingNone(t *testing.T) {
	loc := ringmath.NewLocation(bits, "10.0.0.1", 8820, 3)
	cases := []Response{
		{Command: ClosestPrecedingFinger, Location: loc, HasLocation: true},
		{Command: GetPredecessor, HasLocation: false},
		{Command: GetPredecessor, Location: loc, HasLocation: true},
		{Command: GetSuccessor, Location: loc, HasLocation: true},
		{Command: Join},
		{Command: Lookup, Location: loc, HasLocation: true},
		{Command: Notify},
	}

	for _, resp := range cases {
		line := resp.Serialize()
		got, err := ParseResponse(line, bits)
		if err != nil {
			t.Fatalf("parse(%q): unexpected error: %v", line, err)
		}
		if got.Command != resp.Command || got.HasLocation != resp.HasLocation {
			t.Fatalf("round trip mismatch for %q: got %+v want %+v", line, got, resp)
		}
		if resp.HasLocation && !got.Location.Equal(resp.Location) {
			t.Fatalf("location mismatch for %q", line)
		}
	}
}

func TestParseRequestRejectsUnknownCommand(t *testing.T) {
	if _, err := ParseRequest("BOGUS 0", bits); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestParseRequestRejectsWrongArity(t *testing.T) {
	if _, err := ParseRequest("NOTIFY 0", bits); err == nil {
		t.Fatalf("expected error for missing location arg")
	}
}

func TestParseRequestRejectsUnparseableInteger(t *testing.T) {
	if _, err := ParseRequest("LOOKUP 0 not-a-number", bits); err == nil {
		t.Fatalf("expected error for unparseable key")
	}
}

func TestReadFrameDetectsHumanCRLF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("LOOKUP 0 5\r\n"))
	text, human, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !human {
		t.Fatalf("expected human=true for CRLF-terminated frame")
	}
	if text != "LOOKUP 0 5" {
		t.Fatalf("bad stripped text: %q", text)
	}
}

func TestReadFrameNonHumanLFOnly(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("LOOKUP 0 5\n"))
	text, human, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if human {
		t.Fatalf("expected human=false for bare LF frame")
	}
	if text != "LOOKUP 0 5" {
		t.Fatalf("bad stripped text: %q", text)
	}
}

func TestWriteFrameMatchesTerminator(t *testing.T) {
	var sb strings.Builder
	if err := WriteFrame(&sb, "RES NOTIFY", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.String() != "RES NOTIFY\r\n" {
		t.Fatalf("bad human frame: %q", sb.String())
	}

	sb.Reset()
	if err := WriteFrame(&sb, "RES NOTIFY", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.String() != "RES NOTIFY\n" {
		t.Fatalf("bad non-human frame: %q", sb.String())
	}
}
