package slip

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/sliplink/internal/testutil/testlog"
)

func collect(d *Decoder, chunks ...[]byte) [][]byte {
	var out [][]byte
	for _, chunk := range chunks {
		d.Feed(chunk, func(datagram []byte) error {
			out = append(out, datagram)
			return nil
		})
	}
	return out
}

func TestEncodeKnownVector(t *testing.T) {
	testlog.Start(t)
	got := Encode([]byte{0xC0, 0x01, 0xDB})
	want := []byte{0xC0, 0xDB, 0xDC, 0x01, 0xDB, 0xDD, 0xC0}
	if !bytes.Equal(got, want) {
		t.Fatalf("encode mismatch: got=% x want=% x", got, want)
	}
	if EncodedLen([]byte{0xC0, 0x01, 0xDB}) != len(want) {
		t.Fatalf("encoded len mismatch: got=%d", EncodedLen([]byte{0xC0, 0x01, 0xDB}))
	}

	out := collect(NewDecoder(DefaultLimits()), want)
	if len(out) != 1 || !bytes.Equal(out[0], []byte{0xC0, 0x01, 0xDB}) {
		t.Fatalf("decode mismatch: got=%x", out)
	}
}

func TestEncodeEmptyDatagram(t *testing.T) {
	testlog.Start(t)
	got := Encode(nil)
	if !bytes.Equal(got, []byte{End, End}) {
		t.Fatalf("unexpected empty encoding: % x", got)
	}
	if out := collect(NewDecoder(DefaultLimits()), got); len(out) != 0 {
		t.Fatalf("empty datagram must not emit, got=%x", out)
	}
}

func TestAppendEncodeReusesPrefix(t *testing.T) {
	testlog.Start(t)
	dst := AppendEncode([]byte{0x01}, []byte{0x02})
	if !bytes.Equal(dst, []byte{0x01, End, 0x02, End}) {
		t.Fatalf("unexpected append encoding: % x", dst)
	}
}

func TestRoundTripReservedBytes(t *testing.T) {
	testlog.Start(t)
	cases := [][]byte{
		{0x01},
		{End},
		{Esc},
		{Esc, EscEnd},
		{End, End, Esc, Esc},
		[]byte("hello, link"),
		bytes.Repeat([]byte{Esc, End, EscEsc}, 100),
	}
	for _, in := range cases {
		out := collect(NewDecoder(DefaultLimits()), Encode(in))
		if len(out) != 1 || !bytes.Equal(out[0], in) {
			t.Fatalf("round trip mismatch: in=% x out=%x", in, out)
		}
	}
}

func TestDoubleEndIsIgnoredAndDecoderStaysReady(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	report := d.Feed([]byte{End, End}, func([]byte) error {
		t.Fatalf("empty frame must not emit")
		return nil
	})
	if report.Empty != 2 || report.Frames != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	out := collect(d, Encode([]byte("next")))
	if len(out) != 1 || string(out[0]) != "next" {
		t.Fatalf("decoder not ready after END END: %q", out)
	}
}

func TestBackToBackFramesShareDelimiters(t *testing.T) {
	testlog.Start(t)
	stream := append(Encode([]byte("a")), Encode([]byte("bc"))...)
	stream = append(stream, Encode([]byte("def"))...)
	out := collect(NewDecoder(DefaultLimits()), stream)
	if len(out) != 3 || string(out[0]) != "a" || string(out[1]) != "bc" || string(out[2]) != "def" {
		t.Fatalf("unexpected frames: %q", out)
	}
}

func TestFragmentationIndependence(t *testing.T) {
	testlog.Start(t)
	in := []byte{0x10, End, 0x20, Esc, 0x30, End, Esc}
	stream := append(Encode(in), Encode([]byte("tail"))...)

	whole := collect(NewDecoder(DefaultLimits()), stream)

	for size := 1; size <= len(stream); size++ {
		d := NewDecoder(DefaultLimits())
		var chunks [][]byte
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			chunks = append(chunks, stream[i:end])
		}
		got := collect(d, chunks...)
		if len(got) != len(whole) {
			t.Fatalf("chunk size %d: got %d frames want %d", size, len(got), len(whole))
		}
		for i := range got {
			if !bytes.Equal(got[i], whole[i]) {
				t.Fatalf("chunk size %d frame %d mismatch: got=% x want=% x", size, i, got[i], whole[i])
			}
		}
	}
}

func TestMalformedEscapeRecovery(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	stream := []byte{End, Esc, 0x00, 0x41, 0x42, End}
	stream = append(stream, Encode([]byte("ok"))...)

	var out [][]byte
	report := d.Feed(stream, func(datagram []byte) error {
		out = append(out, datagram)
		return nil
	})
	if report.Malformed != 1 {
		t.Fatalf("expected one malformed escape, report=%+v", report)
	}
	// bytes after the bad escape still form a frame of their own
	if len(out) != 2 || string(out[0]) != "AB" || string(out[1]) != "ok" {
		t.Fatalf("unexpected frames after malformed escape: %q", out)
	}
}

func TestMalformedEscapeDiscardsPartialFrame(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	// 0x03 completes the bad escape and is consumed with the discarded buffer
	out := collect(d, []byte{End, 0x01, 0x02, Esc, 0x03, 0x04, End})
	if len(out) != 1 || !bytes.Equal(out[0], []byte{0x04}) {
		t.Fatalf("expected partial frame to be discarded, got=%x", out)
	}
	if d.Buffered() != 0 || d.Escaping() {
		t.Fatalf("decoder not reset: buffered=%d escaping=%v", d.Buffered(), d.Escaping())
	}
}

func TestEndWhileEscapedResetsEscape(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	out := collect(d, []byte{End, 0x01, Esc, End, EscEnd, End})
	// END closes the "01" frame; the following EscEnd is a plain byte again
	if len(out) != 2 || !bytes.Equal(out[0], []byte{0x01}) || !bytes.Equal(out[1], []byte{EscEnd}) {
		t.Fatalf("unexpected frames: %x", out)
	}
}

func TestStepResults(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	if res, _ := d.Step(End); res != Empty {
		t.Fatalf("expected empty, got=%s", res)
	}
	if res, _ := d.Step(0x01); res != Pending {
		t.Fatalf("expected pending, got=%s", res)
	}
	if res, _ := d.Step(Esc); res != Pending || !d.Escaping() {
		t.Fatalf("expected escaping pending, got=%s", res)
	}
	res, _ := d.Step(0x99)
	if res != Malformed || !errors.Is(res.Err(), ErrMalformedEscape) {
		t.Fatalf("expected malformed, got=%s err=%v", res, res.Err())
	}
	d.Step(0x02)
	res, datagram := d.Step(End)
	if res != Frame || !bytes.Equal(datagram, []byte{0x02}) {
		t.Fatalf("expected frame 02, got=%s % x", res, datagram)
	}
	if res.Err() != nil {
		t.Fatalf("frame result must not map to an error")
	}
}

func TestEmitErrorResetsAndContinues(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	stream := append(Encode([]byte("bad")), Encode([]byte("good"))...)
	boom := errors.New("receiver failed")

	var got []string
	report := d.Feed(stream, func(datagram []byte) error {
		if string(datagram) == "bad" {
			return boom
		}
		got = append(got, string(datagram))
		return nil
	})
	if report.Rejected != 1 || len(report.Errors) != 1 || !errors.Is(report.Errors[0], boom) {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(got) != 1 || got[0] != "good" {
		t.Fatalf("expected decoding to continue, got=%q", got)
	}
	if report.Discarded() != 1 {
		t.Fatalf("unexpected discarded count: %d", report.Discarded())
	}
}

func TestEmittedDatagramIsCopied(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	var first []byte
	d.Feed(Encode([]byte("one")), func(datagram []byte) error {
		first = datagram
		return nil
	})
	d.Feed(Encode([]byte("two")), func([]byte) error { return nil })
	if string(first) != "one" {
		t.Fatalf("emitted datagram aliased decoder buffer: %q", first)
	}
}

func TestLimitsDropOversizeFrameAndResync(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(Limits{MaxFrameBytes: 4})
	stream := append(Encode([]byte("toolong")), Encode([]byte("fits"))...)

	var out []string
	report := d.Feed(stream, func(datagram []byte) error {
		out = append(out, string(datagram))
		return nil
	})
	if report.Oversize != 1 {
		t.Fatalf("expected one oversize frame, report=%+v", report)
	}
	if len(out) != 1 || out[0] != "fits" {
		t.Fatalf("unexpected frames: %q", out)
	}
	if !errors.Is(Oversize.Err(), ErrFrameTooLarge) {
		t.Fatalf("oversize must map to ErrFrameTooLarge")
	}
}

func TestResetClearsState(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(DefaultLimits())
	d.Feed([]byte{End, 0x01, 0x02, Esc}, nil)
	if d.Buffered() != 2 || !d.Escaping() {
		t.Fatalf("unexpected state: buffered=%d escaping=%v", d.Buffered(), d.Escaping())
	}
	d.Reset()
	if d.Buffered() != 0 || d.Escaping() {
		t.Fatalf("reset did not clear state")
	}
}
