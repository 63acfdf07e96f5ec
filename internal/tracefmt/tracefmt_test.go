package tracefmt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"memtrace/internal/simerr"
)

func binaryRecord(rw byte, addr uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = rw
	binary.LittleEndian.PutUint64(buf[1:], addr)
	return buf
}

func TestBinaryReaderDecodesAndSkipsSentinels(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(binaryRecord('R', 0x1000))
	buf.Write(binaryRecord('W', 0))
	buf.Write(binaryRecord('W', 0x2000))

	r := NewBinary(&buf)
	rec, err := r.Next()
	if err != nil || rec.Access != Read || rec.Address != 0x1000 {
		t.Fatalf("got %+v, %v", rec, err)
	}
	rec, err = r.Next()
	if err != nil || rec.Access != Write || rec.Address != 0x2000 {
		t.Fatalf("got %+v, %v", rec, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestBinaryReaderRejectsMalformedOp(t *testing.T) {
	r := NewBinary(bytes.NewReader(binaryRecord('X', 0x1000)))
	_, err := r.Next()
	if !errors.Is(err, simerr.TraceMalformed) {
		t.Fatalf("expected TraceMalformed, got %v", err)
	}
}

func TestTextReaderDecodesPinatraceStyle(t *testing.T) {
	src := "0: W 0x7f0000001000\n1: R 0x7f0000002000\n2: W 0x0\n"
	r := NewText(strings.NewReader(src))

	rec, err := r.Next()
	if err != nil || rec.Access != Write || rec.Address != 0x7f0000001000 {
		t.Fatalf("got %+v, %v", rec, err)
	}
	rec, err = r.Next()
	if err != nil || rec.Access != Read || rec.Address != 0x7f0000002000 {
		t.Fatalf("got %+v, %v", rec, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
