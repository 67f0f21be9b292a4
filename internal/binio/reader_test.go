package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/jchantrell/arcbank/internal/arcerr"
)

func TestReaderSeekAndRelativeOrigin(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	r := FromBytes(data)

	if err := r.Seek(4); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	r.SetRelativeOrigin(r.Tell())
	if got := r.Tell(); got != 0 {
		t.Errorf("Tell() after rebase = %d, want 0", got)
	}

	if err := r.Seek(2); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	b, err := Read[uint8](r)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if b != 6 {
		t.Errorf("Read() after relative seek = %d, want 6", b)
	}

	// the cursor follows the origin in both directions
	r.SetRelativeOrigin(-2)
	if got := r.Tell(); got != 0 {
		t.Errorf("Tell() after moving origin back = %d, want 0", got)
	}
	if b, _ := Read[uint8](r); b != 2 {
		t.Errorf("Read() at new origin = %d, want 2", b)
	}
	r.SetRelativeOrigin(5)
	if b, _ := Read[uint8](r); b != 7 {
		t.Errorf("Read() at new origin = %d, want 7", b)
	}

	if err := r.Seek(-8); err == nil {
		t.Error("Seek() before stream start succeeded, want error")
	}
}

func TestReaderPushPopRestoresState(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0x11223344))
	binary.Write(&buf, binary.LittleEndian, uint32(0x55667788))
	r := FromBytes(buf.Bytes())

	func() {
		defer r.Save()()
		r.SwapEndian(true)
		r.SetRelativeOrigin(4)
		v, err := Read[uint32](r)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if v != 0x88776655 {
			t.Errorf("swapped Read() = %#x, want %#x", v, 0x88776655)
		}
	}()

	if r.SwappedEndian() {
		t.Error("SwappedEndian() = true after Pop, want false")
	}
	if r.Tell() != 0 {
		t.Errorf("Tell() after Pop = %d, want 0", r.Tell())
	}
	if r.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", r.Depth())
	}
	v, _ := Read[uint32](r)
	if v != 0x11223344 {
		t.Errorf("Read() after Pop = %#x, want %#x", v, 0x11223344)
	}
}

func TestPopWithoutPushPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Pop() without Push did not panic")
		}
	}()
	FromBytes(nil).Pop()
}

func TestReadContainer(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(3))
	binary.Write(&buf, binary.LittleEndian, []uint16{7, 8, 9})
	r := FromBytes(buf.Bytes())

	got, err := ReadCounted[uint16](r)
	if err != nil {
		t.Fatalf("ReadCounted() error = %v", err)
	}
	want := []uint16{7, 8, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReadCounted()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if _, err := ReadContainer[uint32](FromBytes([]byte{1, 2}), 100); !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("ReadContainer() past end error = %v, want ErrMalformedPayload", err)
	}
}

func TestStrings(t *testing.T) {
	r := FromBytes([]byte("abc\x00defg\x00\x00\x00tail"))

	s, err := r.ReadCString()
	if err != nil || s != "abc" {
		t.Errorf("ReadCString() = %q, %v, want %q", s, err, "abc")
	}
	s, err = r.ReadString(7)
	if err != nil || s != "defg" {
		t.Errorf("ReadString() = %q, %v, want %q", s, err, "defg")
	}
	if _, err := r.ReadCString(); err == nil {
		t.Error("ReadCString() without terminator succeeded, want error")
	}

	if got := CString([]byte("one\x00two\x00"), 4); got != "two" {
		t.Errorf("CString() = %q, want %q", got, "two")
	}
	if got := CString([]byte("x"), 5); got != "" {
		t.Errorf("CString() out of range = %q, want empty", got)
	}
}
