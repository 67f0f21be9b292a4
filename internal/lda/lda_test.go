package lda

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"unicode/utf16"

	"github.com/jchantrell/arcbank/internal/arcerr"
)

func table(magic string, pool []byte, offsets ...uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	binary.Write(&buf, binary.LittleEndian, []uint32{0, 0, 0, uint32(len(offsets))})
	binary.Write(&buf, binary.LittleEndian, offsets)
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write(pool)
	return buf.Bytes()
}

func wide(s string) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, utf16.Encode([]rune(s)))
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{
			name: "narrow",
			data: table(MagicNarrow, []byte("yes\x00no\x00"), 0, 4),
			want: []string{"yes", "no"},
		},
		{
			name: "wide",
			data: table(MagicWide, append(wide("héllo"), wide("日本")...), 0, 12),
			want: []string{"héllo", "日本"},
		},
		{
			name: "shared offset",
			data: table(MagicNarrow, []byte("same\x00"), 0, 0),
			want: []string{"same", "same"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Decode() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Decode()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", table("lda2", nil), arcerr.ErrInvalidFormat},
		{"offset past pool", table(MagicNarrow, []byte("a\x00"), 40), arcerr.ErrMalformedPayload},
		{"truncated", []byte("lda0"), arcerr.ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, []string{"a", "b"}); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if buf.String() != "a\nb\n" {
		t.Errorf("WriteText() = %q, want %q", buf.String(), "a\nb\n")
	}
}
