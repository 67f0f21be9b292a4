package cdfiles

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

func encode(order binary.ByteOrder, fields ...any) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		if err := binary.Write(&buf, order, f); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

type blob struct{ *bytes.Reader }

func (blob) Close() error { return nil }

type memOpener map[string][]byte

func (m memOpener) Open(name string) (Blob, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, arcerr.ErrMissingCompanionFile)
	}
	return blob{bytes.NewReader(data)}, nil
}

type memWriter map[string][]byte

func (m memWriter) WriteFile(name string, data []byte) error {
	m[name] = data
	return nil
}

func TestCatName(t *testing.T) {
	names := make([]string, 300)
	names[0], names[1] = "abc", "def"
	names[299] = "/far"

	tests := []struct {
		name    string
		stream  []byte
		want    string
		wantErr bool
	}{
		{"one byte indices", []byte{1, 2, 0}, "abcdef", false},
		{"two byte index", []byte{1, 0x81, 0x2c, 0}, "abc/far", false},
		{"empty", []byte{0}, "", false},
		{"empty fragment", []byte{3, 0}, "", false},
		{"past table", []byte{0x82, 0x00, 0}, "", true},
		{"unterminated", []byte{1}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CatName(binio.FromBytes(tt.stream), names)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CatName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CatName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPatchARC(t *testing.T) {
	tests := []struct {
		name    string
		swapped bool
		pos     int
	}{
		{"BANK.ARC", false, 7},
		{"BANK.ARC", true, 4},
	}
	for _, tt := range tests {
		data := make([]byte, 8)
		if err := PatchARC(tt.name, data, 5, tt.swapped); err != nil {
			t.Fatalf("PatchARC() error = %v", err)
		}
		if data[tt.pos] != 5 {
			t.Errorf("PatchARC(swapped=%v) = %v, want byte %d set", tt.swapped, data, tt.pos)
		}
	}

	other := make([]byte, 8)
	PatchARC("bank.arc", other, 5, false)
	if !bytes.Equal(other, make([]byte, 8)) {
		t.Error("PatchARC() touched a name without the .ARC suffix")
	}

	if err := PatchARC("X.ARC", []byte{1}, 3, false); !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("PatchARC() on short data error = %v, want ErrMalformedPayload", err)
	}
}

func v3Index() []byte {
	return v3IndexStreams(0, 0)
}

// v3IndexStreams builds a native v3 index with one StreamFile entry and
// one HDDFile entry on the given streams.
func v3IndexStreams(file, hdd uint32) []byte {
	le := binary.LittleEndian
	names := []byte("BNK\x00.ARC\x00")
	return encode(le,
		[]byte("file"), uint32(3),
		headerV3{CodeVersion: 1, NumFiles: 1, Alignment: 16, NumEntries: 2},
		[]uint32{1}, []uint32{8}, // file offsets and sizes
		[]uint32{0, 3}, // tree offsets
		[]uint32{uint32(EntryStreamFile) << 28, uint32(EntryHDDFile) << 28},
		[]uint32{file, hdd},
		uint32(2), uint32(len(names)), []uint32{0, 4}, names,
		[]byte{1, 2, 0},
	)
}

func TestExtractV3(t *testing.T) {
	idx, err := Parse(binio.FromBytes(v3Index()))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if idx.Version != 3 || idx.Swapped || len(idx.Files) != 1 {
		t.Fatalf("Parse() = %+v, want one native v3 file", idx)
	}
	if f := idx.Files[0]; f.Name != "BNK.ARC" || f.Offset != 16 || f.Size != 8 {
		t.Errorf("file = %+v, want BNK.ARC at 16 of 8 bytes", f)
	}

	archive := append(make([]byte, 16), []byte("ARCC\x00\x00\x00\x00")...)
	out := memWriter{}
	n, err := Extract(idx, memOpener{"archive.ar": archive}, out)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Extract() = %d files, want 1", n)
	}
	if got := out["BNK.ARC"]; len(got) != 8 || got[7] != 3 {
		t.Errorf("BNK.ARC = %v, want version byte 3 at 7", got)
	}

	// no archive.ar: fall back to numbered parts
	out = memWriter{}
	if _, err := Extract(idx, memOpener{"archive0.ar": archive}, out); err != nil {
		t.Fatalf("Extract() from parts error = %v", err)
	}
	if _, ok := out["BNK.ARC"]; !ok {
		t.Error("Extract() from parts wrote nothing")
	}

	_, err = Extract(idx, memOpener{"archive.ar": archive[:20]}, memWriter{})
	if !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("Extract() past blob end error = %v, want ErrMalformedPayload", err)
	}
}

func TestExtractV3StreamIDs(t *testing.T) {
	archive := append(make([]byte, 16), []byte("ARCC\x00\x00\x00\x00")...)
	parts := memOpener{"archive0.ar": archive, "archive1.ar": archive}

	tests := []struct {
		name    string
		file    uint32
		hdd     uint32
		opener  memOpener
		wantErr error
	}{
		{name: "parts in range", file: 1, hdd: 3, opener: parts},
		{name: "non-file entry out of range", file: 0, hdd: 4, opener: parts, wantErr: arcerr.ErrMalformedPayload},
		{name: "file entry out of range", file: 9, hdd: 0, opener: parts, wantErr: arcerr.ErrMalformedPayload},
		{name: "single archive ignores ids", file: 0, hdd: 9, opener: memOpener{"archive.ar": archive}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Parse(binio.FromBytes(v3IndexStreams(tt.file, tt.hdd)))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			_, err = Extract(idx, tt.opener, memWriter{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Extract() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func v6Index() []byte {
	be := binary.BigEndian
	strs := []byte("data.ar\x00chars/\x00HERO.ARC\x00")
	return encode(be,
		[]byte("filE"), uint32(6),
		headerV6{NumArchives: 1, NumTotalFiles: 2, StringBufferSize: uint32(len(strs))},
		archiveV6{NameOffset: 0},
		fileV6{FolderNameOffset: 8, FileNameOffset: 15, DataSize: 8, Type: EntryStreamFile},
		fileV6{Type: EntryHDDFile},
		strs,
	)
}

func TestExtractV6Swapped(t *testing.T) {
	idx, err := Parse(binio.FromBytes(v6Index()))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !idx.Swapped || idx.Platform != PlatformX360 {
		t.Errorf("Parse() swapped=%v platform=%s, want swapped filE", idx.Swapped, idx.Platform)
	}
	if len(idx.Blobs) != 1 || idx.Blobs[0] != "data.ar" {
		t.Errorf("Blobs = %v, want [data.ar]", idx.Blobs)
	}

	out := memWriter{}
	if _, err := Extract(idx, memOpener{"data.ar": []byte("ARCC\x00\x00\x00\x00")}, out); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := out["chars/HERO.ARC"]; len(got) != 8 || got[4] != 6 {
		t.Errorf("chars/HERO.ARC = %v, want version byte 6 at 4", got)
	}

	_, err = Extract(idx, memOpener{}, memWriter{})
	if !errors.Is(err, arcerr.ErrMissingCompanionFile) {
		t.Errorf("Extract() without blob error = %v, want ErrMissingCompanionFile", err)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", encode(binary.LittleEndian, []byte("ARCC"), uint32(3)), arcerr.ErrInvalidFormat},
		{"version 2", encode(binary.LittleEndian, []byte("filC"), uint32(2)), arcerr.ErrUnsupportedVersion},
		{"truncated", encode(binary.LittleEndian, []byte("filC"), uint32(3)), arcerr.ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(binio.FromBytes(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func fragmentNames(frags ...string) []any {
	var buf bytes.Buffer
	offsets := make([]uint32, len(frags))
	for i, f := range frags {
		offsets[i] = uint32(buf.Len())
		buf.WriteString(f)
		buf.WriteByte(0)
	}
	return []any{uint32(len(frags)), uint32(buf.Len()), offsets, buf.Bytes()}
}

func v4Table(archivePath string) []any {
	// header, two unknown words, archive path, then the parallel tables:
	// file offsets, file sizes, tree offsets, file ids, variable data
	fields := []any{
		headerV4{NumTotalFiles: 1, ArchivePathLength: uint32(len(archivePath)), Alignment: 16, NumFiles: 1},
		[]uint32{0, 0}, []byte(archivePath),
		[]uint32{2}, []uint32{4}, []uint32{0},
		[]uint32{uint32(EntryStreamFile) << 28}, []uint32{0},
	}
	fields = append(fields, fragmentNames("dir/", "A.BIN")...)
	return append(fields, make([]byte, 4+trailerBlock), []byte{1, 2, 0})
}

func TestParseV4V5(t *testing.T) {
	le := binary.LittleEndian
	blob := append(make([]byte, 32), []byte("ABCD")...)

	tests := []struct {
		name     string
		data     []byte
		wantBlob string
	}{
		{
			name:     "v4",
			data:     encode(le, append([]any{[]byte("filC"), uint32(4), uint32(0)}, v4Table("data.ar")...)...),
			wantBlob: "data.ar",
		},
		{
			name:     "v5 strips the root marker",
			data:     encode(le, append([]any{[]byte("filC"), uint32(5), uint32(5)}, v4Table("#/d.ar")...)...),
			wantBlob: "d.ar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Parse(binio.FromBytes(tt.data))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(idx.Blobs) != 1 || idx.Blobs[0] != tt.wantBlob {
				t.Errorf("Blobs = %v, want [%s]", idx.Blobs, tt.wantBlob)
			}
			if len(idx.Files) != 1 {
				t.Fatalf("Files = %+v, want one file", idx.Files)
			}
			if f := idx.Files[0]; f.Name != "dir/A.BIN" || f.Offset != 32 || f.Size != 4 {
				t.Errorf("file = %+v, want dir/A.BIN at 32 of 4 bytes", f)
			}

			out := memWriter{}
			if _, err := Extract(idx, memOpener{tt.wantBlob: blob}, out); err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got := string(out["dir/A.BIN"]); got != "ABCD" {
				t.Errorf("dir/A.BIN = %q, want ABCD", got)
			}
		})
	}
}

func TestParseV1Xbox(t *testing.T) {
	le := binary.LittleEndian
	hdr := struct {
		Unk10             uint32
		NumSearchPaths    uint32
		SearchPathsSize   uint32
		NumTotalFiles     uint32
		ArchivePathLength uint32
		Alignment         uint32
		NumFiles          uint32
		NameBufferSize    uint32
	}{NumTotalFiles: 2, ArchivePathLength: 7, Alignment: 2048, NumFiles: 2, NameBufferSize: 16}

	data := encode(le,
		[]byte("filX"), uint32(1), float32(1), uint32(0),
		hdr, []byte("d:\x00root\x00"), []byte("xbox.ar"),
		[]uint32{0, 1}, []uint32{10, 3}, // file offsets and sizes
		[]uint32{0, 6}, // name offsets
		[]uint32{uint32(EntryHDDFile) << 28, uint32(EntryStreamFile)<<28 | 1},
		[]byte("SETUP\x00MOVIE.BIK\x00"),
	)

	idx, err := Parse(binio.FromBytes(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if idx.Platform != PlatformXbox || len(idx.Blobs) != 1 || idx.Blobs[0] != "xbox.ar" {
		t.Errorf("Parse() = %s %v, want filX with xbox.ar", idx.Platform, idx.Blobs)
	}
	if len(idx.Files) != 1 {
		t.Fatalf("Files = %+v, want only the stream file", idx.Files)
	}
	if f := idx.Files[0]; f.Name != "MOVIE.BIK" || f.Offset != 2048 || f.Size != 3 {
		t.Errorf("file = %+v, want MOVIE.BIK at 2048 of 3 bytes", f)
	}
}
