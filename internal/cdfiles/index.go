// Package cdfiles reads CDFILES directory indexes and extracts the files
// they locate inside their companion data blobs.
package cdfiles

import (
	"fmt"
	"log/slog"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

// Platform is the index magic.
type Platform string

const (
	PlatformAuto Platform = "file"
	PlatformPC   Platform = "filC"
	PlatformPS2  Platform = "filP"
	PlatformXbox Platform = "filX"
	PlatformPS3  Platform = "fil3"
	PlatformX360 Platform = "filE"
	PlatformWii  Platform = "filN"
)

func (p Platform) known() bool {
	switch p {
	case PlatformAuto, PlatformPC, PlatformPS2, PlatformXbox, PlatformPS3, PlatformX360, PlatformWii:
		return true
	}
	return false
}

// EntryType is where a tree entry's data lives.
type EntryType uint8

const (
	EntryStream       EntryType = 0
	EntryHDDFile      EntryType = 2
	EntryStreamFile   EntryType = 4
	EntryStreamHDFile EntryType = 5
)

// FileID packs a file table index in the low 28 bits and an EntryType in
// the high 4.
type FileID uint32

func (id FileID) Index() uint32   { return uint32(id) & 0x0fffffff }
func (id FileID) Type() EntryType { return EntryType(id >> 28) }

// swapThreshold is the smallest version value that can only come from an
// index written in the other byte order.
const swapThreshold = 0x10000

// File is one extractable file.
type File struct {
	Name   string
	Stream int
	Offset int64
	Size   int64
}

// Index is a parsed CDFILES directory.
type Index struct {
	Platform Platform
	Version  uint32
	Swapped  bool

	// Blobs names the data blob behind each stream id. Version 3 indexes
	// leave it empty; their blobs are found at extraction time.
	Blobs []string
	Files []File

	// streamIDs holds the stream of every version 3 entry, files or not.
	streamIDs []uint32
}

// Parse reads the index header and dispatches on its version.
func Parse(r *binio.Reader) (*Index, error) {
	magic, err := r.ReadString(4)
	if err != nil {
		return nil, fmt.Errorf("reading index magic: %w", err)
	}
	p := Platform(magic)
	if !p.known() {
		return nil, fmt.Errorf("unknown index magic %q: %w", magic, arcerr.ErrInvalidFormat)
	}

	version, err := binio.Read[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("reading index version: %w", err)
	}
	if version > swapThreshold {
		if err := r.Skip(-4); err != nil {
			return nil, fmt.Errorf("rewinding index version: %w", err)
		}
		r.SwapEndian(true)
		if version, err = binio.Read[uint32](r); err != nil {
			return nil, fmt.Errorf("reading index version: %w", err)
		}
	}

	idx := &Index{Platform: p, Version: version, Swapped: r.SwappedEndian()}
	slog.Debug("Parsing index", "platform", string(p), "version", version, "swapped", idx.Swapped)

	switch version {
	case 1:
		err = idx.parseV1(r)
	case 3:
		err = idx.parseV3(r)
	case 4:
		err = idx.parseV4(r)
	case 5:
		err = idx.parseV5(r)
	case 6:
		err = idx.parseV6(r)
	default:
		return nil, fmt.Errorf("index version %d: %w", version, arcerr.ErrUnsupportedVersion)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing version %d index: %w", version, err)
	}
	return idx, nil
}

// CatName decodes a fragment-index stream into a path. Each index is one
// byte, or two when the first has its high bit set, and is 1-based into
// names. A zero byte ends the stream.
func CatName(r *binio.Reader, names []string) (string, error) {
	var name []byte
	for {
		c, err := binio.Read[uint8](r)
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(name), nil
		}

		index := int(c)
		if c&0x80 != 0 {
			lo, err := binio.Read[uint8](r)
			if err != nil {
				return "", err
			}
			index = int(c&0x7f)<<8 | int(lo)
		}

		if index < 1 || index > len(names) {
			return "", fmt.Errorf("name fragment %d of %d: %w", index, len(names), arcerr.ErrMalformedPayload)
		}
		name = append(name, names[index-1]...)
	}
}

// readNames reads the fragment table: a count, a buffer size, one offset
// per fragment and the NUL-separated buffer.
func readNames(r *binio.Reader) ([]string, error) {
	var hdr struct {
		NumNames   uint32
		BufferSize uint32
	}
	if err := r.ReadValue(&hdr); err != nil {
		return nil, fmt.Errorf("reading name table header: %w", err)
	}
	offsets, err := binio.ReadContainer[uint32](r, int(hdr.NumNames))
	if err != nil {
		return nil, fmt.Errorf("reading name offsets: %w", err)
	}
	buf, err := r.ReadBytes(int(hdr.BufferSize))
	if err != nil {
		return nil, fmt.Errorf("reading name buffer: %w", err)
	}

	names := make([]string, len(offsets))
	for i, off := range offsets {
		if int(off) >= len(buf) {
			return nil, fmt.Errorf("name %d at %d past buffer of %d: %w", i, off, len(buf), arcerr.ErrMalformedPayload)
		}
		names[i] = binio.CString(buf, int(off))
	}
	return names, nil
}

// table holds the parallel arrays shared by the fragment-named variants.
type table struct {
	alignment   uint32
	fileOffsets []uint32
	fileSizes   []uint32
	treeOffsets []uint32
	fileIDs     []FileID
	streamIDs   []uint32
}

// resolve names every StreamFile tree entry by decoding its fragment
// stream, with tree offsets relative to the cursor origin.
func (idx *Index) resolve(r *binio.Reader, t *table, names []string) error {
	for f, id := range t.fileIDs {
		if id.Type() != EntryStreamFile {
			continue
		}
		if int(id.Index()) >= len(t.fileOffsets) {
			return fmt.Errorf("entry %d file %d of %d: %w", f, id.Index(), len(t.fileOffsets), arcerr.ErrMalformedPayload)
		}
		if err := r.Seek(int64(t.treeOffsets[f])); err != nil {
			return fmt.Errorf("entry %d: %w", f, err)
		}
		name, err := CatName(r, names)
		if err != nil {
			return fmt.Errorf("entry %d name: %w", f, err)
		}

		file := File{
			Name:   name,
			Offset: int64(t.fileOffsets[id.Index()]) * int64(t.alignment),
			Size:   int64(t.fileSizes[id.Index()]),
		}
		if t.streamIDs != nil {
			file.Stream = int(t.streamIDs[f])
		}
		idx.Files = append(idx.Files, file)
	}
	return nil
}

func readU32s(r *binio.Reader, n uint32, what string) ([]uint32, error) {
	v, err := binio.ReadContainer[uint32](r, int(n))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return v, nil
}

func readFileIDs(r *binio.Reader, n uint32) ([]FileID, error) {
	v, err := binio.ReadContainer[FileID](r, int(n))
	if err != nil {
		return nil, fmt.Errorf("reading file ids: %w", err)
	}
	return v, nil
}
