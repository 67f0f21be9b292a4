// Package arc decodes bank archives: the header, the flat entry table, the
// shared name blob and the per-type records behind each entry.
package arc

import (
	"fmt"
	"strconv"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

const (
	// SupportedVersion is the only version byte the record pipeline decodes.
	SupportedVersion = 3

	entryTableOffset = 0x80
)

// Header is the fixed archive header. Counters are per record family and
// size the resolver's lookup tables.
type Header struct {
	ID                    [4]byte
	NumEntriesAndVersion  uint32
	NumTextures           uint16
	NumModels             uint16
	NumAttachments        uint16
	NumAttachedModels     uint16
	NumSkeletons          uint16
	NumCameras            uint16
	Unk1                  uint16
	NumRigNodes           uint16
	NumMaterials          uint16
	NumMeshes             uint16
	Unk2                  uint16
	NumReferencedTextures uint16
	Unk22                 [4]uint16
	NumIndexBuffers       uint16
	NumVertexBuffers      uint16
	Unk20                 [2]uint16
	NumSkinnedModels      uint16
	NumDeformedMeshes     uint16
	NumAnimations         uint16
	Unk3                  uint16
	NumAnimatedNodes      uint16
	Unk4                  uint16
	NumLightNodes         uint16
}

// NumEntries returns the entry count packed in the low 24 bits.
func (h Header) NumEntries() int {
	return int(h.NumEntriesAndVersion & 0xffffff)
}

// Version returns the version byte packed in the top 8 bits.
func (h Header) Version() uint8 {
	return uint8(h.NumEntriesAndVersion >> 24)
}

// Platform returns the platform declared by the magic.
func (h Header) Platform() Platform {
	return PlatformOf(h.ID)
}

// Entry is one slot of the entry table.
type Entry struct {
	Index      uint32
	Offset     uint32
	NameOffset int32
	Type       Type
	RawSize    [3]byte
}

// Size returns the record size, stored as a big-endian 24 bit value.
func (e Entry) Size() uint32 {
	return uint32(e.RawSize[0])<<16 | uint32(e.RawSize[1])<<8 | uint32(e.RawSize[2])
}

// ReadHeader reads and validates the archive header at the cursor.
func ReadHeader(r *binio.Reader) (Header, error) {
	hdr, err := binio.Read[Header](r)
	if err != nil {
		return Header{}, fmt.Errorf("reading archive header: %w", err)
	}

	switch p := hdr.Platform(); p {
	case PlatformPC:
	case PlatformUnknown:
		return Header{}, fmt.Errorf("unknown archive magic %q: %w", hdr.ID[:], arcerr.ErrInvalidFormat)
	default:
		return Header{}, fmt.Errorf("%s archives are not decoded: %w", p, arcerr.ErrInvalidFormat)
	}

	if v := hdr.Version(); v != SupportedVersion {
		return Header{}, fmt.Errorf("archive version %d, expected %d: %w", v, SupportedVersion, arcerr.ErrUnsupportedVersion)
	}

	return hdr, nil
}

// Archive is a bank whose entry table and names have been read. Record
// offsets are resolved against the origin set right after the table.
type Archive struct {
	Header  Header
	Entries []Entry

	r      *binio.Reader
	names  []byte
	seq    []int
	groups []string
}

// Open reads the header, entry table and name blob of a bank.
func Open(r *binio.Reader) (*Archive, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	if err := r.Seek(entryTableOffset); err != nil {
		return nil, fmt.Errorf("seeking entry table: %w", err)
	}

	entries, err := binio.ReadContainer[Entry](r, hdr.NumEntries())
	if err != nil {
		return nil, fmt.Errorf("reading entry table: %w", err)
	}

	r.SetRelativeOrigin(r.Tell())

	a := &Archive{
		Header:  hdr,
		Entries: entries,
		r:       r,
	}

	for i, e := range entries {
		if e.Type != TypeEntryNames {
			continue
		}
		if err := a.Seek(i); err != nil {
			return nil, err
		}
		a.names, err = r.ReadBytes(int(e.Size()))
		if err != nil {
			return nil, fmt.Errorf("reading entry names: %w", err)
		}
		break
	}

	a.indexNames()

	return a, nil
}

// Reader returns the cursor positioned by the last Seek.
func (a *Archive) Reader() *binio.Reader {
	return a.r
}

// Seek moves the cursor to the record of entry i.
func (a *Archive) Seek(i int) error {
	e := a.Entries[i]
	if err := a.r.Seek(int64(e.Offset)); err != nil {
		return fmt.Errorf("entry %d (%s): %w", i, e.Type, err)
	}
	return nil
}

func (a *Archive) indexNames() {
	a.seq = make([]int, len(a.Entries))
	a.groups = make([]string, len(a.Entries))

	seq := 0
	group := ""
	for i, e := range a.Entries {
		a.seq[i] = seq
		a.groups[i] = group
		switch e.Type {
		case TypeGroup:
			group = a.Name(i) + "/"
		case TypeEntryNames:
		default:
			seq++
		}
	}
}

// Name returns the entry's own name: the string at its name offset, or its
// sequence number among record entries when it has none.
func (a *Archive) Name(i int) string {
	e := a.Entries[i]
	if e.NameOffset >= 0 {
		return binio.CString(a.names, int(e.NameOffset))
	}
	return strconv.Itoa(a.seq[i])
}

// QualifiedName returns Name prefixed with the enclosing group path.
func (a *Archive) QualifiedName(i int) string {
	if a.Entries[i].Type.Structural() {
		return a.Name(i)
	}
	return a.groups[i] + a.Name(i)
}
