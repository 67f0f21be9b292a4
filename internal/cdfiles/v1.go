package cdfiles

import (
	"fmt"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

// parseV1 picks the PS2 or the Xbox layout. Only a native order stream
// with unk1 == 1 is PS2.
func (idx *Index) parseV1(r *binio.Reader) error {
	var pre struct {
		Unk0 float32
		Unk1 uint32
	}
	if err := r.ReadValue(&pre); err != nil {
		return err
	}
	if !r.SwappedEndian() && pre.Unk1 == 1 {
		return idx.parseV1PS2(r)
	}
	return idx.parseV1X(r)
}

func readCountedString(r *binio.Reader, what string) ([]byte, error) {
	b, err := binio.ReadCounted[byte](r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return b, nil
}

func (idx *Index) parseV1PS2(r *binio.Reader) error {
	var hdr struct {
		Unk0           uint64
		NumSearchPaths uint32
		Null0          uint32
	}
	if err := r.ReadValue(&hdr); err != nil {
		return err
	}
	if _, err := readCountedString(r, "search paths"); err != nil {
		return err
	}
	numFiles, err := binio.Read[uint32](r)
	if err != nil {
		return err
	}
	archivePath, err := readCountedString(r, "archive path")
	if err != nil {
		return err
	}
	alignment, err := binio.Read[uint32](r)
	if err != nil {
		return err
	}

	type dataFile struct {
		BlockOffset uint32
		Size        uint32
	}
	type entry struct {
		NameOffset uint32
		ID         FileID
	}
	data, err := binio.ReadContainer[dataFile](r, int(numFiles))
	if err != nil {
		return fmt.Errorf("reading data files: %w", err)
	}
	entries, err := binio.ReadCounted[entry](r)
	if err != nil {
		return fmt.Errorf("reading entries: %w", err)
	}
	names, err := readCountedString(r, "name buffer")
	if err != nil {
		return err
	}

	idx.Blobs = []string{binio.CString(archivePath, 0)}
	for i, e := range entries {
		if int(e.ID.Index()) >= len(data) {
			return fmt.Errorf("entry %d file %d of %d: %w", i, e.ID.Index(), len(data), arcerr.ErrMalformedPayload)
		}
		d := data[e.ID.Index()]
		idx.Files = append(idx.Files, File{
			Name:   binio.CString(names, int(e.NameOffset)),
			Offset: int64(d.BlockOffset) * int64(alignment),
			Size:   int64(d.Size),
		})
	}
	return nil
}

func (idx *Index) parseV1X(r *binio.Reader) error {
	var hdr struct {
		Unk10             uint32
		NumSearchPaths    uint32
		SearchPathsSize   uint32
		NumTotalFiles     uint32
		ArchivePathLength uint32
		Alignment         uint32
		NumFiles          uint32
		NameBufferSize    uint32
	}
	if err := r.ReadValue(&hdr); err != nil {
		return err
	}
	for range 2 {
		if _, err := r.ReadCString(); err != nil {
			return fmt.Errorf("reading root path: %w", err)
		}
	}
	if _, err := readU32s(r, hdr.NumSearchPaths, "search path offsets"); err != nil {
		return err
	}
	if err := r.Skip(int64(hdr.SearchPathsSize)); err != nil {
		return fmt.Errorf("skipping search paths: %w", err)
	}
	archivePath, err := r.ReadString(int(hdr.ArchivePathLength))
	if err != nil {
		return fmt.Errorf("reading archive path: %w", err)
	}

	offsets, err := readU32s(r, hdr.NumTotalFiles, "file offsets")
	if err != nil {
		return err
	}
	sizes, err := readU32s(r, hdr.NumTotalFiles, "file sizes")
	if err != nil {
		return err
	}
	nameOffsets, err := readU32s(r, hdr.NumFiles, "name offsets")
	if err != nil {
		return err
	}
	ids, err := readFileIDs(r, hdr.NumFiles)
	if err != nil {
		return err
	}
	names, err := r.ReadBytes(int(hdr.NameBufferSize))
	if err != nil {
		return fmt.Errorf("reading name buffer: %w", err)
	}

	idx.Blobs = []string{archivePath}
	for i, id := range ids {
		if id.Type() != EntryStreamFile {
			continue
		}
		if int(id.Index()) >= len(offsets) {
			return fmt.Errorf("entry %d file %d of %d: %w", i, id.Index(), len(offsets), arcerr.ErrMalformedPayload)
		}
		idx.Files = append(idx.Files, File{
			Name:   binio.CString(names, int(nameOffsets[i])),
			Offset: int64(offsets[id.Index()]) * int64(hdr.Alignment),
			Size:   int64(sizes[id.Index()]),
		})
	}
	return nil
}
