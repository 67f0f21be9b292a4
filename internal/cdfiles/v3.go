package cdfiles

import (
	"fmt"

	"github.com/jchantrell/arcbank/internal/binio"
)

type headerV3 struct {
	CodeVersion       float32
	Unk0              [2]uint32
	NumSearchPaths    uint32
	SearchPathsSize   uint32
	NumFiles          uint32
	ArchivePathLength uint32
	Alignment         uint32
	NumEntries        uint32
	Unk3              uint32
	Null0             [2]uint32
}

// parseV3 reads a version 3 index. Which optional arrays are present
// depends on the magic and byte order.
func (idx *Index) parseV3(r *binio.Reader) error {
	hdr, err := binio.Read[headerV3](r)
	if err != nil {
		return err
	}
	if _, err := readU32s(r, hdr.NumSearchPaths, "search path offsets"); err != nil {
		return err
	}
	if err := r.Skip(int64(hdr.SearchPathsSize)); err != nil {
		return fmt.Errorf("skipping search paths: %w", err)
	}
	if err := r.Skip(int64(hdr.ArchivePathLength)); err != nil {
		return fmt.Errorf("skipping archive path: %w", err)
	}

	t := &table{alignment: hdr.Alignment}
	if t.fileOffsets, err = readU32s(r, hdr.NumFiles, "file offsets"); err != nil {
		return err
	}
	if t.fileSizes, err = readU32s(r, hdr.NumFiles, "file sizes"); err != nil {
		return err
	}
	if t.treeOffsets, err = readU32s(r, hdr.NumEntries, "tree offsets"); err != nil {
		return err
	}
	if t.fileIDs, err = readFileIDs(r, hdr.NumEntries); err != nil {
		return err
	}

	auto := idx.Platform == PlatformAuto
	if !auto || r.SwappedEndian() {
		if _, err := readU32s(r, hdr.NumEntries, "variable data"); err != nil {
			return err
		}
	}
	if (auto && !r.SwappedEndian()) || idx.Platform == PlatformXbox {
		if t.streamIDs, err = readU32s(r, hdr.NumEntries, "stream ids"); err != nil {
			return err
		}
	}

	names, err := readNames(r)
	if err != nil {
		return err
	}

	idx.streamIDs = t.streamIDs
	r.SetRelativeOrigin(r.Tell())
	return idx.resolve(r, t, names)
}
