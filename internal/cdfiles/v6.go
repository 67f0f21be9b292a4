package cdfiles

import (
	"fmt"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

type headerV6 struct {
	Unk1             [5]uint32
	NumArchives      uint32
	NumTotalFiles    uint32
	NumTreeNodes     uint32
	StringBufferSize uint32
}

type archiveV6 struct {
	NameOffset uint32
	Unk1       uint32
}

type fileV6 struct {
	Null0            uint32
	FolderNameOffset uint32
	FileNameOffset   uint32
	DataSize         uint32
	UncompressedSize uint32
	Null1            uint32
	DataOffset       uint32
	ArchiveIndex     uint8
	Type             EntryType
	Null2            uint8
	Unk4             uint8
}

type treeNodeV6 struct {
	ParentNode     int32
	Unk            [7]int32
	FileIndex      uint32
	TailNameOffset uint32
}

// parseV6 reads a version 6 index, which names its blobs and files
// directly from a string buffer.
func (idx *Index) parseV6(r *binio.Reader) error {
	hdr, err := binio.Read[headerV6](r)
	if err != nil {
		return err
	}
	archives, err := binio.ReadContainer[archiveV6](r, int(hdr.NumArchives))
	if err != nil {
		return fmt.Errorf("reading archives: %w", err)
	}
	files, err := binio.ReadContainer[fileV6](r, int(hdr.NumTotalFiles))
	if err != nil {
		return fmt.Errorf("reading files: %w", err)
	}
	if _, err := binio.ReadContainer[treeNodeV6](r, int(hdr.NumTreeNodes)); err != nil {
		return fmt.Errorf("reading tree: %w", err)
	}
	strs, err := r.ReadBytes(int(hdr.StringBufferSize))
	if err != nil {
		return fmt.Errorf("reading string buffer: %w", err)
	}

	for _, a := range archives {
		idx.Blobs = append(idx.Blobs, binio.CString(strs, int(a.NameOffset)))
	}

	for i, f := range files {
		if f.Type != EntryStreamFile && f.Type != EntryStreamHDFile {
			continue
		}
		if int(f.ArchiveIndex) >= len(idx.Blobs) {
			return fmt.Errorf("file %d archive %d of %d: %w", i, f.ArchiveIndex, len(idx.Blobs), arcerr.ErrMalformedPayload)
		}
		idx.Files = append(idx.Files, File{
			Name:   binio.CString(strs, int(f.FolderNameOffset)) + binio.CString(strs, int(f.FileNameOffset)),
			Stream: int(f.ArchiveIndex),
			Offset: int64(f.DataOffset),
			Size:   int64(f.DataSize),
		})
	}
	return nil
}
