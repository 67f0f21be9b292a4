package cdfiles

import (
	"fmt"
	"strings"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

// headerV4 is shared by versions 4 and 5.
type headerV4 struct {
	Unk2              uint32
	Unk4              uint32
	RootPathSize      uint32
	Unk3              uint32
	NumSearchPaths    uint32
	WorkingPathSize   uint32
	NumTotalFiles     uint32
	ArchivePathLength uint32
	Alignment         uint32
	NumFiles          uint32
	UnkSize           uint32
}

const trailerBlock = 128

// x360Blobs are the fixed split blobs of Xbox 360 indexes.
var x360Blobs = []string{"archive0.ar", "archive1.ar"}

func (idx *Index) parseV4(r *binio.Reader) error {
	if err := r.Skip(4); err != nil {
		return err
	}
	hdr, err := binio.Read[headerV4](r)
	if err != nil {
		return err
	}
	if _, err := readU32s(r, hdr.NumSearchPaths, "search path offsets"); err != nil {
		return err
	}

	archivePath, err := readPaths(r, hdr)
	if err != nil {
		return err
	}

	t, err := readTableV4(r, hdr)
	if err != nil {
		return err
	}
	if idx.Platform == PlatformX360 {
		if t.streamIDs, err = readU32s(r, hdr.NumFiles, "stream ids"); err != nil {
			return err
		}
	} else if err := r.Skip(int64(hdr.NumFiles) * int64(hdr.Unk2) * 4); err != nil {
		return err
	}

	names, err := readNames(r)
	if err != nil {
		return err
	}
	if err := r.Skip(4 + trailerBlock*(int64(hdr.Unk2)+1)); err != nil {
		return fmt.Errorf("skipping trailer: %w", err)
	}

	idx.setBlobs(archivePath)
	r.SetRelativeOrigin(r.Tell())
	return idx.resolveV4(r, t, names)
}

func (idx *Index) parseV5(r *binio.Reader) error {
	unk1, err := binio.Read[uint32](r)
	if err != nil {
		return err
	}
	if unk1 < 4 {
		if err := r.Skip(4); err != nil {
			return err
		}
	}
	hdr, err := binio.Read[headerV4](r)
	if err != nil {
		return err
	}
	if unk1 > 4 {
		if _, err := readU32s(r, hdr.NumSearchPaths, "search path offsets"); err != nil {
			return err
		}
	} else if err := r.Skip(int64(hdr.RootPathSize)); err != nil {
		return fmt.Errorf("skipping root path: %w", err)
	}

	archivePath, err := readPaths(r, hdr)
	if err != nil {
		return err
	}
	archivePath = strings.TrimPrefix(archivePath, "#/")

	t, err := readTableV4(r, hdr)
	if err != nil {
		return err
	}
	switch {
	case idx.Platform == PlatformX360:
		if t.streamIDs, err = readU32s(r, hdr.NumFiles, "stream ids"); err != nil {
			return err
		}
		if err := r.Skip(int64(hdr.NumFiles)); err != nil {
			return err
		}
	case unk1 < 4:
		words := int64(1)
		if unk1 == 3 {
			words = 2
		}
		if err := r.Skip(int64(hdr.NumFiles) * words * 4); err != nil {
			return err
		}
	}

	names, err := readNames(r)
	if err != nil {
		return err
	}
	if err := r.Skip(4 + trailerBlock); err != nil {
		return fmt.Errorf("skipping trailer: %w", err)
	}

	idx.setBlobs(archivePath)
	r.SetRelativeOrigin(r.Tell())
	return idx.resolveV4(r, t, names)
}

// readPaths skips the two unknown words and the working path, and returns
// the archive path.
func readPaths(r *binio.Reader, hdr headerV4) (string, error) {
	if err := r.Skip(8 + int64(hdr.WorkingPathSize)); err != nil {
		return "", fmt.Errorf("skipping working path: %w", err)
	}
	path, err := r.ReadString(int(hdr.ArchivePathLength))
	if err != nil {
		return "", fmt.Errorf("reading archive path: %w", err)
	}
	return path, nil
}

func readTableV4(r *binio.Reader, hdr headerV4) (*table, error) {
	t := &table{alignment: hdr.Alignment}
	var err error
	if t.fileOffsets, err = readU32s(r, hdr.NumTotalFiles, "file offsets"); err != nil {
		return nil, err
	}
	if t.fileSizes, err = readU32s(r, hdr.NumTotalFiles, "file sizes"); err != nil {
		return nil, err
	}
	if t.treeOffsets, err = readU32s(r, hdr.NumFiles, "tree offsets"); err != nil {
		return nil, err
	}
	if t.fileIDs, err = readFileIDs(r, hdr.NumFiles); err != nil {
		return nil, err
	}
	if _, err := readU32s(r, hdr.NumFiles, "variable data"); err != nil {
		return nil, err
	}
	return t, nil
}

func (idx *Index) setBlobs(archivePath string) {
	if idx.Platform == PlatformX360 {
		idx.Blobs = x360Blobs
		return
	}
	idx.Blobs = []string{archivePath}
}

func (idx *Index) resolveV4(r *binio.Reader, t *table, names []string) error {
	if err := idx.resolve(r, t, names); err != nil {
		return err
	}
	for _, f := range idx.Files {
		if f.Stream >= len(idx.Blobs) {
			return fmt.Errorf("file %q stream %d of %d: %w", f.Name, f.Stream, len(idx.Blobs), arcerr.ErrMalformedPayload)
		}
	}
	return nil
}
