package cdfiles

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jchantrell/arcbank/internal/arcerr"
)

// Blob is an open companion data file of Size bytes.
type Blob interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

type fileBlob struct {
	*os.File
	size int64
}

func (b fileBlob) Size() int64 { return b.size }

func openBlob(path string) (Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return fileBlob{File: f, size: info.Size()}, nil
}

// Opener locates companion data files by the name an index records.
type Opener interface {
	Open(name string) (Blob, error)
}

// FileWriter receives extracted files.
type FileWriter interface {
	WriteFile(name string, data []byte) error
}

// DirOpener opens companions relative to Dir. Names are matched exactly
// first and then case-insensitively, since indexes built on one platform
// are often read from media that changed the case.
type DirOpener struct {
	Dir string
}

func (d DirOpener) Open(name string) (Blob, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	path := filepath.Join(d.Dir, rel)

	b, err := openBlob(path)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	dir, base := filepath.Split(path)
	entries, rerr := os.ReadDir(dir)
	if rerr == nil {
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(e.Name(), base) {
				continue
			}
			return openBlob(filepath.Join(dir, e.Name()))
		}
	}
	return nil, fmt.Errorf("companion %q in %s: %w", name, d.Dir, arcerr.ErrMissingCompanionFile)
}

const maxV3Parts = 4

// blobSet opens each stream's blob on first use.
type blobSet struct {
	o     Opener
	names []string
	open  []Blob
}

func (s *blobSet) get(stream int) (Blob, error) {
	if stream < 0 || stream >= len(s.names) {
		return nil, fmt.Errorf("stream %d of %d: %w", stream, len(s.names), arcerr.ErrMalformedPayload)
	}
	if s.open[stream] == nil {
		b, err := s.o.Open(s.names[stream])
		if err != nil {
			return nil, err
		}
		slog.Debug("Opened data blob", "name", s.names[stream], "stream", stream)
		s.open[stream] = b
	}
	return s.open[stream], nil
}

func (s *blobSet) Close() error {
	var errs []error
	for _, b := range s.open {
		if b != nil {
			errs = append(errs, b.Close())
		}
	}
	return errors.Join(errs...)
}

// blobs prepares the streams of idx. Version 3 uses a single archive.ar
// when one exists and otherwise up to four numbered parts selected by each
// file's stream id.
func (idx *Index) blobs(o Opener) (*blobSet, bool, error) {
	if idx.Version != 3 {
		return &blobSet{o: o, names: idx.Blobs, open: make([]Blob, len(idx.Blobs))}, true, nil
	}

	for _, name := range []string{"archive.ar", "ARCHIVE.AR"} {
		b, err := o.Open(name)
		if err == nil {
			return &blobSet{o: o, names: []string{name}, open: []Blob{b}}, false, nil
		}
		if !errors.Is(err, arcerr.ErrMissingCompanionFile) {
			return nil, false, err
		}
	}

	set := &blobSet{o: o, open: make([]Blob, maxV3Parts)}
	for p := range maxV3Parts {
		set.names = append(set.names, "archive"+strconv.Itoa(p)+".ar")
	}
	for e, s := range idx.streamIDs {
		if s >= maxV3Parts {
			return nil, false, fmt.Errorf("entry %d stream %d: %w", e, s, arcerr.ErrMalformedPayload)
		}
	}
	if _, err := set.get(0); err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Extract copies every file of idx out of its blob into w and returns the
// number of files written.
func Extract(idx *Index, o Opener, w FileWriter) (int, error) {
	set, useStreams, err := idx.blobs(o)
	if err != nil {
		return 0, err
	}
	defer set.Close()

	written := 0
	for _, f := range idx.Files {
		stream := 0
		if useStreams {
			stream = f.Stream
		}
		blob, err := set.get(stream)
		if err != nil {
			return written, fmt.Errorf("file %q: %w", f.Name, err)
		}

		if f.Offset < 0 || f.Size < 0 || f.Offset+f.Size > blob.Size() {
			return written, fmt.Errorf("file %q (%d bytes at %#x) past blob of %d bytes: %w", f.Name, f.Size, f.Offset, blob.Size(), arcerr.ErrMalformedPayload)
		}
		data := make([]byte, f.Size)
		if _, err := blob.ReadAt(data, f.Offset); err != nil {
			return written, fmt.Errorf("reading %q (%d bytes at %#x): %w: %w", f.Name, f.Size, f.Offset, arcerr.ErrMalformedPayload, err)
		}
		if err := PatchARC(f.Name, data, idx.Version, idx.Swapped); err != nil {
			return written, err
		}
		if err := w.WriteFile(f.Name, data); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// PatchARC stamps the index version into the header of an extracted bank
// so the bank reader can tell which index it came from. Byte 7 holds it in
// native order indexes and byte 4 in swapped ones. Other names are left
// untouched.
func PatchARC(name string, data []byte, version uint32, swapped bool) error {
	if !strings.HasSuffix(name, ".ARC") {
		return nil
	}
	pos := 7
	if swapped {
		pos = 4
	}
	if len(data) <= pos {
		return fmt.Errorf("bank %q of %d bytes: %w", name, len(data), arcerr.ErrMalformedPayload)
	}
	data[pos] = byte(version)
	return nil
}
