package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	glbMagic     = 0x46546c67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4e4f534a // "JSON"
	glbChunkBIN  = 0x004e4942 // "BIN\0"

	viewAlignment = 16
)

var (
	errInvalidGLBMagic   = errors.New("invalid GLB magic number")
	errInvalidGLBVersion = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk  = errors.New("GLB file missing JSON chunk")
	errInvalidVersion    = errors.New("invalid glTF version: must be 2.0")
)

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type glbChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

// SaveData writes count elements from data (any fixed-size value or slice
// that encoding/binary accepts) as a new accessor and returns its index.
func (d *Document) SaveData(s *Stream, alignment, componentType int, accessorType string, count int, data any) int {
	acc, idx := d.NewAccessor(s, alignment)
	acc.ComponentType = componentType
	acc.Type = accessorType
	acc.Count = count
	binary.Write(s, binary.LittleEndian, data)
	return idx
}

// Finalize lays the streams out after any loaded binary data and writes
// the document as GLB.
func (d *Document) Finalize(w io.Writer) error {
	var bin bytes.Buffer
	bin.Write(d.base)
	for _, s := range d.streams {
		if pad := bin.Len() % viewAlignment; pad != 0 {
			bin.Write(make([]byte, viewAlignment-pad))
		}
		view := d.BufferViews[s.slot]
		view.Buffer = 0
		view.ByteOffset = bin.Len()
		view.ByteLength = s.Len()
		bin.Write(s.data)
	}
	if pad := bin.Len() % 4; pad != 0 {
		bin.Write(make([]byte, 4-pad))
	}

	if bin.Len() > 0 {
		d.Buffers = []Buffer{{ByteLength: bin.Len()}}
	} else {
		d.Buffers = nil
	}

	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding glTF JSON: %w", err)
	}
	if pad := len(doc) % 4; pad != 0 {
		doc = append(doc, []byte(strings.Repeat(" ", 4-pad))...)
	}

	total := 12 + 8 + len(doc)
	if bin.Len() > 0 {
		total += 8 + bin.Len()
	}

	if err := binary.Write(w, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(total)}); err != nil {
		return fmt.Errorf("writing GLB header: %w", err)
	}
	if err := writeChunk(w, glbChunkJSON, doc); err != nil {
		return err
	}
	if bin.Len() > 0 {
		if err := writeChunk(w, glbChunkBIN, bin.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeChunk(w io.Writer, kind uint32, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, glbChunkHeader{ChunkLength: uint32(len(data)), ChunkType: kind}); err != nil {
		return fmt.Errorf("writing GLB chunk header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing GLB chunk: %w", err)
	}
	return nil
}

// Load parses a GLB document. New streams are appended after its binary chunk.
func Load(r io.Reader) (*Document, error) {
	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != glbVersion {
		return nil, errInvalidGLBVersion
	}

	var jsonData, binData []byte
	for {
		var chunkHeader glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, fmt.Errorf("failed to read chunk data: %w", err)
		}

		switch chunkHeader.ChunkType {
		case glbChunkJSON:
			jsonData = chunkData
		case glbChunkBIN:
			binData = chunkData
		}
	}

	if jsonData == nil {
		return nil, errMissingJSONChunk
	}

	var doc Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errInvalidVersion
	}
	if len(doc.Scenes) == 0 {
		doc.Scenes = []Scene{{}}
		doc.Scene = Ptr(0)
	}

	doc.base = binData
	return &doc, nil
}
