// Package arctest builds bank archives in memory for tests.
package arctest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jchantrell/arcbank/internal/arc"
)

type record struct {
	typ   arc.Type
	name  string
	index uint32
	data  []byte
}

// Builder accumulates records and lays them out as a PC bank.
type Builder struct {
	Header  arc.Header
	records []record
}

// New returns a builder with a valid PC header.
func New() *Builder {
	b := &Builder{}
	copy(b.Header.ID[:], "ARCC")
	return b
}

// Add appends a record whose payload is the little-endian encoding of
// fields. An empty name leaves the entry unnamed. The entry's type index
// counts the earlier records of the same type. It returns the entry index.
func (b *Builder) Add(t arc.Type, name string, fields ...any) int {
	var index uint32
	for _, rec := range b.records {
		if rec.typ == t {
			index++
		}
	}
	return b.AddIndexed(t, name, index, fields...)
}

// AddIndexed is Add with an explicit type index.
func (b *Builder) AddIndexed(t arc.Type, name string, index uint32, fields ...any) int {
	var buf bytes.Buffer
	for _, f := range fields {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			panic(fmt.Sprintf("arctest: encoding %T: %v", f, err))
		}
	}
	b.records = append(b.records, record{typ: t, name: name, index: index, data: buf.Bytes()})
	return len(b.records) - 1
}

// Bytes returns the encoded archive. Named records get a trailing
// EntryNames entry.
func (b *Builder) Bytes() []byte {
	records := b.records

	var names bytes.Buffer
	offsets := make([]int32, len(records))
	for i, rec := range records {
		if rec.name == "" {
			offsets[i] = -1
			continue
		}
		offsets[i] = int32(names.Len())
		names.WriteString(rec.name)
		names.WriteByte(0)
	}
	if names.Len() > 0 {
		records = append(records, record{typ: arc.TypeEntryNames, data: names.Bytes()})
		offsets = append(offsets, -1)
	}

	hdr := b.Header
	hdr.NumEntriesAndVersion = hdr.NumEntriesAndVersion&0xff000000 | uint32(len(records))
	if hdr.NumEntriesAndVersion>>24 == 0 {
		hdr.NumEntriesAndVersion |= arc.SupportedVersion << 24
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(make([]byte, 0x80-out.Len()))

	var body bytes.Buffer
	for i, rec := range records {
		size := len(rec.data)
		e := arc.Entry{
			Index:      rec.index,
			Offset:     uint32(body.Len()),
			NameOffset: offsets[i],
			Type:       rec.typ,
			RawSize:    [3]byte{byte(size >> 16), byte(size >> 8), byte(size)},
		}
		binary.Write(&out, binary.LittleEndian, e)
		body.Write(rec.data)
	}

	out.Write(body.Bytes())
	return out.Bytes()
}

// SetVersion overrides the version byte written by Bytes.
func (b *Builder) SetVersion(v uint8) {
	b.Header.NumEntriesAndVersion = uint32(v) << 24
}
