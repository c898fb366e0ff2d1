// Package kvstore implements the SSTable-style key/value blob used as the
// FastSnapshot persistence substrate: blocks of prefix-compressed
// key/value chunks, each optionally LZ4-frame compressed and trailed with
// an xxHash32 checksum, indexed by a block-meta section keyed on each
// block's first/last key.
package kvstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sort"

	"github.com/loro-dev/loro/codec"
	"github.com/pierrec/lz4/v4"
)

// ErrCorrupted is returned when a blob fails a structural or checksum check.
var ErrCorrupted = errors.New("kvstore: corrupted blob")

// ErrNotFound is returned by Get when the key isn't present.
var ErrNotFound = errors.New("kvstore: key not found")

const (
	compressionNone = 0
	compressionLZ4  = 1

	// blockTargetSize is the soft cap Writer flushes a block at: large
	// enough for LZ4 to earn its keep, bounded so a random Get only has to
	// decompress one block's worth of data.
	blockTargetSize = 32 * 1024
)

type entry struct {
	key   []byte
	value []byte
}

// Writer accumulates sorted key/value pairs into prefix-compressed,
// LZ4-compressed blocks plus a block-meta index.
type Writer struct {
	pending    []entry
	pendingLen int

	blocks []byte
	index  []blockMeta

	lastKey []byte
}

type blockMeta struct {
	firstKey, lastKey []byte
	offset, length    uint64
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Put appends a key/value pair. Keys must be supplied in strictly
// increasing order (SSTable convention); Put returns an error otherwise.
func (w *Writer) Put(key, value []byte) error {
	if w.lastKey != nil && bytes.Compare(key, w.lastKey) <= 0 {
		return errors.New("kvstore: keys must be strictly increasing")
	}
	w.lastKey = append([]byte(nil), key...)
	w.pending = append(w.pending, entry{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	w.pendingLen += len(key) + len(value)
	if w.pendingLen >= blockTargetSize {
		w.flush()
	}
	return nil
}

func (w *Writer) flush() {
	if len(w.pending) == 0 {
		return
	}
	payload := encodeBlockPayload(w.pending)
	frame, compression := compressBlock(payload)

	trailer := codec.XXHash32(append([]byte{byte(compression)}, frame...))
	var trailerBytes [4]byte
	binary.LittleEndian.PutUint32(trailerBytes[:], trailer)

	offset := uint64(len(w.blocks))
	w.blocks = append(w.blocks, byte(compression))
	w.blocks = append(w.blocks, frame...)
	w.blocks = append(w.blocks, trailerBytes[:]...)

	w.index = append(w.index, blockMeta{
		firstKey: w.pending[0].key,
		lastKey:  w.pending[len(w.pending)-1].key,
		offset:   offset,
		length:   uint64(1 + len(frame) + 4),
	})

	w.pending = nil
	w.pendingLen = 0
}

// Finish flushes any buffered entries and returns the complete blob: block
// bytes, the block-meta index, and a fixed 16-byte footer locating it.
func (w *Writer) Finish() []byte {
	w.flush()

	var meta []byte
	meta = codec.PutUvarint(meta, uint64(len(w.index)))
	for _, m := range w.index {
		meta = codec.PutBytes(meta, m.firstKey)
		meta = codec.PutBytes(meta, m.lastKey)
		meta = codec.PutUvarint(meta, m.offset)
		meta = codec.PutUvarint(meta, m.length)
	}

	out := append([]byte(nil), w.blocks...)
	metaOffset := uint64(len(out))
	out = append(out, meta...)

	var footer [16]byte
	binary.LittleEndian.PutUint64(footer[0:8], metaOffset)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(len(meta)))
	out = append(out, footer[:]...)
	return out
}

func encodeBlockPayload(entries []entry) []byte {
	var buf []byte
	prev := []byte{}
	for _, e := range entries {
		cpl := commonPrefixLen(prev, e.key)
		if cpl > 255 {
			cpl = 255
		}
		suffix := e.key[cpl:]
		buf = append(buf, byte(cpl))
		var suffixLen [2]byte
		binary.LittleEndian.PutUint16(suffixLen[:], uint16(len(suffix)))
		buf = append(buf, suffixLen[:]...)
		buf = append(buf, suffix...)
		buf = codec.PutBytes(buf, e.value)
		prev = e.key
	}
	return buf
}

func decodeBlockPayload(buf []byte) ([]entry, error) {
	var out []entry
	prev := []byte{}
	off := 0
	for off < len(buf) {
		if off+3 > len(buf) {
			return nil, ErrCorrupted
		}
		cpl := int(buf[off])
		off++
		suffixLen := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		if off+suffixLen > len(buf) || cpl > len(prev) {
			return nil, ErrCorrupted
		}
		suffix := buf[off : off+suffixLen]
		off += suffixLen
		key := append(append([]byte(nil), prev[:cpl]...), suffix...)

		value, w, ok := codec.GetBytes(buf[off:])
		if !ok {
			return nil, ErrCorrupted
		}
		off += w

		out = append(out, entry{key: key, value: value})
		prev = key
	}
	return out, nil
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func compressBlock(payload []byte) ([]byte, int) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return payload, compressionNone
	}
	if err := zw.Close(); err != nil {
		return payload, compressionNone
	}
	if buf.Len() >= len(payload) {
		return payload, compressionNone
	}
	return buf.Bytes(), compressionLZ4
}

func decompressBlock(frame []byte, compression int) ([]byte, error) {
	switch compression {
	case compressionNone:
		return frame, nil
	case compressionLZ4:
		zr := lz4.NewReader(bytes.NewReader(frame))
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, ErrCorrupted
		}
		return out, nil
	default:
		return nil, ErrCorrupted
	}
}

// Reader provides point lookups and full iteration over a blob written by
// Writer.
type Reader struct {
	blob  []byte
	index []blockMeta
}

// Open parses blob's footer and block-meta index without decompressing any
// block.
func Open(blob []byte) (*Reader, error) {
	if len(blob) < 16 {
		return nil, ErrCorrupted
	}
	footer := blob[len(blob)-16:]
	metaOffset := binary.LittleEndian.Uint64(footer[0:8])
	metaLen := binary.LittleEndian.Uint64(footer[8:16])
	if metaOffset+metaLen > uint64(len(blob)-16) {
		return nil, ErrCorrupted
	}
	meta := blob[metaOffset : metaOffset+metaLen]

	n, w := codec.Uvarint(meta)
	if w == 0 {
		return nil, ErrCorrupted
	}
	off := w
	index := make([]blockMeta, n)
	for i := range index {
		firstKey, w, ok := codec.GetBytes(meta[off:])
		if !ok {
			return nil, ErrCorrupted
		}
		off += w
		lastKey, w, ok := codec.GetBytes(meta[off:])
		if !ok {
			return nil, ErrCorrupted
		}
		off += w
		offset, w := codec.Uvarint(meta[off:])
		if w == 0 {
			return nil, ErrCorrupted
		}
		off += w
		length, w := codec.Uvarint(meta[off:])
		if w == 0 {
			return nil, ErrCorrupted
		}
		off += w
		index[i] = blockMeta{firstKey: firstKey, lastKey: lastKey, offset: offset, length: length}
	}

	return &Reader{blob: blob[:metaOffset], index: index}, nil
}

func (r *Reader) readBlock(m blockMeta) ([]entry, error) {
	raw := r.blob[m.offset : m.offset+m.length]
	compression := int(raw[0])
	frame := raw[1 : len(raw)-4]
	wantSum := binary.LittleEndian.Uint32(raw[len(raw)-4:])
	if codec.XXHash32(raw[:len(raw)-4]) != wantSum {
		return nil, ErrCorrupted
	}
	payload, err := decompressBlock(frame, compression)
	if err != nil {
		return nil, err
	}
	return decodeBlockPayload(payload)
}

// Get returns the value stored under key.
func (r *Reader) Get(key []byte) ([]byte, error) {
	i := sort.Search(len(r.index), func(i int) bool {
		return bytes.Compare(r.index[i].lastKey, key) >= 0
	})
	if i == len(r.index) || bytes.Compare(r.index[i].firstKey, key) > 0 {
		return nil, ErrNotFound
	}
	entries, err := r.readBlock(r.index[i])
	if err != nil {
		return nil, err
	}
	j := sort.Search(len(entries), func(j int) bool {
		return bytes.Compare(entries[j].key, key) >= 0
	})
	if j == len(entries) || !bytes.Equal(entries[j].key, key) {
		return nil, ErrNotFound
	}
	return entries[j].value, nil
}

// Each iterates every key/value pair in ascending key order, stopping early
// if fn returns false.
func (r *Reader) Each(fn func(key, value []byte) bool) error {
	for _, m := range r.index {
		entries, err := r.readBlock(m)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !fn(e.key, e.value) {
				return nil
			}
		}
	}
	return nil
}
