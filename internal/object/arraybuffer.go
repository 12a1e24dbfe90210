package object

import (
	"encoding/binary"
	"math"

	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// ArrayBufferObject is the raw fixed-length byte storage backing a typed
// array (spec.md §2 "ArrayBuffer, typed arrays"). It carries no element
// type of its own; TypedArrayObject interprets its bytes.
type ArrayBufferObject struct {
	*OrdObject

	data []byte
}

func NewArrayBufferObject(prototype value.Value, byteLength int) *ArrayBufferObject {
	return &ArrayBufferObject{OrdObject: NewOrdObject(prototype), data: make([]byte, byteLength)}
}

func (b *ArrayBufferObject) ByteLength() int { return len(b.data) }
func (b *ArrayBufferObject) Bytes() []byte   { return b.data }

func (b *ArrayBufferObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagArrayBuffer {
		return b, true
	}
	return b.OrdObject.Extract(tag)
}

var (
	_ Object         = (*ArrayBufferObject)(nil)
	_ heap.Traceable = (*ArrayBufferObject)(nil)
)

// TypedArrayKind selects a typed array's element type and byte width
// (spec.md §2's "typed arrays" entry; SPEC_FULL.md §B, the dash original's
// full family rather than just one representative width).
type TypedArrayKind int

const (
	KindInt8 TypedArrayKind = iota
	KindUint8
	KindUint8Clamped
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindFloat32
	KindFloat64
)

// ElementSize reports a kind's byte width.
func (k TypedArrayKind) ElementSize() int {
	switch k {
	case KindInt8, KindUint8, KindUint8Clamped:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	default:
		return 8
	}
}

func (k TypedArrayKind) String() string {
	switch k {
	case KindInt8:
		return "Int8Array"
	case KindUint8:
		return "Uint8Array"
	case KindUint8Clamped:
		return "Uint8ClampedArray"
	case KindInt16:
		return "Int16Array"
	case KindUint16:
		return "Uint16Array"
	case KindInt32:
		return "Int32Array"
	case KindUint32:
		return "Uint32Array"
	case KindFloat32:
		return "Float32Array"
	default:
		return "Float64Array"
	}
}

// TypedArrayObject is a typed view over an ArrayBufferObject's bytes
// (spec.md §2). Indexed element access reads/writes the buffer directly,
// little-endian, rather than boxing into the ordinary property map, the
// same "array indices bypass the property map" design ArrayObject uses.
type TypedArrayObject struct {
	*OrdObject

	buffer     *ArrayBufferObject
	bufferVal  value.Value
	byteOffset int
	length     int
	kind       TypedArrayKind
}

func NewTypedArrayObject(prototype, bufferVal value.Value, buffer *ArrayBufferObject, byteOffset, length int, kind TypedArrayKind) *TypedArrayObject {
	return &TypedArrayObject{
		OrdObject:  NewOrdObject(prototype),
		buffer:     buffer,
		bufferVal:  bufferVal,
		byteOffset: byteOffset,
		length:     length,
		kind:       kind,
	}
}

func (t *TypedArrayObject) Length() int          { return t.length }
func (t *TypedArrayObject) Kind() TypedArrayKind  { return t.kind }
func (t *TypedArrayObject) Buffer() *ArrayBufferObject { return t.buffer }
func (t *TypedArrayObject) BufferValue() value.Value   { return t.bufferVal }
func (t *TypedArrayObject) ByteOffset() int      { return t.byteOffset }

func (t *TypedArrayObject) byteAt(i int) int { return t.byteOffset + i*t.kind.ElementSize() }

// GetElement reads index i as a Number (spec.md §2); out-of-range reads
// yield Undefined per the typed-array indexing contract (no exception on a
// stale view after its backing detaches — detach itself is unimplemented,
// there is nothing to detach to).
func (t *TypedArrayObject) GetElement(i int) value.Value {
	if i < 0 || i >= t.length {
		return value.Undef()
	}
	b := t.buffer.data[t.byteAt(i):]
	switch t.kind {
	case KindInt8:
		return value.Num(float64(int8(b[0])))
	case KindUint8, KindUint8Clamped:
		return value.Num(float64(b[0]))
	case KindInt16:
		return value.Num(float64(int16(binary.LittleEndian.Uint16(b))))
	case KindUint16:
		return value.Num(float64(binary.LittleEndian.Uint16(b)))
	case KindInt32:
		return value.Num(float64(int32(binary.LittleEndian.Uint32(b))))
	case KindUint32:
		return value.Num(float64(binary.LittleEndian.Uint32(b)))
	case KindFloat32:
		return value.Num(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	default:
		return value.Num(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	}
}

// SetElement writes index i, coercing n the way the element kind demands
// (spec.md §2); out-of-range writes are silently dropped, matching real
// typed-array semantics where an out-of-bounds index assignment is a no-op
// rather than a growth or an error.
func (t *TypedArrayObject) SetElement(i int, n float64) {
	if i < 0 || i >= t.length {
		return
	}
	b := t.buffer.data[t.byteAt(i):]
	switch t.kind {
	case KindInt8:
		b[0] = byte(int8(n))
	case KindUint8:
		b[0] = byte(uint8(int64(n)))
	case KindUint8Clamped:
		switch {
		case math.IsNaN(n) || n < 0:
			b[0] = 0
		case n > 255:
			b[0] = 255
		default:
			b[0] = byte(math.Round(n))
		}
	case KindInt16:
		binary.LittleEndian.PutUint16(b, uint16(int16(n)))
	case KindUint16:
		binary.LittleEndian.PutUint16(b, uint16(int64(n)))
	case KindInt32:
		binary.LittleEndian.PutUint32(b, uint32(int32(n)))
	case KindUint32:
		binary.LittleEndian.PutUint32(b, uint32(int64(n)))
	case KindFloat32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(n)))
	default:
		binary.LittleEndian.PutUint64(b, math.Float64bits(n))
	}
}

func (t *TypedArrayObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagTypedArray {
		return t, true
	}
	return t.OrdObject.Extract(tag)
}

func (t *TypedArrayObject) Trace(mark func(value.ObjectId)) {
	t.OrdObject.Trace(mark)
	traceValue(t.bufferVal, mark)
}

var (
	_ Object         = (*TypedArrayObject)(nil)
	_ heap.Traceable = (*TypedArrayObject)(nil)
)
