package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lumenjs/engine/internal/token"
	"github.com/lumenjs/engine/internal/value"
)

// Serialized-format constants (spec.md §6.3). The format is explicitly not
// stable across versions; Magic+Version exist so a loader can refuse a
// mismatched blob rather than decode garbage.
const (
	Magic          uint32 = 0x4a53564d // "JSVM"
	CurrentVersion uint16 = 1
)

// Serialize encodes fn per spec.md §6.3: header, upvalue descriptor table,
// constant pool, instruction bytes, debug-span table, exception table.
// Endianness is host-native in spec, but this implementation always uses
// little-endian so a blob decodes the same on every host; that is a
// deliberate narrowing of the spec's "implementation-defined" clause.
func Serialize(fn *CompiledFunction) ([]byte, error) {
	var buf bytes.Buffer

	writeU32(&buf, Magic)
	writeU16(&buf, CurrentVersion)
	writeU16(&buf, uint16(fn.LocalCount))
	writeU16(&buf, uint16(fn.ParamCount))
	writeBool(&buf, fn.RestParam)
	writeBool(&buf, fn.IsGenerator)
	writeBool(&buf, fn.IsAsync)
	writeU16(&buf, uint16(len(fn.Upvalues)))
	for _, uv := range fn.Upvalues {
		writeBool(&buf, uv.IsExternal)
		writeU16(&buf, uv.Index)
	}

	writeU16(&buf, uint16(len(fn.Constants)))
	for _, c := range fn.Constants {
		buf.WriteByte(byte(c.Kind))
		switch c.Kind {
		case ConstNumber:
			writeF64(&buf, c.Number)
		case ConstBoolean:
			writeBool(&buf, c.Boolean)
		case ConstSymbol:
			writeU32(&buf, uint32(c.Symbol))
		case ConstFunction:
			inner, err := Serialize(c.Function)
			if err != nil {
				return nil, err
			}
			writeU32(&buf, uint32(len(inner)))
			buf.Write(inner)
		case ConstRegex:
			writeU32(&buf, uint32(c.Regex.Source))
			writeLenPrefixedString(&buf, c.Regex.Flags)
		default:
			return nil, fmt.Errorf("bytecode: unknown constant kind %d", c.Kind)
		}
	}

	writeU32(&buf, uint32(len(fn.Code)))
	buf.Write(fn.Code)

	writeU32(&buf, uint32(len(fn.DebugSpans)))
	for _, s := range fn.DebugSpans {
		writeU32(&buf, uint32(s.IPOffset))
		writeU32(&buf, uint32(s.SpanIdx))
	}

	writeU32(&buf, uint32(len(fn.Spans)))
	for _, sp := range fn.Spans {
		writeSpan(&buf, sp)
	}

	writeU32(&buf, uint32(len(fn.Exceptions)))
	for _, ex := range fn.Exceptions {
		writeU32(&buf, uint32(ex.TryIP))
		writeBool(&buf, ex.HasCatch)
		writeU32(&buf, uint32(ex.CatchIP))
		writeBool(&buf, ex.HasFinally)
		writeU32(&buf, uint32(ex.FinallyIP))
		writeU32(&buf, uint32(ex.EndIP))
	}

	writeLenPrefixedString(&buf, fn.Name)

	return buf.Bytes(), nil
}

// Deserialize decodes a blob produced by Serialize. It refuses blobs with a
// mismatched Magic or a Version newer than CurrentVersion.
func Deserialize(data []byte) (*CompiledFunction, error) {
	r := bytes.NewReader(data)

	magic, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("bytecode: bad magic %#x", magic)
	}
	version, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if version > CurrentVersion {
		return nil, fmt.Errorf("bytecode: unsupported version %d", version)
	}

	fn := &CompiledFunction{}
	localCount, _ := readU16(r)
	fn.LocalCount = int(localCount)
	paramCount, _ := readU16(r)
	fn.ParamCount = int(paramCount)
	fn.RestParam, _ = readBool(r)
	fn.IsGenerator, _ = readBool(r)
	fn.IsAsync, _ = readBool(r)

	upvalCount, _ := readU16(r)
	fn.Upvalues = make([]UpvalueDesc, upvalCount)
	for i := range fn.Upvalues {
		isExt, _ := readBool(r)
		idx, _ := readU16(r)
		fn.Upvalues[i] = UpvalueDesc{IsExternal: isExt, Index: idx}
	}

	constCount, _ := readU16(r)
	fn.Constants = make([]Constant, constCount)
	for i := range fn.Constants {
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		kind := ConstKind(kindByte)
		c := Constant{Kind: kind}
		switch kind {
		case ConstNumber:
			c.Number, _ = readF64(r)
		case ConstBoolean:
			c.Boolean, _ = readBool(r)
		case ConstSymbol:
			id, _ := readU32(r)
			c.Symbol = value.InternedStringId(id)
		case ConstFunction:
			length, _ := readU32(r)
			inner := make([]byte, length)
			if _, err := r.Read(inner); err != nil {
				return nil, err
			}
			innerFn, err := Deserialize(inner)
			if err != nil {
				return nil, err
			}
			c.Function = innerFn
		case ConstRegex:
			id, _ := readU32(r)
			flags, err := readLenPrefixedString(r)
			if err != nil {
				return nil, err
			}
			c.Regex = Regex{Source: value.InternedStringId(id), Flags: flags}
		default:
			return nil, fmt.Errorf("bytecode: unknown constant kind %d during decode", kind)
		}
		fn.Constants[i] = c
	}

	codeLen, _ := readU32(r)
	fn.Code = make([]byte, codeLen)
	if _, err := r.Read(fn.Code); err != nil {
		return nil, err
	}

	spanCount, _ := readU32(r)
	fn.DebugSpans = make([]SpanEntry, spanCount)
	for i := range fn.DebugSpans {
		off, _ := readU32(r)
		idx, _ := readU32(r)
		fn.DebugSpans[i] = SpanEntry{IPOffset: int(off), SpanIdx: int(idx)}
	}

	spanTableCount, _ := readU32(r)
	fn.Spans = make([]token.Span, spanTableCount)
	for i := range fn.Spans {
		sp, err := readSpan(r)
		if err != nil {
			return nil, err
		}
		fn.Spans[i] = sp
	}

	excCount, _ := readU32(r)
	fn.Exceptions = make([]ExceptionRegion, excCount)
	for i := range fn.Exceptions {
		tryIP, _ := readU32(r)
		hasCatch, _ := readBool(r)
		catchIP, _ := readU32(r)
		hasFinally, _ := readBool(r)
		finallyIP, _ := readU32(r)
		endIP, _ := readU32(r)
		fn.Exceptions[i] = ExceptionRegion{
			TryIP: int(tryIP), HasCatch: hasCatch, CatchIP: int(catchIP),
			HasFinally: hasFinally, FinallyIP: int(finallyIP), EndIP: int(endIP),
		}
	}

	fn.Name, err = readLenPrefixedString(r)
	if err != nil {
		return nil, err
	}

	return fn, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeF64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeLenPrefixedString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readF64(r *bytes.Reader) (float64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(b[:])
	return math.Float64frombits(bits), nil
}

func readBool(r *bytes.Reader) (bool, error) {
	v, err := r.ReadByte()
	return v != 0, err
}

func writePosition(buf *bytes.Buffer, p token.Position) {
	writeU32(buf, uint32(p.Line))
	writeU32(buf, uint32(p.Column))
	writeU32(buf, uint32(p.Offset))
}

func readPosition(r *bytes.Reader) (token.Position, error) {
	line, err := readU32(r)
	if err != nil {
		return token.Position{}, err
	}
	col, err := readU32(r)
	if err != nil {
		return token.Position{}, err
	}
	off, err := readU32(r)
	if err != nil {
		return token.Position{}, err
	}
	return token.Position{Line: int(line), Column: int(col), Offset: int(off)}, nil
}

func writeSpan(buf *bytes.Buffer, s token.Span) {
	writePosition(buf, s.Start)
	writePosition(buf, s.End)
}

func readSpan(r *bytes.Reader) (token.Span, error) {
	start, err := readPosition(r)
	if err != nil {
		return token.Span{}, err
	}
	end, err := readPosition(r)
	if err != nil {
		return token.Span{}, err
	}
	return token.Span{Start: start, End: end}, nil
}

func readLenPrefixedString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return "", err
		}
	}
	return string(b), nil
}
