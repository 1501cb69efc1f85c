package vm

import (
	"encoding/binary"
	"fmt"
)

const headerVersion = 1

// ConstantType tags a constant-pool record. Values match
// original_source/include/otter/object.h's default object type enum;
// only Integer has a decodable payload today, matching
// original_source/src/bytecode.c, which fails to load an image
// carrying any other constant type.
type ConstantType int32

const (
	ConstantNil ConstantType = iota
	ConstantBool
	ConstantInteger
	ConstantFloat
	ConstantString
)

// Constant is one decoded constant-pool entry. Only Type ==
// ConstantInteger is populated with a meaningful Int; every other tag
// is rejected by Decode.
type Constant struct {
	Type ConstantType
	Int  int32
}

// Bytecode is a decoded image: version-checked header, constant pool,
// and the raw instruction stream.
type Bytecode struct {
	Version      int32
	Constants    []Constant
	Instructions []byte
}

// Decode parses the image format pinned by spec.md §6: a little-endian
// 4-byte version (must equal 1) and 4-byte constant count, that many
// constant records (4-byte type tag, then a type-dependent payload),
// and the remaining bytes as the flat instruction stream.
func Decode(src []byte) (*Bytecode, error) {
	if len(src) < 8 {
		return nil, fmt.Errorf("vm: image too short for header: %d bytes", len(src))
	}

	version := int32(binary.LittleEndian.Uint32(src[0:4]))
	if version != headerVersion {
		return nil, fmt.Errorf("vm: unsupported bytecode version %d", version)
	}
	count := int32(binary.LittleEndian.Uint32(src[4:8]))
	if count < 0 {
		return nil, fmt.Errorf("vm: negative constant count %d", count)
	}

	offset := 8
	constants := make([]Constant, 0, count)
	for i := int32(0); i < count; i++ {
		if offset+4 > len(src) {
			return nil, fmt.Errorf("vm: truncated constant type tag at constant %d", i)
		}
		tag := ConstantType(int32(binary.LittleEndian.Uint32(src[offset : offset+4])))
		offset += 4

		switch tag {
		case ConstantInteger:
			if offset+4 > len(src) {
				return nil, fmt.Errorf("vm: truncated integer payload at constant %d", i)
			}
			v := int32(binary.LittleEndian.Uint32(src[offset : offset+4]))
			offset += 4
			constants = append(constants, Constant{Type: ConstantInteger, Int: v})
		default:
			return nil, fmt.Errorf("vm: unsupported constant type tag %d at constant %d", tag, i)
		}
	}

	return &Bytecode{
		Version:      version,
		Constants:    constants,
		Instructions: src[offset:],
	}, nil
}

// Encode is Decode's inverse, used by tests and by anything that
// synthesises an image in-process rather than reading one from disk.
func Encode(constants []Constant, instructions []byte) []byte {
	buf := make([]byte, 8, 8+len(constants)*8+len(instructions))
	binary.LittleEndian.PutUint32(buf[0:4], headerVersion)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(constants)))

	for _, c := range constants {
		tag := make([]byte, 4)
		binary.LittleEndian.PutUint32(tag, uint32(c.Type))
		buf = append(buf, tag...)
		if c.Type == ConstantInteger {
			payload := make([]byte, 4)
			binary.LittleEndian.PutUint32(payload, uint32(c.Int))
			buf = append(buf, payload...)
		}
	}

	buf = append(buf, instructions...)
	return buf
}

// readJumpOffset reads the big-endian 2-byte operand spec.md §6 gives
// JUMP/JUMP_IF_FALSE/LOOP, distinct from every other opcode's
// little-endian-irrelevant single byte operand (single bytes have no
// endianness).
func readJumpOffset(instr []byte, ip int) uint16 {
	return binary.BigEndian.Uint16(instr[ip : ip+2])
}
