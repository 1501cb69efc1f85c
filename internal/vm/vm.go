package vm

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

const stackSize = 1024

// ValueKind tags a VM runtime value. The interpreter has no garbage
// collector of its own: Go's heap and GC retire the source program's
// intrusive allocated-object linked list (spec.md §9), so Value is a
// plain tagged struct rather than a node in a free list.
type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
)

// Value is one VM stack/global/local slot.
type Value struct {
	Kind ValueKind
	Bool bool
	Int  int32
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	default:
		return "nil"
	}
}

func falsey(v Value) bool {
	if v.Kind == KindNil {
		return true
	}
	if v.Kind == KindBool {
		return !v.Bool
	}
	return false
}

// VM runs one decoded Bytecode image to completion or runtime error.
// Grounded on original_source/src/vm.c's otter_vm: a fixed-size value
// stack, a sparse global slot table, and a straight-line fetch/decode
// loop over the instruction stream.
type VM struct {
	Log *logrus.Logger

	bytecode *Bytecode
	stack    []Value
	globals  map[byte]Value
}

// New constructs a VM over an already-decoded image.
func New(bc *Bytecode) *VM {
	return &VM{
		bytecode: bc,
		stack:    make([]Value, 0, stackSize),
		globals:  make(map[byte]Value),
	}
}

func (m *VM) push(v Value) { m.stack = append(m.stack, v) }

func (m *VM) pop() Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *VM) peek(distance int) Value {
	return m.stack[len(m.stack)-1-distance]
}

// Run executes the instruction stream until OP_HALT or a runtime
// error. Every arithmetic/comparison opcode requires both operands to
// be KindInt, same as the source's type-tag check in vm_add et al.;
// a type mismatch is a runtime error here rather than the source's
// silent NULL-return-and-abort, since Go has no equivalent "just stop
// the interpreter loop" convention to imitate faithfully.
func (m *VM) Run() error {
	instr := m.bytecode.Instructions
	ip := 0

	for ip < len(instr) {
		op := Opcode(instr[ip])
		ip++

		switch op {
		case OpConstant:
			idx := instr[ip]
			ip++
			if int(idx) >= len(m.bytecode.Constants) {
				return fmt.Errorf("vm: constant index %d out of range", idx)
			}
			c := m.bytecode.Constants[idx]
			m.push(Value{Kind: KindInt, Int: c.Int})

		case OpNil:
			m.push(Value{Kind: KindNil})
		case OpTrue:
			m.push(Value{Kind: KindBool, Bool: true})
		case OpFalse:
			m.push(Value{Kind: KindBool, Bool: false})
		case OpPop:
			m.pop()
		case OpDup:
			m.push(m.peek(0))
		case OpSwap:
			top := m.pop()
			second := m.pop()
			m.push(top)
			m.push(second)

		case OpAdd, OpSubtract, OpMultiply, OpDivide:
			rhs := m.pop()
			lhs := m.pop()
			result, err := binaryArith(op, lhs, rhs)
			if err != nil {
				return err
			}
			m.push(result)

		case OpModulo:
			// Left as a no-op, matching original_source/src/vm.c's
			// op_modulo, which never reaches vm_modulo.

		case OpNegate:
			v := m.pop()
			if v.Kind != KindInt {
				return fmt.Errorf("vm: cannot negate a non-integer value")
			}
			m.push(Value{Kind: KindInt, Int: -v.Int})

		case OpEqual:
			rhs, lhs := m.pop(), m.pop()
			m.push(Value{Kind: KindBool, Bool: valuesEqual(lhs, rhs)})
		case OpNotEqual:
			rhs, lhs := m.pop(), m.pop()
			m.push(Value{Kind: KindBool, Bool: !valuesEqual(lhs, rhs)})

		case OpLess:
			rhs, lhs := m.pop(), m.pop()
			v, err := compare(lhs, rhs, func(a, b int32) bool { return a < b })
			if err != nil {
				return err
			}
			m.push(v)
		case OpLessEqual:
			rhs, lhs := m.pop(), m.pop()
			v, err := compare(lhs, rhs, func(a, b int32) bool { return a <= b })
			if err != nil {
				return err
			}
			m.push(v)
		case OpGreater:
			rhs, lhs := m.pop(), m.pop()
			v, err := compare(lhs, rhs, func(a, b int32) bool { return a > b })
			if err != nil {
				return err
			}
			m.push(v)
		case OpGreaterEqual:
			rhs, lhs := m.pop(), m.pop()
			v, err := compare(lhs, rhs, func(a, b int32) bool { return a >= b })
			if err != nil {
				return err
			}
			m.push(v)

		case OpNot:
			v := m.pop()
			m.push(Value{Kind: KindBool, Bool: falsey(v)})

		case OpAnd, OpOr:
			// Left as no-ops, matching original_source/src/vm.c.

		case OpGetLocal:
			slot := instr[ip]
			ip++
			if int(slot) >= len(m.stack) {
				return fmt.Errorf("vm: local slot %d out of range", slot)
			}
			m.push(m.stack[slot])

		case OpSetLocal:
			slot := instr[ip]
			ip++
			if int(slot) >= len(m.stack) {
				return fmt.Errorf("vm: local slot %d out of range", slot)
			}
			m.stack[slot] = m.peek(0)

		case OpGetGlobal:
			slot := instr[ip]
			ip++
			v, ok := m.globals[slot]
			if !ok {
				return fmt.Errorf("vm: undefined global variable at slot %d", slot)
			}
			m.push(v)

		case OpSetGlobal:
			slot := instr[ip]
			ip++
			m.globals[slot] = m.peek(0)

		case OpDefineGlobal:
			slot := instr[ip]
			ip++
			m.globals[slot] = m.pop()

		case OpJump:
			offset := readJumpOffset(instr, ip)
			ip += 2
			ip += int(offset)

		case OpJumpIfFalse:
			offset := readJumpOffset(instr, ip)
			ip += 2
			if falsey(m.peek(0)) {
				ip += int(offset)
			}

		case OpLoop:
			offset := readJumpOffset(instr, ip)
			ip += 2
			ip -= int(offset)

		case OpCall, OpReturn:
			// Left as no-ops, matching original_source/src/vm.c: function
			// calls are not implemented in the source this boundary pins.

		case OpPrint:
			v := m.peek(0)
			if m.Log != nil {
				m.Log.Info(v.String())
			}

		case OpHalt:
			return nil

		default:
			return fmt.Errorf("vm: unknown opcode %d at instruction %d", op, ip-1)
		}
	}
	return nil
}

func binaryArith(op Opcode, lhs, rhs Value) (Value, error) {
	if lhs.Kind != KindInt || rhs.Kind != KindInt {
		return Value{}, fmt.Errorf("vm: %s requires two integer operands", op)
	}
	switch op {
	case OpAdd:
		return Value{Kind: KindInt, Int: lhs.Int + rhs.Int}, nil
	case OpSubtract:
		return Value{Kind: KindInt, Int: lhs.Int - rhs.Int}, nil
	case OpMultiply:
		return Value{Kind: KindInt, Int: lhs.Int * rhs.Int}, nil
	case OpDivide:
		if rhs.Int == 0 {
			return Value{}, fmt.Errorf("vm: division by zero")
		}
		return Value{Kind: KindInt, Int: lhs.Int / rhs.Int}, nil
	default:
		return Value{}, fmt.Errorf("vm: %s is not a binary arithmetic opcode", op)
	}
}

func compare(lhs, rhs Value, cmp func(a, b int32) bool) (Value, error) {
	if lhs.Kind != KindInt || rhs.Kind != KindInt {
		return Value{}, fmt.Errorf("vm: comparison requires two integer operands")
	}
	return Value{Kind: KindBool, Bool: cmp(lhs.Int, rhs.Int)}, nil
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindBool:
		return a.Bool == b.Bool
	default:
		return true // both Nil
	}
}
