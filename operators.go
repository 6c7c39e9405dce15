package main

import "math"

//
// Operator dispatch.  Operands arrive as decoded stack values; the
// result goes straight back on the value stack.  Numeric widening:
// bytes widen to 32-bit integers, any 64-bit operand widens the
// operation to 64 bits, any float makes it a float operation.
// 32-bit add, subtract and multiply are done in 64 bits and only
// narrowed back when the result fits, so overflow quietly widens
// rather than wrapping
//

func applyBinaryOp(op byte) {

	rhs := popValue()
	lhs := popValue()

	switch {
	case op == '?' || op == '!' || op == ']' || op == '|':
		dyadicIndirect(op, lhs, rhs)

	case lhs.kind == kindArray || rhs.kind == kindArray:
		arrayBinaryOp(op, lhs, rhs)

	case lhs.kind == kindString || rhs.kind == kindString:
		stringBinaryOp(op, lhs, rhs)

	default:
		numericBinaryOp(op, lhs, rhs)
	}
}

//
// base?offset and friends: pointer plus byte offset, loading the
// width the operator names
//

func dyadicIndirect(op byte, lhs, rhs value) {

	if !lhs.isNumeric() || !rhs.isNumeric() {
		raise(errTypeNum)
	}

	addr := lhs.asInt64() + rhs.asInt64()

	if addr < 0 || addr >= int64(len(g.ws.mem)) {
		raise(errRange)
	}

	loadIndirect(indirectKind(op), int(addr))
}

func numericBinaryOp(op byte, lhs, rhs value) {

	if !lhs.isNumeric() || !rhs.isNumeric() {
		raise(errTypeNum)
	}

	if lhs.kind == kindFloat64 || rhs.kind == kindFloat64 {
		floatBinaryOp(op, lhs.asFloat(), rhs.asFloat())
		return
	}

	wide := lhs.kind == kindInt64 || rhs.kind == kindInt64

	switch op {

	case '+':
		pushIntResult(lhs.i+rhs.i, wide)

	case '-':
		pushIntResult(lhs.i-rhs.i, wide)

	case '*':
		mulIntegers(lhs.i, rhs.i, wide)

	case '/':
		if rhs.i == 0 {
			raise(errDivZero)
		}
		pushFloat(float64(lhs.i) / float64(rhs.i))

	case tokDIV:
		if rhs.i == 0 {
			raise(errDivZero)
		}
		pushIntResult(lhs.i/rhs.i, wide)

	case tokMOD:
		if rhs.i == 0 {
			raise(errDivZero)
		}
		pushIntResult(lhs.i%rhs.i, wide)

	case '^':
		intPower(lhs.i, rhs.i)

	case tokLsl, tokAsr, tokLsr:
		shiftOp(op, lhs.i, rhs.i, wide || g.shift64)

	case '=', '<', '>', tokGE, tokLE, tokNE:
		pushBool(compareInts(op, lhs.i, rhs.i))

	case tokAND:
		pushIntResult(lhs.i&rhs.i, wide)

	case tokOR:
		pushIntResult(lhs.i|rhs.i, wide)

	case tokEOR:
		pushIntResult(lhs.i^rhs.i, wide)

	default:
		raise(errSyntax)
	}
}

//
// The integer result narrows to 32 bits when neither operand was
// 64-bit and the value fits
//

func pushIntResult(val int64, wide bool) {

	if !wide && val >= math.MinInt32 && val <= math.MaxInt32 {
		pushInt32(int32(val))
		return
	}

	pushInt64(val)
}

func mulIntegers(a, b int64, wide bool) {

	prod := a * b

	if a != 0 && (prod/a != b || a == -1 && b == math.MinInt64) {
		// 64-bit overflow falls back to float arithmetic
		pushFloat(float64(a) * float64(b))
		return
	}

	pushIntResult(prod, wide)
}

func floatBinaryOp(op byte, a, b float64) {

	switch op {

	case '+':
		pushFloatChecked(a + b)

	case '-':
		pushFloatChecked(a - b)

	case '*':
		pushFloatChecked(a * b)

	case '/':
		if b == 0 {
			raise(errDivZero)
		}
		pushFloatChecked(a / b)

	case tokDIV:
		rhs := floatToInt64(b)
		if rhs == 0 {
			raise(errDivZero)
		}
		pushIntResult(floatToInt64(a)/rhs, true)

	case tokMOD:
		rhs := floatToInt64(b)
		if rhs == 0 {
			raise(errDivZero)
		}
		pushIntResult(floatToInt64(a)%rhs, true)

	case '^':
		val := math.Pow(a, b)
		if math.IsNaN(val) {
			raise(errArithmetic)
		}
		pushFloatChecked(val)

	case tokLsl, tokAsr, tokLsr:
		shiftOp(op, floatToInt64(a), floatToInt64(b), true)

	case '=', '<', '>', tokGE, tokLE, tokNE:
		pushBool(compareFloats(op, a, b))

	case tokAND:
		pushIntResult(floatToInt64(a)&floatToInt64(b), true)

	case tokOR:
		pushIntResult(floatToInt64(a)|floatToInt64(b), true)

	case tokEOR:
		pushIntResult(floatToInt64(a)^floatToInt64(b), true)

	default:
		raise(errSyntax)
	}
}

func pushFloatChecked(val float64) {

	if math.IsNaN(val) || math.IsInf(val, 0) {
		raise(errArithmetic)
	}

	// subnormals are treated as underflow
	if val != 0 && math.Abs(val) < math.SmallestNonzeroFloat64*float64(1<<52) {
		raise(errArithmetic)
	}

	pushFloat(val)
}

//
// Shifts work on the 32-bit width unless an operand was 64-bit or
// the interpreter was started in 64-bit shift mode.  The count is
// masked to 0..255 before use
//

//
// Integer power stays integral when the exponent is non-negative
// and the exact result fits in 64 bits; otherwise it falls through
// to the float path
//

func intPower(base, exp int64) {

	if exp >= 0 && exp < 64 {
		result := int64(1)
		ok := true

		for i := int64(0); i < exp && ok; i++ {
			next := result * base
			if base != 0 && next/base != result {
				ok = false
				break
			}
			result = next
		}

		if ok {
			check := math.Pow(float64(base), float64(exp))
			if !math.IsInf(check, 0) && (check >= 0) == (result >= 0) {
				pushIntResult(result, true)
				return
			}
		}
	}

	floatBinaryOp('^', float64(base), float64(exp))
}

func shiftOp(op byte, val, count int64, wide bool) {

	if wide {
		n := uint(count) & 255

		switch op {
		case tokLsl:
			pushInt64(val << n)
		case tokAsr:
			pushInt64(val >> n)
		case tokLsr:
			pushInt64(int64(uint64(val) >> n))
		}
		return
	}

	n := uint(count) & 255
	v := int32(val)

	switch op {
	case tokLsl:
		pushInt32(v << n)
	case tokAsr:
		pushInt32(v >> n)
	case tokLsr:
		pushInt32(int32(uint32(v) >> n))
	}
}

func compareInts(op byte, a, b int64) bool {

	switch op {
	case '=':
		return a == b
	case tokNE:
		return a != b
	case '<':
		return a < b
	case '>':
		return a > b
	case tokGE:
		return a >= b
	default:
		return a <= b
	}
}

func compareFloats(op byte, a, b float64) bool {

	switch op {
	case '=':
		return a == b
	case tokNE:
		return a != b
	case '<':
		return a < b
	case '>':
		return a > b
	case tokGE:
		return a >= b
	default:
		return a <= b
	}
}

func pushBool(b bool) {

	if b {
		pushInt32(-1)
	} else {
		pushInt32(0)
	}
}

//
// String operators: concatenation and the comparisons, byte order
//

func stringBinaryOp(op byte, lhs, rhs value) {

	if lhs.kind != kindString || rhs.kind != kindString {
		raise(errTypeNum)
	}

	a := strValue(lhs)
	b := strValue(rhs)

	releaseValue(rhs)
	releaseValue(lhs)

	switch op {

	case '+':
		if len(a)+len(b) > maxStringLen {
			raise(errStringLen)
		}
		pushString(a + b)

	case '=':
		pushBool(a == b)
	case tokNE:
		pushBool(a != b)
	case '<':
		pushBool(a < b)
	case '>':
		pushBool(a > b)
	case tokGE:
		pushBool(a >= b)
	case tokLE:
		pushBool(a <= b)

	default:
		raise(errTypeNum)
	}
}

//
// Unary operators
//

func applyNot() {

	v := popNumeric()

	switch v.kind {
	case kindInt64:
		pushInt64(^v.i)
	case kindFloat64:
		pushInt64(^floatToInt64(v.f))
	default:
		pushInt32(^int32(v.i))
	}
}

func applyNegate() {

	v := popNumeric()

	switch v.kind {
	case kindFloat64:
		pushFloat(-v.f)
	case kindInt64:
		pushIntResult(-v.i, true)
	default:
		pushIntResult(-v.i, false)
	}
}
