package main

import "math"

//
// Expression evaluation.  The run cursor walks the executable half
// of the current line; operands land on the value stack and binary
// operators combine them through the dispatch in operators.go.
// Precedence climbing, with two quirks worth knowing about:
// relational operators do not chain (A < B < C is a syntax error,
// not a comparison of a truth value), and unary minus binds less
// tightly than the power operator, so -2^2 is -4
//

const (
	precOr  = 1 // OR, EOR
	precAnd = 2
	precRel = 3 // = <> < > <= >= and the shifts, non-chaining
	precAdd = 4
	precMul = 5
	precPow = 6
	precInd = 7 // dyadic indirection
)

//
// Cursor primitives.  r.line is the full stored line, so positions
// are line-relative, matching the offsets pass 2 laid down
//

func curTok() byte {

	return r.line[r.cur.pos]
}

func peekTok(ahead int) byte {

	return r.line[r.cur.pos+ahead]
}

func bump(n int) {

	r.cur.pos += n
}

func expectByte(want byte, code int) {

	if curTok() != want {
		raise(code)
	}
	bump(1)
}

func evalExpr() {

	evalLevel(precOr)
}

func evalLevel(minPrec int) {

	evalFactor()

	relSeen := false

	for {
		op := curTok()
		prec, width := binaryOpPrec(op)

		if prec < minPrec {
			return
		}

		if prec == precRel {
			// comparisons and shifts do not chain with each other
			if relSeen {
				raise(errSyntax)
			}
			relSeen = true
		}

		bump(width)
		evalLevel(prec + 1)
		applyBinaryOp(op)
	}
}

//
// Operator recognition.  A zero precedence means "not an operator
// here", which is how every expression finds its natural end
//

func binaryOpPrec(op byte) (int, int) {

	switch op {
	case tokOR, tokEOR:
		return precOr, 1
	case tokAND:
		return precAnd, 1
	case '=', '<', '>':
		return precRel, 1
	case tokGE, tokLE, tokNE:
		return precRel, 1
	case tokLsl, tokAsr, tokLsr:
		return precRel, 1
	case '+', '-':
		return precAdd, 1
	case '*', '/', '.':
		return precMul, 1
	case tokDIV, tokMOD:
		return precMul, 1
	case '^':
		return precPow, 1
	case '?', '!', ']', '|':
		return precInd, 1
	default:
		return 0, 0
	}
}

func evalFactor() {

	checkEscape()

	for {
		tok := curTok()

		switch tok {

		case tokIntZero:
			bump(1)
			pushInt32(0)
			return

		case tokIntOne:
			bump(1)
			pushInt32(1)
			return

		case tokSmallInt:
			pushInt32(int32(peekTok(1)))
			bump(2)
			return

		case tokIntCon:
			pushInt32(operand32(r.line, r.cur.pos+1))
			bump(5)
			return

		case tokInt64Con:
			pushInt64(operand64(r.line, r.cur.pos+1))
			bump(9)
			return

		case tokFloatZero:
			bump(1)
			pushFloat(0)
			return

		case tokFloatOne:
			bump(1)
			pushFloat(1)
			return

		case tokFloatCon:
			pushFloat(loadFloatOperand(r.line, r.cur.pos+1))
			bump(9)
			return

		case tokStringCon:
			pushString(stringConBody(r.line, r.cur.pos+1, false))
			bump(5)
			return

		case tokQStringCon:
			pushString(stringConBody(r.line, r.cur.pos+1, true))
			bump(5)
			return

		case tokXVar:
			resolveVarRef(false)
			continue // re-dispatch on the resolved token

		case tokIntVar:
			pushInt32(g.ws.load32(int(operand32(r.line, r.cur.pos+1))))
			bump(5)
			return

		case tokInt64Var:
			pushInt64(g.ws.load64(int(operand32(r.line, r.cur.pos+1))))
			bump(5)
			return

		case tokByteVar:
			pushUint8(g.ws.mem[operand32(r.line, r.cur.pos+1)])
			bump(5)
			return

		case tokFloatVar:
			pushFloat(g.ws.loadFloat(int(operand32(r.line, r.cur.pos+1))))
			bump(5)
			return

		case tokStringVar:
			length, body := g.ws.loadStrDesc(int(operand32(r.line, r.cur.pos+1)))
			pushStrRef(length, body)
			bump(5)
			return

		case tokStaticVar:
			n := g.ws.load64(staticSlotOff(int(operand32(r.line, r.cur.pos+1))))
			pushIntResult(n, false)
			bump(5)
			return

		case tokArrayVar:
			arrayFactor()
			return

		case tokFuncPfx:
			sub := peekTok(1)
			bump(2)
			callBuiltin(int(sub))
			return

		case tokXFnProc, tokFnProc:
			evalFnCall()
			return

		case tokDIM:
			bump(1)
			dimFunction()
			return

		case tokTRUE:
			bump(1)
			pushInt32(-1)
			return

		case tokFALSE:
			bump(1)
			pushInt32(0)
			return

		case tokNOT:
			bump(1)
			evalLevel(precRel)
			applyNot()
			return

		case '-':
			bump(1)
			evalLevel(precPow)
			applyNegate()
			return

		case '+':
			bump(1)
			continue

		case '(':
			bump(1)
			evalExpr()
			expectByte(')', errMissingRParen)
			return

		case '?', '!', ']', '|', '$':
			bump(1)
			evalFactor()
			loadIndirect(indirectKind(tok), popAddress())
			return

		default:
			raise(errBadExpr)
		}
	}
}

func loadFloatOperand(line []byte, pos int) float64 {

	return math.Float64frombits(uint64(operand64(line, pos)))
}

//
// Typed evaluation wrappers for the statement handlers
//

func popNumeric() value {

	v := popValue()

	if !v.isNumeric() {
		raise(errTypeNum)
	}

	return v
}

func evalNumeric() value {

	evalExpr()

	return popNumeric()
}

func evalInt() int64 {

	return evalNumeric().asInt64()
}

func evalInt32() int32 {

	return evalNumeric().asInt32()
}

func evalFloat() float64 {

	return evalNumeric().asFloat()
}

//
// evalString hands back a Go string and settles the temp body
// before returning
//

func evalString() string {

	evalExpr()

	v := popValue()
	if v.kind != kindString {
		raise(errTypeStr)
	}

	s := strValue(v)
	releaseValue(v)

	return s
}

//
// popAddress: indirection operands are workspace addresses
//

func popAddress() int {

	addr := popNumeric().asInt64()

	if addr < 0 || addr >= int64(len(g.ws.mem)) {
		raise(errRange)
	}

	return int(addr)
}

func indirectKind(op byte) int {

	switch op {
	case '?':
		return kindUint8
	case '!':
		return kindInt32
	case ']':
		return kindInt64
	case '|':
		return kindFloat64
	default:
		return kindString
	}
}

//
// Truth in this dialect: zero is false, anything else is true
//

func evalCondition() bool {

	return evalNumeric().asInt64() != 0
}
