package main

//
// Arrays.  Each DIMmed array owns a descriptor holding its shape
// and a payload slice of its element kind.  Indices run from 0 to
// the declared bound inclusive, row-major.  Whole-array operands
// travel the value stack as descriptor handles; the elementwise
// operators and the matrix multiply below are the only consumers
//

func newArrayDesc(kind int, bounds []int32) *arrayDesc {

	if len(bounds) > maxDims {
		raise(errDimCount)
	}

	d := &arrayDesc{kind: kind, dimcount: len(bounds), arrsize: 1}

	for i, b := range bounds {
		if b < 0 || b > 0x7FFFFF {
			raise(errDimRange)
		}
		d.dimsize[i] = b + 1
		d.arrsize *= b + 1
	}

	switch kind {
	case kindInt32:
		d.ints = make([]int32, d.arrsize)
	case kindUint8:
		d.bytes = make([]uint8, d.arrsize)
	case kindInt64:
		d.int64s = make([]int64, d.arrsize)
	case kindFloat64:
		d.floats = make([]float64, d.arrsize)
	case kindString:
		d.strs = make([]string, d.arrsize)
	}

	return d
}

func dimArray(name string, bounds []int32) {

	e := findArray(name)
	if e == nil {
		e = createArray(name)
	}

	if e.desc != nil {
		raise(errDuplDim, name)
	}

	e.desc = newArrayDesc(e.kind&0xF, bounds)
}

//
// Cursor side: an executable tokArrayVar, either indexed or whole
//

func arrayRef() (*symEntry, *arrayDesc) {

	e := symFromRef(operand32(r.line, r.cur.pos+1))
	bump(5)

	expectByte('(', errSyntax)

	if e.desc == nil {
		raise(errNoDims, e.name[:len(e.name)-1])
	}

	return e, e.desc
}

func arrayFactor() {

	_, d := arrayRef()

	if curTok() == ')' {
		bump(1)
		pushArray(d)
		return
	}

	elem := parseIndices(d)
	pushElemValue(d, elem)
}

func arrayLvalue() lvalue {

	e, d := arrayRef()

	if curTok() == ')' {
		bump(1)
		return lvalue{mode: modeWholeArray, kind: e.kind & 0xF, desc: d}
	}

	elem := parseIndices(d)

	return lvalue{mode: modeArrayElem, kind: e.kind & 0xF, desc: d, elem: elem}
}

func parseIndices(d *arrayDesc) int32 {

	elem := int32(0)

	for dim := 0; ; dim++ {
		if dim >= d.dimcount {
			raise(errDimCount)
		}

		idx := evalInt32()
		if idx < 0 || idx >= d.dimsize[dim] {
			raise(errBadIndex)
		}

		elem = elem*d.dimsize[dim] + idx

		if curTok() != ',' {
			if dim != d.dimcount-1 {
				raise(errDimCount)
			}
			break
		}
		bump(1)
	}

	expectByte(')', errMissingRParen)

	return elem
}

func arrayElemValue(d *arrayDesc, elem int32) value {

	switch d.kind {
	case kindInt32:
		return value{kind: kindInt32, i: int64(d.ints[elem])}
	case kindUint8:
		return value{kind: kindUint8, i: int64(d.bytes[elem])}
	case kindInt64:
		return value{kind: kindInt64, i: d.int64s[elem]}
	case kindFloat64:
		return value{kind: kindFloat64, f: d.floats[elem]}
	default:
		s := d.strs[elem]
		body := 0
		if len(s) > 0 {
			body = g.ws.allocString(len(s))
			copy(g.ws.mem[body:], s)
		}
		return value{kind: kindString, sLen: len(s), sBody: body, sTemp: true}
	}
}

func pushElemValue(d *arrayDesc, elem int32) {

	pushValue(arrayElemValue(d, elem))
}

func storeArrayElem(d *arrayDesc, elem int32, v value) {

	if d.kind == kindString {
		if v.kind != kindString {
			raise(errTypeStr)
		}
		s := strValue(v)
		releaseValue(v)
		d.strs[elem] = s
		return
	}

	if !v.isNumeric() {
		raise(errTypeNum)
	}

	switch d.kind {
	case kindInt32:
		d.ints[elem] = v.asInt32()
	case kindUint8:
		d.bytes[elem] = uint8(v.asInt64())
	case kindInt64:
		d.int64s[elem] = v.asInt64()
	default:
		d.floats[elem] = v.asFloat()
	}
}

//
// Numeric views used by the elementwise machinery
//

func elemInt(d *arrayDesc, i int32) int64 {

	switch d.kind {
	case kindInt32:
		return int64(d.ints[i])
	case kindUint8:
		return int64(d.bytes[i])
	case kindInt64:
		return d.int64s[i]
	default:
		return floatToInt64(d.floats[i])
	}
}

func elemFloat(d *arrayDesc, i int32) float64 {

	if d.kind == kindFloat64 {
		return d.floats[i]
	}

	return float64(elemInt(d, i))
}

func numericArray(d *arrayDesc) {

	if d.kind == kindString {
		raise(errNumArray)
	}
}

func sameShape(a, b *arrayDesc) bool {

	if a.dimcount != b.dimcount {
		return false
	}

	for i := 0; i < a.dimcount; i++ {
		if a.dimsize[i] != b.dimsize[i] {
			return false
		}
	}

	return true
}

//
// Whole-array assignment: a fill from a scalar, or an element copy
// from an array of the same shape, converting kinds on the way
//

func arrayAssign(dst *arrayDesc, v value) {

	if v.kind == kindArray {
		src := v.desc

		if !sameShape(dst, src) {
			raise(errTypeArray)
		}

		for i := int32(0); i < dst.arrsize; i++ {
			storeArrayElem(dst, i, arrayElemValue(src, i))
		}
		return
	}

	for i := int32(0); i < dst.arrsize; i++ {
		if v.kind == kindString {
			if dst.kind != kindString {
				raise(errTypeNum)
			}
			dst.strs[i] = strValue(v)
			continue
		}
		storeArrayElem(dst, i, v)
	}

	releaseValue(v)
}

//
// Elementwise operators with broadcast.  A scalar operand applies
// against every element; two arrays must agree in shape.  The
// matrix product is the one operator that is not elementwise
//

func arrayBinaryOp(op byte, lhs, rhs value) {

	if op == '.' {
		matrixMultiply(lhs, rhs)
		return
	}

	if lhs.kind == kindString || rhs.kind == kindString ||
		lhs.kind == kindArray && lhs.desc.kind == kindString ||
		rhs.kind == kindArray && rhs.desc.kind == kindString {
		stringArrayOp(op, lhs, rhs)
		return
	}

	shape := lhs
	if lhs.kind != kindArray {
		shape = rhs
	}

	if lhs.kind == kindArray && rhs.kind == kindArray && !sameShape(lhs.desc, rhs.desc) {
		raise(errTypeArray)
	}

	kind := arrayResultKind(op, lhs, rhs)
	out := newArrayDesc(kind, boundsOf(shape.desc))

	for i := int32(0); i < out.arrsize; i++ {

		a := broadcastElem(lhs, i)
		b := broadcastElem(rhs, i)

		numericBinaryOp(op, a, b)
		storeArrayElem(out, i, popValue())
	}

	pushArray(out)
}

func boundsOf(d *arrayDesc) []int32 {

	bounds := make([]int32, d.dimcount)
	for i := range bounds {
		bounds[i] = d.dimsize[i] - 1
	}

	return bounds
}

func broadcastElem(v value, i int32) value {

	if v.kind == kindArray {
		return arrayElemValue(v.desc, i)
	}

	return v
}

func arrayResultKind(op byte, lhs, rhs value) int {

	if op == '/' || op == '^' {
		return kindFloat64
	}

	f := func(v value) int {
		if v.kind == kindArray {
			return v.desc.kind
		}
		return v.kind
	}

	a, b := f(lhs), f(rhs)

	switch {
	case a == kindFloat64 || b == kindFloat64:
		return kindFloat64
	case a == kindInt64 || b == kindInt64:
		return kindInt64
	default:
		return kindInt32
	}
}

//
// String arrays support concatenation, with scalar broadcast on
// either side.  Anything else is a type error
//

func stringArrayOp(op byte, lhs, rhs value) {

	if op != '+' {
		raise(errTypeArray)
	}

	strKindOf := func(v value) bool {
		if v.kind == kindArray {
			return v.desc.kind == kindString
		}
		return v.kind == kindString
	}

	if !strKindOf(lhs) || !strKindOf(rhs) {
		raise(errTypeStr)
	}

	shape := lhs
	if lhs.kind != kindArray {
		shape = rhs
	}

	if lhs.kind == kindArray && rhs.kind == kindArray && !sameShape(lhs.desc, rhs.desc) {
		raise(errTypeArray)
	}

	out := newArrayDesc(kindString, boundsOf(shape.desc))

	side := func(v value, i int32) string {
		if v.kind == kindArray {
			return v.desc.strs[i]
		}
		return strValue(v)
	}

	for i := int32(0); i < out.arrsize; i++ {
		s := side(lhs, i) + side(rhs, i)
		if len(s) > maxStringLen {
			raise(errStringLen)
		}
		out.strs[i] = s
	}

	releaseValue(lhs)
	releaseValue(rhs)

	pushArray(out)
}

//
// Matrix multiply.  Both operands must be numeric arrays; the
// shapes follow the usual linear algebra cases - matrix by matrix,
// matrix by vector, vector by matrix.  The result is always a
// float array
//

func matrixMultiply(lhs, rhs value) {

	if lhs.kind != kindArray || rhs.kind != kindArray {
		raise(errVarArray)
	}

	a, b := lhs.desc, rhs.desc
	numericArray(a)
	numericArray(b)

	switch {

	case a.dimcount == 2 && b.dimcount == 2:
		if a.dimsize[1] != b.dimsize[0] {
			raise(errMatArray)
		}

		n, m, p := a.dimsize[0], a.dimsize[1], b.dimsize[1]
		out := newArrayDesc(kindFloat64, []int32{n - 1, p - 1})

		for i := int32(0); i < n; i++ {
			for j := int32(0); j < p; j++ {
				sum := 0.0
				for k := int32(0); k < m; k++ {
					sum += elemFloat(a, i*m+k) * elemFloat(b, k*p+j)
				}
				out.floats[i*p+j] = sum
			}
		}
		pushArray(out)

	case a.dimcount == 2 && b.dimcount == 1:
		if a.dimsize[1] != b.dimsize[0] {
			raise(errMatArray)
		}

		n, m := a.dimsize[0], a.dimsize[1]
		out := newArrayDesc(kindFloat64, []int32{n - 1})

		for i := int32(0); i < n; i++ {
			sum := 0.0
			for k := int32(0); k < m; k++ {
				sum += elemFloat(a, i*m+k) * elemFloat(b, k)
			}
			out.floats[i] = sum
		}
		pushArray(out)

	case a.dimcount == 1 && b.dimcount == 2:
		if a.dimsize[0] != b.dimsize[0] {
			raise(errMatArray)
		}

		m, p := b.dimsize[0], b.dimsize[1]
		out := newArrayDesc(kindFloat64, []int32{p - 1})

		for j := int32(0); j < p; j++ {
			sum := 0.0
			for k := int32(0); k < m; k++ {
				sum += elemFloat(a, k) * elemFloat(b, k*p+j)
			}
			out.floats[j] = sum
		}
		pushArray(out)

	default:
		raise(errMatArray)
	}
}

//
// SUM over an array: numeric arrays total their elements, string
// arrays concatenate them
//

func sumArray(d *arrayDesc) {

	if d.kind == kindString {
		total := 0
		for _, s := range d.strs {
			total += len(s)
			if total > maxStringLen {
				raise(errStringLen)
			}
		}

		var sb []byte
		for _, s := range d.strs {
			sb = append(sb, s...)
		}
		pushString(string(sb))
		return
	}

	if d.kind == kindFloat64 {
		sum := 0.0
		for _, f := range d.floats {
			sum += f
		}
		pushFloat(sum)
		return
	}

	sum := int64(0)
	for i := int32(0); i < d.arrsize; i++ {
		sum += elemInt(d, i)
	}

	pushIntResult(sum, d.kind == kindInt64)
}

//
// DIM() the function: the dimension count of an array, or with a
// second argument the bound of that dimension as it was DIMmed
//

func dimFunction() {

	expectByte('(', errMissingRParen)

	if curTok() == tokXVar {
		resolveVarRef(false)
	}
	if curTok() != tokArrayVar {
		raise(errVarArray)
	}

	_, d := arrayRef()
	expectByte(')', errMissingRParen)

	if curTok() == ',' {
		bump(1)

		n := evalInt()
		if n < 1 || n > int64(d.dimcount) {
			raise(errRange)
		}

		expectByte(')', errMissingRParen)
		pushInt32(d.dimsize[n-1] - 1)
		return
	}

	expectByte(')', errMissingRParen)
	pushInt32(int32(d.dimcount))
}
