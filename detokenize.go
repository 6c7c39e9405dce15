package main

import (
	"fmt"
	"strings"
)

//
// Turning a stored line back into text.  Only the source half is
// consulted, so whatever the user typed - spacing, abbreviations
// expanded to their keywords, literal spellings - comes back in one
// canonical form.  LIST, SAVE and the error reporter all come
// through here
//

func detokenizeLine(line []byte) string {

	var sb strings.Builder

	lineNo := int(line[0]) | int(line[1])<<8
	fmt.Fprintf(&sb, "%d ", lineNo)

	exe := int(line[4]) | int(line[5])<<8
	detokenizeSource(&sb, line[lineHdrSize:exe-1])

	return sb.String()
}

func detokenizeSource(sb *strings.Builder, src []byte) {

	pos := 0

	for pos < len(src) {

		ch := src[pos]

		switch {
		case ch == tokXVar:
			pos++
			for pos < len(src) && (identChar(src[pos]) || src[pos] == '%' ||
				src[pos] == '&' || src[pos] == '#' || src[pos] == '$') {
				sb.WriteByte(src[pos])
				pos++
			}

		case ch == tokXLinenum:
			num := int(src[pos+1]) | int(src[pos+2])<<8
			fmt.Fprintf(sb, "%d", num)
			pos += 3

		case ch == tokStar:
			sb.WriteByte('*')
			pos++

		case ch == tokFuncPfx || ch == tokCmdPfx || ch == tokPrintPfx:
			sb.WriteString(tokenText[int(ch)<<8|int(src[pos+1])])
			pos += 2

		case ch >= 0x80:
			text, ok := tokenText[int(ch)]
			if !ok {
				fmt.Fprintf(sb, "<%02X>", ch)
				pos++
				break
			}
			sb.WriteString(text)
			pos++

		default:
			sb.WriteByte(ch)
			pos++
		}
	}
}

//
// listLine writes one line to the current output, minding the
// window width the way the paginated commands do
//

func listLine(line []byte) {

	myPrintf("%s\n", detokenizeLine(line))
}
