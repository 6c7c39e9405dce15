package main

//
// Editor commands arrive as a tokCmdPfx pair.  They are really
// immediate-mode tools but nothing stops a stored program from
// using them, which is occasionally handy (a program that LISTs
// itself, say)
//

func executeCommand(sub int) {

	bump(2)

	switch sub {

	case cmdDELETE:
		commandDelete()

	case cmdHELP:
		showHelp()
		skipToEol()

	case cmdLIST:
		commandList()

	case cmdLOAD:
		loadProgram(evalString())

	case cmdNEW:
		newProgram()
		stopAfterEdit()

	case cmdOLD:
		oldProgram()
		stopAfterEdit()

	case cmdRENUMBER:
		commandRenumber()

	case cmdSAVE:
		commandSave()

	default:
		raise(errBadToken, sub)
	}
}

//
// DELETE needs both ends of the range; a bare DELETE throwing the
// whole program away is too easy to type
//

func commandDelete() {

	lo := int(evalInt())
	expectByte(',', errMissingComma)
	hi := int(evalInt())

	if lo < 1 || hi > maxLineNo || lo > hi {
		raise(errRange)
	}

	deleteRange(lo, hi)
	stopAfterEdit()
}

//
// LIST, LIST n, LIST n, or LIST first,last.  A trailing comma
// means "to the end"
//

func commandList() {

	first := 1
	last := maxLineNo

	if curTok() != tokNul && curTok() != ':' {
		first = int(evalInt())
		last = first

		if curTok() == ',' {
			bump(1)
			last = maxLineNo
			if curTok() != tokNul && curTok() != ':' {
				last = int(evalInt())
			}
		}
	}

	ws := g.ws

	for off := ws.start; !ws.atSentinel(off); off += ws.lineLength(off) {
		no := ws.lineNumber(off)

		if no > last {
			break
		}

		if no >= first {
			listLine(ws.lineBytes(off))
		}
	}
}

func commandRenumber() {

	start, step := 10, 10

	if curTok() != tokNul && curTok() != ':' {
		start = int(evalInt())

		if curTok() == ',' {
			bump(1)
			step = int(evalInt())
		}
	}

	if start < 1 || step < 1 {
		raise(errRenumber)
	}

	renumberProgram(start, step)
	stopAfterEdit()
}

//
// SAVE, or SAVE "name".  With no argument the name the program was
// loaded under is reused
//

func commandSave() {

	name := g.programFilename

	if curTok() != tokNul && curTok() != ':' {
		name = evalString()
	}

	if name == "" {
		raise(errFileIo, "no file name to save to")
	}

	saveProgram(name)
}

//
// Commands that restructure the program cannot sensibly let the
// current run continue, so they bail out to the prompt
//

func stopAfterEdit() {

	if g.running {
		panic(&crawloutException{})
	}

	skipToEol()
}
