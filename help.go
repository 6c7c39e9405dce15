package main

func showHelp() {

	myPrintf("DELETE first,last  delete a range of lines\n")
	myPrintf("LIST [first[,last]]  list the program\n")
	myPrintf("LOAD \"file\"  load a program (text, tokenised or Acorn)\n")
	myPrintf("NEW  erase the program\n")
	myPrintf("OLD  recover the program after NEW\n")
	myPrintf("RENUMBER [start[,step]]  renumber, default 10,10\n")
	myPrintf("RUN [line]  run the program\n")
	myPrintf("SAVE [\"file\"]  save the program as text\n")
	myPrintf("QUIT [n]  leave the interpreter\n")
	myPrintf("TRACE ON|OFF|DUMP  execution tracing\n")
}
