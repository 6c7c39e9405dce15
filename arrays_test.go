package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDimBoundsInclusive(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(10,20,30)
		20 a(0,0,0)=1
		30 a(10,20,30)=7
		40 PRINT a(10,20,30);" ";a(0,0,0);" ";a(1,2,3)
	`)

	require.Equal(t, "7 1 0\n", out)
}

func TestSubscriptOutOfRange(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(10,20,30)
		20 a(11,0,0)=1
	`)

	require.Equal(t, "Subscript out of range at line 20\n", out)

	out = runProgram(t, `
		10 DIM a(5)
		20 PRINT a(-1)
	`)

	require.Equal(t, "Subscript out of range at line 20\n", out)
}

func TestWrongDimensionCount(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(3,3)
		20 PRINT a(1,2,3)
	`)

	require.Equal(t, "Too many dimensions at line 20\n", out)
}

func TestDuplicateDim(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(3)
		20 DIM a(3)
	`)

	require.Equal(t, "Array 'a' already dimensioned at line 20\n", out)
}

func TestUndimensionedArray(t *testing.T) {

	out := runProgram(t, `
		10 PRINT a(1)
	`)

	require.Equal(t, "Array 'a' not found at line 10\n", out)
}

func TestArrayFillAndSum(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(9)
		20 a()=5
		30 PRINT SUM(a())
	`)

	require.Equal(t, "50\n", out)
}

func TestArrayListAssign(t *testing.T) {

	out := runProgram(t, `
		10 DIM a%(4)
		20 a%()=10,20,30
		30 PRINT a%(0);" ";a%(1);" ";a%(2);" ";a%(3)
	`)

	require.Equal(t, "10 20 30 0\n", out)
}

func TestArrayBroadcastScalar(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(4)
		20 DIM b(4)
		30 a()=3
		40 b()=a()*2+1
		50 PRINT SUM(b())
	`)

	require.Equal(t, "35\n", out)
}

func TestArrayShapeMismatch(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(3)
		20 DIM b(4)
		30 a()=a()+b()
	`)

	require.Equal(t, "Arrays have different shapes at line 30\n", out)
}

func TestMatrixMultiply(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(1,1)
		20 a()=1,2,3,4
		30 DIM b(1,1)
		40 b()=1,0,0,1
		50 DIM c(1,1)
		60 c()=a().b()
		70 PRINT c(0,0);" ";c(0,1);" ";c(1,0);" ";c(1,1)
	`)

	require.Equal(t, "1 2 3 4\n", out)
}

func TestMatrixVectorMultiply(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(1,1)
		20 a()=1,2,3,4
		30 DIM v(1)
		40 v()=1,1
		50 DIM w(1)
		60 w()=a().v()
		70 PRINT w(0);" ";w(1)
	`)

	require.Equal(t, "3 7\n", out)
}

func TestMatrixShapeUnsuitable(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(1,2)
		20 DIM b(1,2)
		30 DIM c(1,2)
		40 c()=a().b()
	`)

	require.Equal(t, "Array shapes unsuitable for matrix multiply at line 40\n", out)
}

func TestStringArrayConcat(t *testing.T) {

	out := runProgram(t, `
		10 DIM s$(2)
		20 s$()="x"
		30 s$()=s$()+"y"
		40 PRINT s$(0);s$(1);s$(2)
		50 PRINT SUM(s$())
	`)

	require.Equal(t, "xyxyxy\nxyxyxy\n", out)
}

func TestDimFunction(t *testing.T) {

	out := runProgram(t, `
		10 DIM a(5,7)
		20 PRINT DIM(a());" ";DIM(a(),1);" ";DIM(a(),2)
	`)

	require.Equal(t, "2 5 7\n", out)
}

//
// Whole-array copy converts element kinds as it goes
//

func TestArrayCopyConvertsKind(t *testing.T) {

	out := runProgram(t, `
		10 DIM a%(2)
		20 DIM b(2)
		30 b()=1.5
		40 a%()=b()
		50 PRINT a%(0);" ";SUM(a%())
	`)

	// float elements round, not truncate, when landing in an
	// integer array
	require.Equal(t, "2 6\n", out)
}
