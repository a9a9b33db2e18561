package codegen

import (
	"strings"
	"testing"

	"github.com/fragarco/basc/parser"
)

func compile(t *testing.T, text string) *Result {
	t.Helper()
	result, err := Compile("test.bas", []byte(text), Options{})
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	return result
}

func compileError(t *testing.T, text string) *parser.Error {
	t.Helper()
	_, err := Compile("test.bas", []byte(text), Options{})
	if err == nil {
		t.Fatal("expected a compile error")
	}
	e, ok := err.(*parser.Error)
	if !ok {
		t.Fatalf("expected *parser.Error, got %T: %v", err, err)
	}
	return e
}

func wantContains(t *testing.T, asm, needle string) {
	t.Helper()
	if !strings.Contains(asm, needle) {
		t.Errorf("assembly does not contain %q", needle)
	}
}

func wantMissing(t *testing.T, asm, needle string) {
	t.Helper()
	if strings.Contains(asm, needle) {
		t.Errorf("assembly should not contain %q", needle)
	}
}

func TestCompileHelloWorld(t *testing.T) {
	result := compile(t, "10 PRINT \"HELLO\"\n20 GOTO 20")
	asm := result.Assembly

	wantContains(t, asm, "org &4000")
	wantContains(t, asm, `db "HELLO",0`)
	wantContains(t, asm, "call strlib_print_str")
	wantContains(t, asm, "jp __label_line_20")
	wantContains(t, asm, "__label_line_10:")
	wantContains(t, asm, "; LIBRARY AREA")
	wantContains(t, asm, "; DATA AREA")
}

func TestCompileForLoopWithChr(t *testing.T) {
	result := compile(t, `10 MODE 2
20 FOR X=32 TO 255
30 PRINT X;" ";CHR$(X);" ";
40 NEXT
50 GOTO 50`)
	asm := result.Assembly

	wantContains(t, asm, "call &BC0E") // SCR SET MODE
	wantContains(t, asm, "var_x:")     // slot for X
	wantContains(t, asm, "strlib_int2str")
	wantContains(t, asm, "var_tmp") // CHR$ temporary
	wantContains(t, asm, "__for_head_")
	wantContains(t, asm, "__for_exit_")
}

func TestCompileTypePromotion(t *testing.T) {
	result := compile(t, "10 A%=5\n20 B!=A%+1.5\n30 PRINT B!")
	asm := result.Assembly

	wantContains(t, asm, "var_ai:\tdw 0")   // A% reserved as 2 bytes
	wantContains(t, asm, "var_b:\tdefs 5")  // B! reserved as 5 bytes
	wantContains(t, asm, "reallib_fromint") // integer promoted to real
	wantContains(t, asm, "call reallib_add")
}

func TestCompileUnresolvedLabel(t *testing.T) {
	e := compileError(t, "10 GOTO 99\n20 END")
	if e.Kind != parser.ErrorUnresolvedLabel {
		t.Errorf("expected UnresolvedLabel, got %s", e.Kind)
	}
	if e.Pos.Line != 1 {
		t.Errorf("expected the error on line 1, got %d", e.Pos.Line)
	}
}

func TestCompileNestingMismatch(t *testing.T) {
	e := compileError(t, "10 FOR I=1 TO 3\n20 FOR J=1 TO 3\n30 NEXT I")
	if e.Kind != parser.ErrorNesting {
		t.Errorf("expected NestingError, got %s", e.Kind)
	}
	if e.Pos.Line != 3 {
		t.Errorf("expected the error on source line 3, got %d", e.Pos.Line)
	}
}

func TestCompileUnclosedFor(t *testing.T) {
	e := compileError(t, "10 FOR I=1 TO 3\n20 PRINT I")
	if e.Kind != parser.ErrorNesting {
		t.Errorf("expected NestingError, got %s", e.Kind)
	}
}

func TestCompileSymbolRedefinition(t *testing.T) {
	result := compile(t, `10 SYMBOL AFTER 240
20 SYMBOL 240,&00,&00,&74,&7E,&6C,&70,&7C,&30
30 GOTO 30`)
	asm := result.Assembly

	wantContains(t, asm, "call &BBAB") // TXT SET M TABLE
	wantContains(t, asm, "call &BBA8") // TXT SET MATRIX
	wantContains(t, asm, "ld hl,116")  // &74 row as an immediate
	wantContains(t, asm, "ld hl,126")  // &7E row as an immediate
	wantContains(t, asm, "symbol_table:\tdefs 128")
}

func TestCompileDeterministic(t *testing.T) {
	src := `10 MODE 1
20 FOR I=1 TO 10
30 PRINT I;" squared is ";I*I
40 NEXT I
50 A$="DONE"
60 PRINT A$
70 END`

	first := compile(t, src)
	second := compile(t, src)
	if first.Assembly != second.Assembly {
		t.Error("assembly output is not deterministic")
	}
	if first.Listing != second.Listing {
		t.Error("listing output is not deterministic")
	}
	if first.Map != second.Map {
		t.Error("map output is not deterministic")
	}
}

func TestCompileEmptyPrint(t *testing.T) {
	result := compile(t, "10 PRINT")
	wantContains(t, result.Assembly, "call strlib_print_nl")
	wantMissing(t, result.Assembly, "call strlib_print_str")
}

func TestCompileIfElseTargets(t *testing.T) {
	result := compile(t, "10 IF 0 THEN 100 ELSE 200\n100 END\n200 END")
	asm := result.Assembly

	wantContains(t, asm, "jp __label_line_100")
	wantContains(t, asm, "jp __label_line_200")
	wantContains(t, asm, "jp z,__else_")
}

func TestCompileHexLiteralWraps(t *testing.T) {
	result := compile(t, "10 POKE &FFFF,0")
	// &FFFF is the 16-bit value -1 where context requires
	wantContains(t, result.Assembly, "ld hl,-1")
}

func TestCompileLibraryMinimality(t *testing.T) {
	// A program without FOR must not pull in the loop helper
	result := compile(t, "10 PRINT \"X\"")
	wantMissing(t, result.Assembly, "forlib_check")
	wantMissing(t, result.Assembly, "reallib_add")

	// Every emitted routine must be called from somewhere
	asm := result.Assembly
	for name := range routines {
		if strings.Contains(asm, name+":\n") && !strings.Contains(asm, "call "+name) &&
			!strings.Contains(asm, "jp "+name) {
			t.Errorf("routine %s emitted but never referenced", name)
		}
	}
}

func TestCompileLabelCompleteness(t *testing.T) {
	result := compile(t, `10 GOSUB 100
20 GOTO 30
30 END
100 PRINT "SUB"
110 RETURN`)
	asm := result.Assembly

	// Every jp/call target referring to a generated label must be defined
	for _, line := range strings.Split(asm, "\n") {
		text := strings.TrimSpace(line)
		var target string
		if strings.HasPrefix(text, "jp __") {
			target = strings.TrimPrefix(text, "jp ")
		} else if strings.HasPrefix(text, "call __") {
			target = strings.TrimPrefix(text, "call ")
		} else {
			continue
		}
		if idx := strings.Index(target, ","); idx >= 0 {
			target = target[idx+1:]
		}
		if !strings.Contains(asm, target+":") {
			t.Errorf("branch target %s has no label", target)
		}
	}
}

func TestCompileWhileWend(t *testing.T) {
	result := compile(t, "10 A=5\n20 WHILE A>0\n30 A=A-1\n40 WEND")
	asm := result.Assembly

	wantContains(t, asm, "__while_head_")
	wantContains(t, asm, "__wend_")
}

func TestCompileWendMismatch(t *testing.T) {
	e := compileError(t, "10 FOR I=1 TO 3\n20 WEND")
	if e.Kind != parser.ErrorNesting {
		t.Errorf("expected NestingError, got %s", e.Kind)
	}
}

func TestCompileGosubReturn(t *testing.T) {
	result := compile(t, "10 GOSUB 100\n20 END\n100 RETURN")
	asm := result.Assembly

	wantContains(t, asm, "call __label_line_100")
	wantContains(t, asm, "\tret")
}

func TestCompileDataReadRestore(t *testing.T) {
	result := compile(t, `10 DATA 1,2,3
20 READ A%
30 READ B%
40 RESTORE 10
50 READ C%`)
	asm := result.Assembly

	wantContains(t, asm, "call datalib_read")
	wantContains(t, asm, "__data_area:")
	wantContains(t, asm, "__data_line_10:")
	wantContains(t, asm, "db &FF,0")
	wantContains(t, asm, "ld hl,__data_area") // pointer initialization
}

func TestCompileStringOps(t *testing.T) {
	result := compile(t, `10 A$="AB"+"CD"
20 B$=LEFT$(A$,2)
30 PRINT LEN(A$)`)
	asm := result.Assembly

	wantContains(t, asm, "call strlib_concat")
	wantContains(t, asm, "call strlib_left")
	wantContains(t, asm, "call strlib_len")
	wantContains(t, asm, "var_as:\tdefs 256")
}

func TestCompileStringTypeMix(t *testing.T) {
	e := compileError(t, `10 A=1+"X"`)
	if e.Kind != parser.ErrorType {
		t.Errorf("expected TypeError, got %s", e.Kind)
	}
}

func TestCompileLocateTruncationWarning(t *testing.T) {
	result := compile(t, "10 LOCATE 1.5,2")
	found := false
	for _, warn := range result.Warnings {
		if strings.Contains(warn.Message, "LOCATE") {
			found = true
		}
	}
	if !found {
		t.Error("expected a truncation warning for LOCATE")
	}
}

func TestCompileIntegerDivision(t *testing.T) {
	result := compile(t, "10 A%=7/2")
	wantContains(t, result.Assembly, "call mathlib_div16")
	wantMissing(t, result.Assembly, "reallib_div")
}

func TestCompileArrays(t *testing.T) {
	result := compile(t, "10 DIM A%(10)\n20 A%(3)=7\n30 PRINT A%(3)")
	asm := result.Assembly

	wantContains(t, asm, "var_ai:\tdefs 22") // 11 elements of 2 bytes
	wantContains(t, asm, "add hl,hl")        // index scaling
}

func TestCompileListing(t *testing.T) {
	result := compile(t, "10 CLS\n20 END")

	if !strings.Contains(result.Listing, "10 CLS") {
		t.Error("listing lacks the source line")
	}
	if !strings.Contains(result.Listing, "call &BB6C") {
		t.Error("listing lacks the generated assembly")
	}
}

func TestCompileMap(t *testing.T) {
	result := compile(t, "10 A%=1\n20 GOTO 10")

	if !strings.Contains(result.Map, "A%") {
		t.Error("map lacks the variable")
	}
	if !strings.Contains(result.Map, "__label_line_10") {
		t.Error("map lacks the line label")
	}
}

func TestCompileCustomOrg(t *testing.T) {
	result, err := Compile("test.bas", []byte("10 END"), Options{Org: 0x8000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantContains(t, result.Assembly, "org &8000")
}

func TestCompileStringComparison(t *testing.T) {
	result := compile(t, `10 A$="X"
20 IF A$="X" THEN 40
30 END
40 END`)
	wantContains(t, result.Assembly, "call strlib_cmp")
	wantContains(t, result.Assembly, "call cmplib_eq")
}

func TestCompileRealForLoop(t *testing.T) {
	result := compile(t, "10 FOR X=0.5 TO 2.5 STEP 0.5\n20 NEXT")
	asm := result.Assembly

	wantContains(t, asm, "call forlib_check_real")
	wantContains(t, asm, "call reallib_add")
}
