package parser

import (
	"strings"
	"testing"
)

func parseProgram(t *testing.T, text string) (*Program, error) {
	t.Helper()
	src, err := NewSource("test.bas", []byte(text))
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	return NewParser(src).Parse()
}

func mustParse(t *testing.T, text string) *Program {
	t.Helper()
	program, err := parseProgram(t, text)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return program
}

func parseError(t *testing.T, text string) *Error {
	t.Helper()
	_, err := parseProgram(t, text)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return e
}

func TestParseLineStructure(t *testing.T) {
	program := mustParse(t, "10 CLS: PRINT \"HI\"\n20 END")

	if len(program.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(program.Lines))
	}
	if program.Lines[0].Number != 10 || program.Lines[1].Number != 20 {
		t.Errorf("unexpected line numbers: %d, %d", program.Lines[0].Number, program.Lines[1].Number)
	}
	if len(program.Lines[0].Statements) != 2 {
		t.Errorf("expected 2 statements on line 10, got %d", len(program.Lines[0].Statements))
	}
	if _, ok := program.Lines[0].Statements[0].(*ClsStmt); !ok {
		t.Errorf("expected ClsStmt first, got %T", program.Lines[0].Statements[0])
	}
}

func TestParseLineNumbersStrictlyIncreasing(t *testing.T) {
	e := parseError(t, "20 END\n10 END")
	if e.Kind != ErrorSyntax {
		t.Errorf("expected SyntaxError, got %s", e.Kind)
	}
}

func TestParseImplicitLet(t *testing.T) {
	program := mustParse(t, "10 A%=5")

	let, ok := program.Lines[0].Statements[0].(*LetStmt)
	if !ok {
		t.Fatalf("expected LetStmt, got %T", program.Lines[0].Statements[0])
	}
	target, ok := let.Target.(*VarRef)
	if !ok || target.Name != "A%" {
		t.Errorf("unexpected target: %#v", let.Target)
	}
	if lit, ok := let.Value.(*IntLit); !ok || lit.Value != 5 {
		t.Errorf("unexpected value: %#v", let.Value)
	}
}

func TestParseExplicitLet(t *testing.T) {
	program := mustParse(t, "10 LET X=1")
	if _, ok := program.Lines[0].Statements[0].(*LetStmt); !ok {
		t.Fatalf("expected LetStmt, got %T", program.Lines[0].Statements[0])
	}
}

func TestParsePrecedence(t *testing.T) {
	// 1+2*3 parses as 1+(2*3)
	program := mustParse(t, "10 A=1+2*3")
	let := program.Lines[0].Statements[0].(*LetStmt)
	add, ok := let.Value.(*BinaryExpr)
	if !ok || add.Op != "+" {
		t.Fatalf("expected + at the root, got %#v", let.Value)
	}
	mul, ok := add.Right.(*BinaryExpr)
	if !ok || mul.Op != "*" {
		t.Fatalf("expected * on the right, got %#v", add.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	// 2^3^2 parses as 2^(3^2)
	program := mustParse(t, "10 A=2^3^2")
	let := program.Lines[0].Statements[0].(*LetStmt)
	outer := let.Value.(*BinaryExpr)
	if outer.Op != "^" {
		t.Fatalf("expected ^ at the root, got %s", outer.Op)
	}
	if inner, ok := outer.Right.(*BinaryExpr); !ok || inner.Op != "^" {
		t.Fatalf("expected ^ on the right, got %#v", outer.Right)
	}
}

func TestParseComparisonVsAnd(t *testing.T) {
	// A=1 AND B=2 parses as (A=1) AND (B=2)
	program := mustParse(t, "10 C=A=1 AND B=2")
	let := program.Lines[0].Statements[0].(*LetStmt)
	and, ok := let.Value.(*BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("expected AND at the root, got %#v", let.Value)
	}
}

func TestParseIfThenElseLineRewrite(t *testing.T) {
	program := mustParse(t, "10 IF 0 THEN 100 ELSE 200\n100 END\n200 END")

	ifStmt := program.Lines[0].Statements[0].(*IfStmt)
	thenGoto, ok := ifStmt.Then[0].(*GotoStmt)
	if !ok || thenGoto.Line != 100 {
		t.Errorf("expected implicit GOTO 100, got %#v", ifStmt.Then[0])
	}
	elseGoto, ok := ifStmt.Else[0].(*GotoStmt)
	if !ok || elseGoto.Line != 200 {
		t.Errorf("expected implicit GOTO 200, got %#v", ifStmt.Else[0])
	}
}

func TestParseIfThenStatements(t *testing.T) {
	program := mustParse(t, `10 IF A>0 THEN PRINT "Y": CLS ELSE PRINT "N"`)
	ifStmt := program.Lines[0].Statements[0].(*IfStmt)
	if len(ifStmt.Then) != 2 {
		t.Errorf("expected 2 THEN statements, got %d", len(ifStmt.Then))
	}
	if len(ifStmt.Else) != 1 {
		t.Errorf("expected 1 ELSE statement, got %d", len(ifStmt.Else))
	}
}

func TestParseForStep(t *testing.T) {
	program := mustParse(t, "10 FOR I=10 TO 0 STEP -2\n20 NEXT I")

	forStmt := program.Lines[0].Statements[0].(*ForStmt)
	if forStmt.Var.Name != "I" {
		t.Errorf("unexpected index: %q", forStmt.Var.Name)
	}
	if forStmt.Step == nil {
		t.Fatal("expected a STEP expression")
	}
	next := program.Lines[1].Statements[0].(*NextStmt)
	if next.Var == nil || next.Var.Name != "I" {
		t.Errorf("unexpected NEXT variable: %#v", next.Var)
	}
}

func TestParseUnresolvedGoto(t *testing.T) {
	e := parseError(t, "10 GOTO 99\n20 END")
	if e.Kind != ErrorUnresolvedLabel {
		t.Errorf("expected UnresolvedLabel, got %s", e.Kind)
	}
	if e.Pos.Line != 1 {
		t.Errorf("expected error on source line 1, got %d", e.Pos.Line)
	}
}

func TestParseForwardGotoResolves(t *testing.T) {
	mustParse(t, "10 GOTO 30\n20 END\n30 END")
}

func TestParseLabels(t *testing.T) {
	program := mustParse(t, "10 LABEL start\n20 GOTO start")

	target, ok := program.Symbols.Alias("START")
	if !ok {
		t.Fatal("expected the START alias to resolve")
	}
	if target.Number != 10 {
		t.Errorf("expected alias on line 10, got %d", target.Number)
	}
}

func TestParseUnnumberedLabel(t *testing.T) {
	program := mustParse(t, "LABEL loop\n10 GOTO loop")
	target, ok := program.Symbols.Alias("LOOP")
	if !ok || target.Number != 10 {
		t.Fatalf("expected LOOP bound to line 10, got %#v", target)
	}
}

func TestParseTypeSuffixConflict(t *testing.T) {
	e := parseError(t, "10 A%=5\n20 A$=\"X\"")
	if e.Kind != ErrorType {
		t.Errorf("expected TypeError, got %s", e.Kind)
	}
}

func TestParseUnsupportedKeyword(t *testing.T) {
	e := parseError(t, "10 SOUND 1,100")
	if e.Kind != ErrorUnsupported {
		t.Errorf("expected UnsupportedFeature, got %s", e.Kind)
	}
	if !strings.Contains(e.Message, "SOUND") {
		t.Errorf("expected the keyword in the message: %q", e.Message)
	}
}

func TestParseDefFnUnsupported(t *testing.T) {
	e := parseError(t, "10 DEF FN D(X)=X*2")
	if e.Kind != ErrorUnsupported {
		t.Errorf("expected UnsupportedFeature, got %s", e.Kind)
	}
}

func TestParseSyntaxErrorPosition(t *testing.T) {
	e := parseError(t, "10 GOTO\n20 END")
	if e.Kind != ErrorSyntax {
		t.Errorf("expected SyntaxError, got %s", e.Kind)
	}
	if e.Pos.Line != 1 {
		t.Errorf("expected error on line 1, got %d", e.Pos.Line)
	}
	if !strings.Contains(e.Message, "expected") {
		t.Errorf("expected/got message missing: %q", e.Message)
	}
}

func TestParseDim(t *testing.T) {
	program := mustParse(t, "10 DIM A%(10)\n20 A%(3)=7")

	v, ok := program.Symbols.Variable("A%")
	if !ok || !v.IsArray {
		t.Fatalf("expected array A%%, got %#v", v)
	}
	if v.Bound != 10 {
		t.Errorf("expected bound 10, got %d", v.Bound)
	}
}

func TestParseDimStringUnsupported(t *testing.T) {
	e := parseError(t, "10 DIM A$(5)")
	if e.Kind != ErrorUnsupported {
		t.Errorf("expected UnsupportedFeature, got %s", e.Kind)
	}
}

func TestParseDataItems(t *testing.T) {
	program := mustParse(t, `10 DATA 1, 2.5, "HELLO", WORLD`)

	data := program.Lines[0].Statements[0].(*DataStmt)
	want := []string{"1", "2.5", "HELLO", "WORLD"}
	if len(data.Items) != len(want) {
		t.Fatalf("expected %d items, got %d: %v", len(want), len(data.Items), data.Items)
	}
	for i, w := range want {
		if data.Items[i] != w {
			t.Errorf("item %d: expected %q, got %q", i, w, data.Items[i])
		}
	}
}

func TestParsePrintSeparators(t *testing.T) {
	program := mustParse(t, `10 PRINT A;B,C`)
	p := program.Lines[0].Statements[0].(*PrintStmt)
	if len(p.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(p.Items))
	}
	if p.Items[0].Sep != ';' || p.Items[1].Sep != ',' || p.Items[2].Sep != 0 {
		t.Errorf("unexpected separators: %q %q %q", p.Items[0].Sep, p.Items[1].Sep, p.Items[2].Sep)
	}
}

func TestParseBuiltinCall(t *testing.T) {
	program := mustParse(t, `10 A$=CHR$(65)`)
	let := program.Lines[0].Statements[0].(*LetStmt)
	call, ok := let.Value.(*CallExpr)
	if !ok || call.Func.Name != "CHR$" {
		t.Fatalf("expected CHR$ call, got %#v", let.Value)
	}
	if len(call.Args) != 1 {
		t.Errorf("expected 1 argument, got %d", len(call.Args))
	}
}

func TestParseMidThreeArgs(t *testing.T) {
	mustParse(t, `10 A$="HELLO"`+"\n"+`20 B$=MID$(A$,2,3)`)
}

func TestParseCallWithParametersUnsupported(t *testing.T) {
	e := parseError(t, "10 CALL &BB5A,1")
	if e.Kind != ErrorUnsupported {
		t.Errorf("expected UnsupportedFeature, got %s", e.Kind)
	}
}

func TestParseSymbolForms(t *testing.T) {
	program := mustParse(t, "10 SYMBOL AFTER 240\n20 SYMBOL 240,&00,&00,&74,&7E,&6C,&70,&7C,&30")

	if _, ok := program.Lines[0].Statements[0].(*SymbolAfterStmt); !ok {
		t.Errorf("expected SymbolAfterStmt, got %T", program.Lines[0].Statements[0])
	}
	sym, ok := program.Lines[1].Statements[0].(*SymbolStmt)
	if !ok {
		t.Fatalf("expected SymbolStmt, got %T", program.Lines[1].Statements[0])
	}
	if len(sym.Rows) != 8 {
		t.Errorf("expected 8 matrix rows, got %d", len(sym.Rows))
	}
}

func TestParseRemarkPreserved(t *testing.T) {
	program := mustParse(t, "10 REM setup code")
	rem, ok := program.Lines[0].Statements[0].(*RemarkStmt)
	if !ok {
		t.Fatalf("expected RemarkStmt, got %T", program.Lines[0].Statements[0])
	}
	if rem.Text != "setup code" {
		t.Errorf("unexpected remark text: %q", rem.Text)
	}
}
