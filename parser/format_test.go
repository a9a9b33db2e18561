package parser

import "testing"

func TestFormatRoundTrip(t *testing.T) {
	input := `10 MODE 2: PEN 3
20 DIM A%(10)
30 FOR I=1 TO 10 STEP 2
40 A%(I)=I*(I+1)
50 PRINT I;" ";CHR$(65);A%(I)
60 NEXT I
70 IF A%(9)>50 THEN 90 ELSE PRINT "LOW"
80 REM all done
90 DATA "ONE","2","3.5"
100 READ B$
110 GOSUB 130
120 END
130 LOCATE 1,1: RETURN`

	first := mustParse(t, input)
	pretty := FormatProgram(first)

	second, err := parseProgram(t, pretty)
	if err != nil {
		t.Fatalf("re-parse of formatted source failed: %v\n%s", err, pretty)
	}

	if again := FormatProgram(second); again != pretty {
		t.Errorf("format is not stable across a re-parse:\n--- first\n%s\n--- second\n%s", pretty, again)
	}

	if len(first.Lines) != len(second.Lines) {
		t.Fatalf("line count changed: %d vs %d", len(first.Lines), len(second.Lines))
	}
	for i := range first.Lines {
		if len(first.Lines[i].Statements) != len(second.Lines[i].Statements) {
			t.Errorf("line %d statement count changed", first.Lines[i].Number)
		}
	}
}

func TestFormatKeepsParentheses(t *testing.T) {
	program := mustParse(t, "10 A=(1+2)*3")
	let := program.Lines[0].Statements[0].(*LetStmt)
	if got := FormatExpression(let.Value); got != "(1+2)*3" {
		t.Errorf("expected (1+2)*3, got %q", got)
	}
}

func TestFormatImplicitGotoBranch(t *testing.T) {
	program := mustParse(t, "10 IF 1 THEN 30\n30 END")
	if got := FormatStatement(program.Lines[0].Statements[0]); got != "IF 1 THEN 30" {
		t.Errorf("expected the bare line form back, got %q", got)
	}
}
