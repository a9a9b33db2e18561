package parser

import "sort"

// The compiler understands a fixed subset of the Locomotive BASIC
// vocabulary. Keywords outside the subset are still recognized by the
// lexer so the parser can report them as unsupported instead of
// mis-reading them as variables.

// keywords is the alphabetized table of supported keywords. The lexer
// reads a maximal identifier first and then matches against this table,
// so FORTUNE stays an identifier instead of FOR followed by TUNE.
var keywords = []string{
	"ABS", "AFTER", "AND", "ASC",
	"CALL", "CHR$", "CLS",
	"DATA", "DIM", "DRAW",
	"ELSE", "END",
	"FOR",
	"GOSUB", "GOTO",
	"HEX$",
	"IF", "INKEY$", "INPUT", "INT",
	"LABEL", "LEFT$", "LEN", "LET", "LOCATE",
	"MID$", "MOD", "MODE",
	"NEXT", "NOT",
	"OR",
	"PAPER", "PEEK", "PEN", "PLOT", "POKE", "PRINT",
	"READ", "REM", "RESTORE", "RETURN", "RIGHT$",
	"STEP", "STR$", "SYMBOL",
	"THEN", "TO",
	"VAL",
	"WEND", "WHILE",
	"XOR",
}

// unsupportedKeywords lists Locomotive BASIC vocabulary outside the
// compiled subset. The parser reports these with a dedicated diagnostic
// rather than treating them as variable names.
var unsupportedKeywords = []string{
	"ATN", "AUTO",
	"BIN$", "BORDER",
	"CAT", "CHAIN", "CINT", "CLEAR", "CLG", "CLOSEIN", "CLOSEOUT",
	"CONT", "COPYCHR$", "COS", "CREAL", "CURSOR",
	"DEC$", "DEF", "DEFINT", "DEFREAL", "DEFSTR", "DEG", "DELETE",
	"DERR", "DI", "DRAWR",
	"EDIT", "EI", "ENT", "ENV", "EOF", "ERASE", "ERL", "ERR", "ERROR",
	"EVERY", "EXP",
	"FILL", "FIX", "FN", "FRAME", "FRE",
	"GRAPHICS",
	"HIMEM",
	"INK", "INP", "INSTR",
	"JOY",
	"KEY",
	"LINE", "LIST", "LOAD", "LOG", "LOG10", "LOWER$",
	"MASK", "MAX", "MEMORY", "MERGE", "MIN", "MOVE", "MOVER",
	"NEW",
	"ON", "OPENIN", "OPENOUT", "ORIGIN", "OUT",
	"PI", "PLOTR", "POS",
	"RAD", "RANDOMIZE", "RELEASE", "REMAIN", "RENUM", "RESUME",
	"RND", "ROUND", "RUN",
	"SAVE", "SGN", "SIN", "SOUND", "SPACE$", "SPC", "SPEED", "SQ",
	"SQR", "STOP", "STRING$", "SWAP",
	"TAB", "TAG", "TAGOFF", "TAN", "TEST", "TESTR", "TIME", "TRON",
	"TROFF",
	"UNT", "UPPER$", "USING",
	"VPOS",
	"WAIT", "WIDTH", "WINDOW", "WRITE",
	"XPOS",
	"YPOS",
	"ZONE",
}

var (
	keywordSet     map[string]bool
	unsupportedSet map[string]bool
)

func init() {
	if !sort.StringsAreSorted(keywords) {
		panic("keyword table is not alphabetized")
	}

	keywordSet = make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		keywordSet[kw] = true
	}

	unsupportedSet = make(map[string]bool, len(unsupportedKeywords))
	for _, kw := range unsupportedKeywords {
		unsupportedSet[kw] = true
	}
}

// IsKeywordName reports whether the canonical uppercase name is a
// supported keyword
func IsKeywordName(name string) bool {
	return keywordSet[name]
}

// IsUnsupportedKeyword reports whether the canonical uppercase name is
// Locomotive BASIC vocabulary outside the compiled subset
func IsUnsupportedKeyword(name string) bool {
	return unsupportedSet[name]
}

// Builtin functions usable in expressions, with their argument count and
// result type. MID$ takes 2 or 3 arguments; MinArgs covers the short form.
type Builtin struct {
	Name    string
	MinArgs int
	MaxArgs int
	Result  ValueType
}

var builtins = map[string]Builtin{
	"ABS":    {Name: "ABS", MinArgs: 1, MaxArgs: 1, Result: TypeInteger},
	"ASC":    {Name: "ASC", MinArgs: 1, MaxArgs: 1, Result: TypeInteger},
	"CHR$":   {Name: "CHR$", MinArgs: 1, MaxArgs: 1, Result: TypeString},
	"HEX$":   {Name: "HEX$", MinArgs: 1, MaxArgs: 1, Result: TypeString},
	"INKEY$": {Name: "INKEY$", MinArgs: 0, MaxArgs: 0, Result: TypeString},
	"INT":    {Name: "INT", MinArgs: 1, MaxArgs: 1, Result: TypeInteger},
	"LEFT$":  {Name: "LEFT$", MinArgs: 2, MaxArgs: 2, Result: TypeString},
	"LEN":    {Name: "LEN", MinArgs: 1, MaxArgs: 1, Result: TypeInteger},
	"MID$":   {Name: "MID$", MinArgs: 2, MaxArgs: 3, Result: TypeString},
	"PEEK":   {Name: "PEEK", MinArgs: 1, MaxArgs: 1, Result: TypeInteger},
	"RIGHT$": {Name: "RIGHT$", MinArgs: 2, MaxArgs: 2, Result: TypeString},
	"STR$":   {Name: "STR$", MinArgs: 1, MaxArgs: 1, Result: TypeString},
	"VAL":    {Name: "VAL", MinArgs: 1, MaxArgs: 1, Result: TypeInteger},
}

// LookupBuiltin returns the builtin function for a canonical keyword name
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}
