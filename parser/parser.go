package parser

import (
	"fmt"
)

// lineRef records a branch reference to a line number or LABEL alias so
// unresolved targets can be reported once the whole program is parsed.
type lineRef struct {
	number uint16
	label  string
	pos    Position
}

// Parser parses a tokenized BASIC program into a line/statement AST.
// Statements are parsed by recursive descent; expressions by precedence
// climbing. The first syntactic mismatch aborts parsing.
type Parser struct {
	src          *Source
	tokens       []Token
	pos          int
	currentToken Token
	peekToken    Token
	errors       *ErrorList
	symbols      *SymbolTable

	lastLineNumber uint16
	haveLine       bool
	pendingAliases []Token // unnumbered LABEL names waiting for the next numbered line
	lineRefs       []lineRef
}

// NewParser creates a new parser over a normalized source
func NewParser(src *Source) *Parser {
	lexer := NewLexer(src)

	p := &Parser{
		src:     src,
		errors:  &ErrorList{},
		symbols: NewSymbolTable(),
	}

	p.tokens = lexer.TokenizeAll()

	// Merge lexer errors; the driver treats the first one as fatal
	for _, err := range lexer.Errors().Errors {
		p.errors.AddError(err)
	}

	// Initialize current and peek tokens
	p.nextToken()
	p.nextToken()

	return p
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
	} else {
		p.peekToken = Token{Type: TokenEOF, Pos: p.currentToken.Pos}
	}
}

// Errors returns the accumulated diagnostics
func (p *Parser) Errors() *ErrorList {
	return p.errors
}

// Symbols returns the symbol table populated during parsing
func (p *Parser) Symbols() *SymbolTable {
	return p.symbols
}

func (p *Parser) syntaxError(expected string) *Error {
	got := p.currentToken.Literal
	if p.currentToken.Type == TokenEOL {
		got = "end of line"
	} else if p.currentToken.Type == TokenEOF {
		got = "end of file"
	}
	return NewErrorWithContext(p.currentToken.Pos, ErrorSyntax,
		fmt.Sprintf("expected %s, got %q", expected, got),
		p.src.Line(p.currentToken.Pos.Line))
}

// Parse parses the entire program. On the first error it stops and the
// returned program must be discarded.
func (p *Parser) Parse() (*Program, error) {
	program := &Program{
		Symbols: p.symbols,
		Source:  p.src,
	}

	if p.errors.HasErrors() {
		return nil, p.errors.First()
	}

	for p.currentToken.Type != TokenEOF {
		if p.currentToken.Type == TokenEOL {
			p.nextToken()
			continue
		}

		line, err := p.parseLine()
		if err != nil {
			if e, ok := err.(*Error); ok {
				p.errors.AddError(e)
			}
			return nil, err
		}
		if line != nil {
			program.Lines = append(program.Lines, line)
		}
	}

	if len(p.pendingAliases) > 0 {
		tok := p.pendingAliases[0]
		err := NewError(tok.Pos, ErrorSyntax,
			fmt.Sprintf("label %s is not followed by a numbered line", CanonicalName(tok.Literal)))
		p.errors.AddError(err)
		return nil, err
	}

	if err := p.resolveLineRefs(); err != nil {
		p.errors.AddError(err)
		return nil, err
	}

	return program, nil
}

// resolveLineRefs verifies every GOTO/GOSUB/THEN target against the
// collected line-number set
func (p *Parser) resolveLineRefs() *Error {
	for _, ref := range p.lineRefs {
		if ref.label != "" {
			if _, ok := p.symbols.Alias(ref.label); !ok {
				return NewError(ref.pos, ErrorUnresolvedLabel,
					fmt.Sprintf("no LABEL named %s", ref.label))
			}
			continue
		}
		if _, ok := p.symbols.Line(ref.number); !ok {
			return NewError(ref.pos, ErrorUnresolvedLabel,
				fmt.Sprintf("no line %d", ref.number))
		}
	}
	return nil
}

// parseLine parses one source line: a leading line number (or a bare
// LABEL) followed by colon-separated statements up to the line end.
func (p *Parser) parseLine() (*Line, error) {
	pos := p.currentToken.Pos

	if p.currentToken.Type != TokenInteger {
		// Only a bare LABEL is permitted without a line number; it
		// inherits the position of the next numbered line.
		if p.currentToken.IsKeyword("LABEL") && p.peekToken.Type == TokenIdentifier {
			p.nextToken()
			p.pendingAliases = append(p.pendingAliases, p.currentToken)
			p.nextToken()
			return nil, p.expectEndOfLine()
		}
		if p.currentToken.Type == TokenIdentifier && p.peekToken.Type == TokenColon {
			p.pendingAliases = append(p.pendingAliases, p.currentToken)
			p.nextToken()
			p.nextToken()
			return nil, p.expectEndOfLine()
		}
		return nil, p.syntaxError("line number")
	}

	number := uint16(p.currentToken.IntVal)
	if p.currentToken.IntVal < 0 {
		return nil, NewError(pos, ErrorRange, fmt.Sprintf("line number %s out of range", p.currentToken.Literal))
	}
	if p.haveLine && number <= p.lastLineNumber {
		return nil, NewError(pos, ErrorSyntax,
			fmt.Sprintf("line number %d is not greater than %d", number, p.lastLineNumber))
	}
	p.lastLineNumber = number
	p.haveLine = true
	p.nextToken()

	p.symbols.DefineLine(number, pos)
	for _, tok := range p.pendingAliases {
		if err := p.symbols.DefineAlias(tok.Literal, number, tok.Pos); err != nil {
			return nil, err
		}
	}
	p.pendingAliases = p.pendingAliases[:0]

	line := &Line{
		Number:  number,
		Pos:     pos,
		RawLine: p.src.Line(pos.Line),
	}

	stmts, err := p.parseStatements(false)
	if err != nil {
		return nil, err
	}
	line.Statements = stmts

	for _, st := range line.Statements {
		if lbl, ok := st.(*LabelStmt); ok {
			if err := p.symbols.DefineAlias(lbl.Name, number, lbl.Pos); err != nil {
				return nil, err
			}
		}
	}

	return line, p.expectEndOfLine()
}

func (p *Parser) expectEndOfLine() error {
	switch p.currentToken.Type {
	case TokenEOL:
		p.nextToken()
		return nil
	case TokenEOF:
		return nil
	default:
		return p.syntaxError("end of line")
	}
}

// parseStatements parses a colon-separated statement sequence. With
// stopAtElse it ends before an ELSE keyword so IF branches can share it.
func (p *Parser) parseStatements(stopAtElse bool) ([]Statement, error) {
	var stmts []Statement

	for {
		if p.currentToken.Type == TokenEOL || p.currentToken.Type == TokenEOF {
			return stmts, nil
		}
		if stopAtElse && p.currentToken.IsKeyword("ELSE") {
			return stmts, nil
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		for p.currentToken.Type == TokenColon {
			p.nextToken()
		}
	}
}

// parseStatement parses a single statement
func (p *Parser) parseStatement() (Statement, error) {
	tok := p.currentToken

	switch tok.Type {
	case TokenRemark:
		p.nextToken()
		return &RemarkStmt{Text: tok.StrVal, Pos: tok.Pos}, nil

	case TokenIdentifier:
		// ident ':' at start-of-statement is a LABEL; anything else is an
		// implicit LET.
		if p.peekToken.Type == TokenColon {
			p.nextToken()
			p.nextToken()
			return &LabelStmt{Name: CanonicalName(tok.Literal), Pos: tok.Pos}, nil
		}
		return p.parseLet(false)

	case TokenKeyword:
		if IsUnsupportedKeyword(tok.Keyword) {
			return nil, NewErrorWithContext(tok.Pos, ErrorUnsupported,
				fmt.Sprintf("%s is not part of the compiled subset", tok.Keyword),
				p.src.Line(tok.Pos.Line))
		}
		return p.parseKeywordStatement()
	}

	return nil, p.syntaxError("statement")
}

func (p *Parser) parseKeywordStatement() (Statement, error) {
	tok := p.currentToken

	switch tok.Keyword {
	case "LET":
		p.nextToken()
		return p.parseLet(true)
	case "PRINT":
		return p.parsePrint()
	case "INPUT":
		return p.parseInput()
	case "IF":
		return p.parseIf()
	case "FOR":
		return p.parseFor()
	case "NEXT":
		return p.parseNext()
	case "WHILE":
		p.nextToken()
		cond, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Pos: tok.Pos}, nil
	case "WEND":
		p.nextToken()
		return &WendStmt{Pos: tok.Pos}, nil
	case "GOTO":
		p.nextToken()
		return p.parseBranchTarget(tok.Pos, false)
	case "GOSUB":
		p.nextToken()
		return p.parseBranchTarget(tok.Pos, true)
	case "RETURN":
		p.nextToken()
		return &ReturnStmt{Pos: tok.Pos}, nil
	case "END":
		p.nextToken()
		return &EndStmt{Pos: tok.Pos}, nil
	case "CLS":
		p.nextToken()
		return &ClsStmt{Pos: tok.Pos}, nil
	case "MODE":
		p.nextToken()
		arg, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		return &ModeStmt{Mode: arg, Pos: tok.Pos}, nil
	case "PEN":
		p.nextToken()
		arg, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		return &PenStmt{Pen: arg, Pos: tok.Pos}, nil
	case "PAPER":
		p.nextToken()
		arg, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		return &PaperStmt{Paper: arg, Pos: tok.Pos}, nil
	case "LOCATE":
		p.nextToken()
		col, row, err := p.parseExpressionPair()
		if err != nil {
			return nil, err
		}
		return &LocateStmt{Col: col, Row: row, Pos: tok.Pos}, nil
	case "PLOT":
		p.nextToken()
		x, y, err := p.parseExpressionPair()
		if err != nil {
			return nil, err
		}
		return &PlotStmt{X: x, Y: y, Pos: tok.Pos}, nil
	case "DRAW":
		p.nextToken()
		x, y, err := p.parseExpressionPair()
		if err != nil {
			return nil, err
		}
		return &DrawStmt{X: x, Y: y, Pos: tok.Pos}, nil
	case "POKE":
		p.nextToken()
		addr, value, err := p.parseExpressionPair()
		if err != nil {
			return nil, err
		}
		return &PokeStmt{Addr: addr, Value: value, Pos: tok.Pos}, nil
	case "CALL":
		p.nextToken()
		addr, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		if p.currentToken.Type == TokenComma {
			return nil, NewError(p.currentToken.Pos, ErrorUnsupported,
				"CALL with parameters is not part of the compiled subset")
		}
		return &CallStmt{Addr: addr, Pos: tok.Pos}, nil
	case "SYMBOL":
		return p.parseSymbol()
	case "DIM":
		return p.parseDim()
	case "DATA":
		return p.parseData()
	case "READ":
		return p.parseRead()
	case "RESTORE":
		p.nextToken()
		if p.currentToken.Type == TokenInteger {
			n := uint16(p.currentToken.IntVal)
			p.lineRefs = append(p.lineRefs, lineRef{number: n, pos: p.currentToken.Pos})
			p.nextToken()
			return &RestoreStmt{Line: n, HasLine: true, Pos: tok.Pos}, nil
		}
		return &RestoreStmt{Pos: tok.Pos}, nil
	case "LABEL":
		p.nextToken()
		if p.currentToken.Type != TokenIdentifier {
			return nil, p.syntaxError("label name")
		}
		name := CanonicalName(p.currentToken.Literal)
		pos := tok.Pos
		p.nextToken()
		return &LabelStmt{Name: name, Pos: pos}, nil
	}

	return nil, NewErrorWithContext(tok.Pos, ErrorSyntax,
		fmt.Sprintf("%s cannot start a statement", tok.Keyword),
		p.src.Line(tok.Pos.Line))
}

// parseLet parses an assignment; explicit marks the LET-keyword form
func (p *Parser) parseLet(explicit bool) (Statement, error) {
	if p.currentToken.Type != TokenIdentifier {
		return nil, p.syntaxError("variable name")
	}

	name := p.currentToken
	pos := name.Pos
	p.nextToken()

	var target Expression
	if p.currentToken.Type == TokenLParen {
		p.nextToken()
		index, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		if p.currentToken.Type != TokenRParen {
			return nil, p.syntaxError(")")
		}
		p.nextToken()
		if _, err := p.touchArray(name); err != nil {
			return nil, err
		}
		target = &ArrayRef{Name: name.Literal, Index: index, Pos: pos}
	} else {
		if _, err := p.symbols.TouchVariable(name.Literal, pos); err != nil {
			return nil, err
		}
		target = &VarRef{Name: name.Literal, Pos: pos}
	}

	if p.currentToken.Type != TokenEqual {
		if explicit {
			return nil, p.syntaxError("=")
		}
		return nil, p.syntaxError("= or :")
	}
	p.nextToken()

	value, err := p.parseExpression(1)
	if err != nil {
		return nil, err
	}

	return &LetStmt{Target: target, Value: value, Pos: pos}, nil
}

func (p *Parser) touchArray(name Token) (*Variable, *Error) {
	v, ok := p.symbols.Variable(name.Literal)
	if !ok || !v.IsArray {
		return nil, NewError(name.Pos, ErrorSyntax,
			fmt.Sprintf("%s is not a dimensioned array", CanonicalName(name.Literal)))
	}
	if SuffixType(CanonicalName(name.Literal)) != v.Type {
		return nil, NewError(name.Pos, ErrorType,
			fmt.Sprintf("%s is %s (dimensioned at %s)", v.Name, v.Type, v.Pos))
	}
	return v, nil
}

func (p *Parser) parsePrint() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	stmt := &PrintStmt{Pos: pos}

	for {
		switch p.currentToken.Type {
		case TokenEOL, TokenEOF, TokenColon:
			return stmt, nil
		case TokenKeyword:
			if p.currentToken.Keyword == "ELSE" {
				return stmt, nil
			}
		}

		expr, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}

		item := PrintItem{Expr: expr}
		if p.currentToken.Type == TokenSemicolon {
			item.Sep = ';'
			p.nextToken()
		} else if p.currentToken.Type == TokenComma {
			item.Sep = ','
			p.nextToken()
		}
		stmt.Items = append(stmt.Items, item)

		if item.Sep == 0 {
			return stmt, nil
		}
	}
}

func (p *Parser) parseInput() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	stmt := &InputStmt{Pos: pos}

	if p.currentToken.Type == TokenString {
		stmt.Prompt = p.currentToken.StrVal
		p.nextToken()
		if p.currentToken.Type != TokenSemicolon && p.currentToken.Type != TokenComma {
			return nil, p.syntaxError("; after INPUT prompt")
		}
		p.nextToken()
	}

	for {
		if p.currentToken.Type != TokenIdentifier {
			return nil, p.syntaxError("variable name")
		}
		if _, err := p.symbols.TouchVariable(p.currentToken.Literal, p.currentToken.Pos); err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, &VarRef{Name: p.currentToken.Literal, Pos: p.currentToken.Pos})
		p.nextToken()

		if p.currentToken.Type != TokenComma {
			return stmt, nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseIf() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	cond, err := p.parseExpression(1)
	if err != nil {
		return nil, err
	}

	if !p.currentToken.IsKeyword("THEN") {
		return nil, p.syntaxError("THEN")
	}
	p.nextToken()

	stmt := &IfStmt{Cond: cond, Pos: pos}

	stmt.Then, err = p.parseBranchBody()
	if err != nil {
		return nil, err
	}

	if p.currentToken.IsKeyword("ELSE") {
		p.nextToken()
		stmt.Else, err = p.parseBranchBody()
		if err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// parseBranchBody parses a THEN or ELSE branch: a bare integer becomes
// an implicit GOTO, anything else is a statement sequence.
func (p *Parser) parseBranchBody() ([]Statement, error) {
	if p.currentToken.Type == TokenInteger {
		n := uint16(p.currentToken.IntVal)
		pos := p.currentToken.Pos
		p.lineRefs = append(p.lineRefs, lineRef{number: n, pos: pos})
		p.nextToken()
		return []Statement{&GotoStmt{Line: n, Pos: pos}}, nil
	}

	stmts, err := p.parseStatements(true)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, p.syntaxError("statement or line number")
	}
	return stmts, nil
}

func (p *Parser) parseFor() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	if p.currentToken.Type != TokenIdentifier {
		return nil, p.syntaxError("loop variable")
	}
	v, err := p.symbols.TouchVariable(p.currentToken.Literal, p.currentToken.Pos)
	if err != nil {
		return nil, err
	}
	if v.Type == TypeString {
		return nil, NewError(p.currentToken.Pos, ErrorType, "FOR index cannot be a string")
	}
	index := &VarRef{Name: p.currentToken.Literal, Pos: p.currentToken.Pos}
	p.nextToken()

	if p.currentToken.Type != TokenEqual {
		return nil, p.syntaxError("=")
	}
	p.nextToken()

	from, err2 := p.parseExpression(1)
	if err2 != nil {
		return nil, err2
	}

	if !p.currentToken.IsKeyword("TO") {
		return nil, p.syntaxError("TO")
	}
	p.nextToken()

	to, err2 := p.parseExpression(1)
	if err2 != nil {
		return nil, err2
	}

	stmt := &ForStmt{Var: index, From: from, To: to, Pos: pos}

	if p.currentToken.IsKeyword("STEP") {
		p.nextToken()
		stmt.Step, err2 = p.parseExpression(1)
		if err2 != nil {
			return nil, err2
		}
	}

	return stmt, nil
}

func (p *Parser) parseNext() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	stmt := &NextStmt{Pos: pos}
	if p.currentToken.Type == TokenIdentifier {
		if _, err := p.symbols.TouchVariable(p.currentToken.Literal, p.currentToken.Pos); err != nil {
			return nil, err
		}
		stmt.Var = &VarRef{Name: p.currentToken.Literal, Pos: p.currentToken.Pos}
		p.nextToken()
	}
	return stmt, nil
}

// parseBranchTarget parses the target of GOTO or GOSUB: a line number or
// a LABEL alias
func (p *Parser) parseBranchTarget(pos Position, gosub bool) (Statement, error) {
	switch p.currentToken.Type {
	case TokenInteger:
		n := uint16(p.currentToken.IntVal)
		p.lineRefs = append(p.lineRefs, lineRef{number: n, pos: p.currentToken.Pos})
		p.nextToken()
		if gosub {
			return &GosubStmt{Line: n, Pos: pos}, nil
		}
		return &GotoStmt{Line: n, Pos: pos}, nil

	case TokenIdentifier:
		name := CanonicalName(p.currentToken.Literal)
		p.lineRefs = append(p.lineRefs, lineRef{label: name, pos: p.currentToken.Pos})
		p.nextToken()
		if gosub {
			return &GosubStmt{Label: name, Pos: pos}, nil
		}
		return &GotoStmt{Label: name, Pos: pos}, nil
	}

	return nil, p.syntaxError("line number or label")
}

func (p *Parser) parseSymbol() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	if p.currentToken.IsKeyword("AFTER") {
		p.nextToken()
		first, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		return &SymbolAfterStmt{First: first, Pos: pos}, nil
	}

	char, err := p.parseExpression(1)
	if err != nil {
		return nil, err
	}

	stmt := &SymbolStmt{Char: char, Pos: pos}
	for p.currentToken.Type == TokenComma {
		p.nextToken()
		row, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
	}

	if len(stmt.Rows) == 0 || len(stmt.Rows) > 8 {
		return nil, NewError(pos, ErrorSyntax,
			fmt.Sprintf("SYMBOL takes 1 to 8 matrix rows, got %d", len(stmt.Rows)))
	}

	return stmt, nil
}

func (p *Parser) parseDim() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	if p.currentToken.Type != TokenIdentifier {
		return nil, p.syntaxError("array name")
	}
	name := p.currentToken
	if SuffixType(CanonicalName(name.Literal)) == TypeString {
		return nil, NewError(name.Pos, ErrorUnsupported, "string arrays are not part of the compiled subset")
	}
	p.nextToken()

	if p.currentToken.Type != TokenLParen {
		return nil, p.syntaxError("(")
	}
	p.nextToken()

	if p.currentToken.Type != TokenInteger {
		return nil, NewError(p.currentToken.Pos, ErrorUnsupported,
			"DIM bounds must be integer constants")
	}
	bound := p.currentToken.IntVal
	if bound < 0 {
		return nil, NewError(p.currentToken.Pos, ErrorRange, "negative array bound")
	}
	p.nextToken()

	if p.currentToken.Type == TokenComma {
		return nil, NewError(p.currentToken.Pos, ErrorUnsupported,
			"multi-dimensional arrays are not part of the compiled subset")
	}
	if p.currentToken.Type != TokenRParen {
		return nil, p.syntaxError(")")
	}
	p.nextToken()

	if err := p.symbols.DeclareArray(name.Literal, bound, name.Pos); err != nil {
		return nil, err
	}

	return &DimStmt{Name: CanonicalName(name.Literal), Bound: bound, Pos: pos}, nil
}

// parseData collects the constants of a DATA statement. Items are
// reassembled from token spellings so both quoted strings and unquoted
// words or numbers survive.
func (p *Parser) parseData() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	stmt := &DataStmt{Pos: pos}
	item := ""

	flush := func() {
		stmt.Items = append(stmt.Items, item)
		item = ""
	}

	for {
		switch p.currentToken.Type {
		case TokenEOL, TokenEOF:
			flush()
			return stmt, nil
		case TokenColon:
			flush()
			return stmt, nil
		case TokenComma:
			flush()
			p.nextToken()
		case TokenString:
			item += p.currentToken.StrVal
			p.nextToken()
		default:
			item += p.currentToken.Literal
			p.nextToken()
		}
	}
}

func (p *Parser) parseRead() (Statement, error) {
	pos := p.currentToken.Pos
	p.nextToken()

	stmt := &ReadStmt{Pos: pos}
	for {
		if p.currentToken.Type != TokenIdentifier {
			return nil, p.syntaxError("variable name")
		}
		if _, err := p.symbols.TouchVariable(p.currentToken.Literal, p.currentToken.Pos); err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, &VarRef{Name: p.currentToken.Literal, Pos: p.currentToken.Pos})
		p.nextToken()

		if p.currentToken.Type != TokenComma {
			return stmt, nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseExpressionPair() (Expression, Expression, error) {
	first, err := p.parseExpression(1)
	if err != nil {
		return nil, nil, err
	}
	if p.currentToken.Type != TokenComma {
		return nil, nil, p.syntaxError(",")
	}
	p.nextToken()
	second, err := p.parseExpression(1)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

// ----------------------------------------------------------------------------
// Expressions: precedence climbing

// operatorPrecedence returns the binding power of a binary operator.
// Zero means the token is not a binary operator. Unary NOT sits between
// AND and the comparisons; unary minus between * / and power.
func (p *Parser) operatorPrecedence(tok Token) (string, int) {
	switch tok.Type {
	case TokenKeyword:
		switch tok.Keyword {
		case "XOR":
			return "XOR", 1
		case "OR":
			return "OR", 2
		case "AND":
			return "AND", 3
		case "MOD":
			return "MOD", 7
		}
	case TokenEqual:
		return "=", 5
	case TokenNotEqual:
		return "<>", 5
	case TokenLess:
		return "<", 5
	case TokenLessEq:
		return "<=", 5
	case TokenGreater:
		return ">", 5
	case TokenGreaterEq:
		return ">=", 5
	case TokenPlus:
		return "+", 6
	case TokenMinus:
		return "-", 6
	case TokenStar:
		return "*", 8
	case TokenSlash:
		return "/", 8
	case TokenCaret:
		return "^", 10
	}
	return "", 0
}

const (
	precNot      = 4
	precUnaryNeg = 9
)

// parseExpression parses an expression with precedence climbing
func (p *Parser) parseExpression(minPrecedence int) (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, precedence := p.operatorPrecedence(p.currentToken)
		if precedence == 0 || precedence < minPrecedence {
			return left, nil
		}

		pos := p.currentToken.Pos
		p.nextToken()

		// ^ is right-associative; everything else associates left
		next := precedence + 1
		if op == "^" {
			next = precedence
		}

		right, err := p.parseExpression(next)
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}
	}
}

func (p *Parser) parseUnary() (Expression, error) {
	tok := p.currentToken

	if tok.IsKeyword("NOT") {
		p.nextToken()
		operand, err := p.parseExpression(precNot + 1)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "NOT", Operand: operand, Pos: tok.Pos}, nil
	}

	if tok.Type == TokenMinus {
		p.nextToken()
		operand, err := p.parseExpression(precUnaryNeg + 1)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Operand: operand, Pos: tok.Pos}, nil
	}

	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expression, error) {
	tok := p.currentToken

	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		return &IntLit{Value: tok.IntVal, Pos: tok.Pos}, nil

	case TokenReal:
		p.nextToken()
		return &RealLit{Value: tok.RealVal, Pos: tok.Pos}, nil

	case TokenString:
		p.nextToken()
		return &StrLit{Value: tok.StrVal, Pos: tok.Pos}, nil

	case TokenLParen:
		p.nextToken()
		inner, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		if p.currentToken.Type != TokenRParen {
			return nil, p.syntaxError(")")
		}
		p.nextToken()
		return &GroupExpr{Inner: inner, Pos: tok.Pos}, nil

	case TokenIdentifier:
		p.nextToken()
		if p.currentToken.Type == TokenLParen {
			p.nextToken()
			index, err := p.parseExpression(1)
			if err != nil {
				return nil, err
			}
			if p.currentToken.Type != TokenRParen {
				return nil, p.syntaxError(")")
			}
			p.nextToken()
			if _, err := p.touchArray(tok); err != nil {
				return nil, err
			}
			return &ArrayRef{Name: tok.Literal, Index: index, Pos: tok.Pos}, nil
		}
		if _, err := p.symbols.TouchVariable(tok.Literal, tok.Pos); err != nil {
			return nil, err
		}
		return &VarRef{Name: tok.Literal, Pos: tok.Pos}, nil

	case TokenKeyword:
		if fn, ok := LookupBuiltin(tok.Keyword); ok {
			return p.parseCall(fn)
		}
		if IsUnsupportedKeyword(tok.Keyword) {
			return nil, NewErrorWithContext(tok.Pos, ErrorUnsupported,
				fmt.Sprintf("%s is not part of the compiled subset", tok.Keyword),
				p.src.Line(tok.Pos.Line))
		}
	}

	return nil, p.syntaxError("expression")
}

func (p *Parser) parseCall(fn Builtin) (Expression, error) {
	tok := p.currentToken
	p.nextToken()

	call := &CallExpr{Func: fn, Pos: tok.Pos}

	if fn.MaxArgs == 0 {
		// INKEY$ takes no argument list
		return call, nil
	}

	if p.currentToken.Type != TokenLParen {
		return nil, p.syntaxError("(")
	}
	p.nextToken()

	for {
		arg, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		if p.currentToken.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}

	if p.currentToken.Type != TokenRParen {
		return nil, p.syntaxError(")")
	}
	p.nextToken()

	if len(call.Args) < fn.MinArgs || len(call.Args) > fn.MaxArgs {
		return nil, NewError(tok.Pos, ErrorSyntax,
			fmt.Sprintf("%s takes %d to %d arguments, got %d", fn.Name, fn.MinArgs, fn.MaxArgs, len(call.Args)))
	}

	return call, nil
}
