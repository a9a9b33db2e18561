package codegen

import (
	"github.com/fragarco/basc/parser"
)

// Compile runs the whole pipeline over raw source bytes: reader, lexer,
// parser, symbol table, code generation. On failure the returned error
// is a *parser.Error carrying the source position, except for encoding
// failures in the reader which surface as plain errors.
func Compile(filename string, data []byte, opts Options) (*Result, error) {
	src, err := parser.NewSource(filename, data)
	if err != nil {
		return nil, err
	}

	p := parser.NewParser(src)
	program, err := p.Parse()
	if err != nil {
		return nil, err
	}

	gen := NewGenerator(program, opts)
	result, err := gen.Generate()
	if err != nil {
		return nil, err
	}

	// Warnings collected while parsing ride along with the generator's
	for _, w := range p.Errors().Warnings {
		result.Warnings = append(result.Warnings, w)
	}

	return result, nil
}
