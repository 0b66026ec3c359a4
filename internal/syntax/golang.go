package syntax

import (
	"context"
	"errors"
	"go/parser"
	"go/scanner"
	"go/token"
)

// GoChecker validates Go source with the standard Go parser, which is the
// reference grammar for the language and reports exact positions.
type GoChecker struct{}

// Language returns "go".
func (GoChecker) Language() string { return "go" }

// Check parses source as a Go file.
func (GoChecker) Check(ctx context.Context, filename string, source []byte) (*Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, filename, source, parser.AllErrors)
	if err == nil {
		return nil, nil
	}

	var list scanner.ErrorList
	if !errors.As(err, &list) || len(list) == 0 {
		return nil, err
	}
	list.Sort()
	first := list[0]
	return &Diagnostic{
		Line:     first.Pos.Line,
		Column:   first.Pos.Column,
		Message:  first.Msg,
		LineText: lineAt(source, first.Pos.Line),
	}, nil
}
