package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

const (
	languagePython     = "python"
	languageJavaScript = "javascript"
	languageTypeScript = "typescript"
	languageRust       = "rust"
	languageBash       = "bash"
)

// maxDepth bounds recursion on pathological trees.
const maxDepth = 1000

// treeSitterChecker validates source with a tree-sitter grammar. Parsers are
// created per call because a sitter.Parser is not safe for concurrent use.
type treeSitterChecker struct {
	name string
	lang *sitter.Language
}

func newTreeSitterChecker(name string) *treeSitterChecker {
	return &treeSitterChecker{name: name, lang: grammar(name)}
}

func grammar(name string) *sitter.Language {
	switch name {
	case languagePython:
		return python.GetLanguage()
	case languageJavaScript:
		return javascript.GetLanguage()
	case languageTypeScript:
		return typescript.GetLanguage()
	case languageRust:
		return rust.GetLanguage()
	case languageBash:
		return bash.GetLanguage()
	default:
		return nil
	}
}

// Language returns the grammar name.
func (c *treeSitterChecker) Language() string { return c.name }

// Check parses source and reports the first ERROR or MISSING node.
func (c *treeSitterChecker) Check(ctx context.Context, _ string, source []byte) (*Diagnostic, error) {
	if c.lang == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, c.name)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(c.lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	node := firstError(root, 0)
	if node == nil {
		// HasError without a locatable node; report the whole document.
		return &Diagnostic{Line: 1, Column: 1, Message: "syntax error", LineText: lineAt(source, 1)}, nil
	}

	point := node.StartPoint()
	line := int(point.Row) + 1
	return &Diagnostic{
		Line:     line,
		Column:   int(point.Column) + 1,
		Message:  describe(node, source),
		LineText: lineAt(source, line),
	}, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(node *sitter.Node, depth int) *sitter.Node {
	if node == nil || depth > maxDepth {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstError(node.Child(i), depth+1); found != nil {
			return found
		}
	}
	return nil
}

func describe(node *sitter.Node, source []byte) string {
	if node.IsMissing() {
		return fmt.Sprintf("missing %q", node.Type())
	}

	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(source)) {
		end = uint32(len(source))
	}
	if end > start {
		text := string(source[start:end])
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		return fmt.Sprintf("unexpected %q", text)
	}
	return "syntax error"
}
