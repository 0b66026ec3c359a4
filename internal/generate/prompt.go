package generate

import (
	"fmt"
	"path/filepath"
	"strings"
)

var fenceLanguage = map[string]string{
	".py": "python",
	".go": "go",
	".js": "javascript",
	".ts": "typescript",
	".rs": "rust",
	".sh": "bash",
}

// NumberLines prefixes each line with its 1-based number, e.g. "3: x = 1".
func NumberLines(content string) string {
	if content == "" {
		return ""
	}
	lines := strings.SplitAfter(content, "\n")
	var b strings.Builder
	for i, line := range lines {
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "%d: %s", i+1, line)
	}
	return b.String()
}

// SystemPrompt builds the instructions for one candidate of req.
func SystemPrompt(req Request) string {
	lang := fenceLanguage[strings.ToLower(filepath.Ext(req.TargetPath))]

	content := NumberLines(req.Current)
	if !req.Exists {
		content = "(new file)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s coding agent.\n\n", languageTitle(lang))
	b.WriteString("CONTEXT:\n")
	fmt.Fprintf(&b, "File: %s\n", req.TargetPath)
	fmt.Fprintf(&b, "Content:\n%s\n\n", content)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Write the FULL new content of the file.\n")
	b.WriteString("2. Write a unit test that exercises your change.\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("- Line numbers above are for reference only; do not include them in your code.\n")
	if hint := testImportHint(req.TargetPath, lang); hint != "" {
		fmt.Fprintf(&b, "- %s\n", hint)
	}
	b.WriteString("\nFORMAT:\n")
	b.WriteString("THOUGHT: <explain your plan>\n")
	fmt.Fprintf(&b, "CODE:\n```%s\n<the full new content of %s>\n```\n", lang, req.TargetPath)
	fmt.Fprintf(&b, "TEST:\n```%s\n<the test code>\n```\n", lang)
	return b.String()
}

func testImportHint(target, lang string) string {
	switch lang {
	case "python":
		module := strings.TrimSuffix(filepath.ToSlash(target), filepath.Ext(target))
		module = strings.ReplaceAll(module, "/", ".")
		return fmt.Sprintf("The test must import from the module like this: `from %s import ...`", module)
	case "go":
		return "The test must be in the same package as the file."
	default:
		return ""
	}
}

func languageTitle(lang string) string {
	switch lang {
	case "":
		return "software"
	case "javascript":
		return "JavaScript"
	case "typescript":
		return "TypeScript"
	default:
		return strings.ToUpper(lang[:1]) + lang[1:]
	}
}
