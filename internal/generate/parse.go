package generate

import (
	"regexp"
	"strings"
)

// Response is a parsed model reply.
type Response struct {
	Thought string
	Code    string
	Test    string
}

var (
	fenceRe   = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \\t]*\\r?\\n(.*?)```")
	sectionRe = regexp.MustCompile(`(?m)^[ \t]*(THOUGHT|CODE|TEST)[ \t]*:`)
)

// ParseResponse extracts the THOUGHT text and the CODE and TEST fenced blocks
// from a reply of the form:
//
//	THOUGHT: <plan>
//	CODE:
//	```python
//	...
//	```
//	TEST:
//	```python
//	...
//	```
//
// A reply without section markers is treated as CODE then TEST fences in
// order. Code is empty when no code block was found.
func ParseResponse(text string) Response {
	var resp Response

	sections := splitSections(text)
	if len(sections) == 0 {
		blocks := fencedBlocks(text)
		if len(blocks) > 0 {
			resp.Code = blocks[0]
		}
		if len(blocks) > 1 {
			resp.Test = blocks[1]
		}
		return resp
	}

	resp.Thought = strings.TrimSpace(firstLineBlock(sections["THOUGHT"]))
	if blocks := fencedBlocks(sections["CODE"]); len(blocks) > 0 {
		resp.Code = blocks[0]
	}
	if blocks := fencedBlocks(sections["TEST"]); len(blocks) > 0 {
		resp.Test = blocks[0]
	}
	return resp
}

// splitSections maps each marker to the text up to the next marker.
func splitSections(text string) map[string]string {
	locs := sectionRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	sections := make(map[string]string, len(locs))
	for i, loc := range locs {
		name := text[loc[2]:loc[3]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, seen := sections[name]; !seen {
			sections[name] = text[loc[1]:end]
		}
	}
	return sections
}

// fencedBlocks returns the bodies of ``` fences in order.
func fencedBlocks(text string) []string {
	matches := fenceRe.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// firstLineBlock drops any fenced code from a THOUGHT section.
func firstLineBlock(s string) string {
	if i := strings.Index(s, "```"); i >= 0 {
		return s[:i]
	}
	return s
}
