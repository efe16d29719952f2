package orchestrator

import (
	"fmt"
	"sort"
	"strings"
)

// Section headers. A section runs from its header line to the next line
// starting with "### " outside a code fence, or to the end of the context.
const (
	headerPrefix = "### "

	SectionDirectory    = "### Directory Structure"
	SectionReadFiles    = "### Already Read Files"
	SectionWarning      = "### WARNING - APPROACHING ITERATION LIMIT"
	SectionErrorNote    = "### ERROR IN PREVIOUS ITERATION"
	SectionFinal        = "### FINAL ITERATION - IMPLEMENT NOW"
	SectionFileContents = "### File Contents"
	SectionExecutionLog = "### Execution Log"
)

// AddOrReplaceSection removes every section whose header line starts with
// identifier and inserts identifier plus content after the first paragraph
// of ctx. Applying it twice with the same identifier leaves one section.
// Content must not contain unfenced lines starting with "### ".
func AddOrReplaceSection(ctx, identifier, content string) string {
	identifier = asHeader(identifier)
	return insertAfterFirstParagraph(RemoveSection(ctx, identifier), block(identifier, content))
}

// ReplaceSectionAtEnd is AddOrReplaceSection with the new section appended
// at the end of the context.
func ReplaceSectionAtEnd(ctx, identifier, content string) string {
	identifier = asHeader(identifier)
	stripped := strings.TrimRight(RemoveSection(ctx, identifier), "\n")
	if stripped == "" {
		return block(identifier, content)
	}
	return stripped + "\n\n" + block(identifier, content)
}

// RemoveSection deletes every section whose header starts with identifier.
func RemoveSection(ctx, identifier string) string {
	identifier = asHeader(identifier)
	lines := strings.Split(ctx, "\n")
	out := make([]string, 0, len(lines))

	var fence fenceState
	skipping := false
	for _, line := range lines {
		if !fence.open() && strings.HasPrefix(line, headerPrefix) {
			skipping = strings.HasPrefix(line, identifier)
		}
		fence.observe(line)
		if !skipping {
			out = append(out, line)
		}
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// MergeFileContents rebuilds the file contents and execution log sections
// from the full accumulated state. Empty state removes the section.
func MergeFileContents(ctx string, gathered map[string]string, log []string) string {
	if len(gathered) == 0 {
		ctx = RemoveSection(ctx, SectionFileContents)
	} else {
		ctx = ReplaceSectionAtEnd(ctx, SectionFileContents, renderFiles(gathered))
	}
	if len(log) == 0 {
		return RemoveSection(ctx, SectionExecutionLog)
	}
	return ReplaceSectionAtEnd(ctx, SectionExecutionLog, renderLog(log))
}

func renderFiles(gathered map[string]string) string {
	paths := make([]string, 0, len(gathered))
	for p := range gathered {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteString("\n\n")
		}
		content := strings.TrimRight(gathered[p], "\n")
		f := fenceFor(content)
		fmt.Fprintf(&b, "#### %s\n%s\n%s\n%s", p, f, content, f)
	}
	return b.String()
}

func renderLog(log []string) string {
	lines := make([]string, len(log))
	for i, l := range log {
		lines[i] = "- " + l
	}
	return strings.Join(lines, "\n")
}

func block(identifier, content string) string {
	content = strings.Trim(content, "\n")
	if content == "" {
		return identifier
	}
	return identifier + "\n" + content
}

func asHeader(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.HasPrefix(identifier, headerPrefix) {
		return identifier
	}
	return headerPrefix + strings.TrimLeft(identifier, "# ")
}

// insertAfterFirstParagraph places blk after the leading paragraph: the
// text before the first blank line or the first section header.
func insertAfterFirstParagraph(ctx, blk string) string {
	ctx = strings.TrimRight(ctx, "\n")
	if ctx == "" {
		return blk
	}

	lines := strings.Split(ctx, "\n")
	var fence fenceState
	cut := len(lines)
	for i, line := range lines {
		if !fence.open() && (strings.HasPrefix(line, headerPrefix) || strings.TrimSpace(line) == "") {
			cut = i
			break
		}
		fence.observe(line)
	}

	head := strings.TrimRight(strings.Join(lines[:cut], "\n"), "\n")
	tail := strings.TrimLeft(strings.Join(lines[cut:], "\n"), "\n")
	parts := make([]string, 0, 3)
	if head != "" {
		parts = append(parts, head)
	}
	parts = append(parts, blk)
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, "\n\n")
}

// fenceFor returns a backtick fence longer than any backtick run in content.
func fenceFor(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	n := 3
	if longest >= n {
		n = longest + 1
	}
	return strings.Repeat("`", n)
}

// fenceState tracks whether a scan is inside a fenced code block.
type fenceState struct {
	marker byte
	length int
}

func (f *fenceState) open() bool {
	return f.length > 0
}

func (f *fenceState) observe(line string) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 3 {
		return
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return
	}
	if !f.open() {
		f.marker, f.length = c, n
		return
	}
	// A closing fence is only the marker, at least as long as the opener.
	if c == f.marker && n >= f.length && n == len(trimmed) {
		f.marker, f.length = 0, 0
	}
}
