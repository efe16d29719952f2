package orchestrator

import "strings"

// Section inspectors used by the context and run tests.

// hasSection reports whether ctx contains a section with identifier.
func hasSection(ctx, identifier string) bool {
	return countSections(ctx, identifier) > 0
}

// countSections returns how many section headers start with identifier.
func countSections(ctx, identifier string) int {
	identifier = asHeader(identifier)
	var fence fenceState
	n := 0
	for _, line := range strings.Split(ctx, "\n") {
		if !fence.open() && strings.HasPrefix(line, identifier) {
			n++
		}
		fence.observe(line)
	}
	return n
}

// sectionContent returns the body of the first section with identifier.
func sectionContent(ctx, identifier string) (string, bool) {
	identifier = asHeader(identifier)
	var fence fenceState
	var body []string
	inSection, found := false, false
	for _, line := range strings.Split(ctx, "\n") {
		if !fence.open() && strings.HasPrefix(line, headerPrefix) {
			if inSection {
				break
			}
			if strings.HasPrefix(line, identifier) {
				inSection, found = true, true
				fence.observe(line)
				continue
			}
		}
		fence.observe(line)
		if inSection {
			body = append(body, line)
		}
	}
	return strings.Trim(strings.Join(body, "\n"), "\n"), found
}
