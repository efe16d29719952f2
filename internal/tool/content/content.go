// Package content holds pure helpers for inspecting file content.
package content

// binarySample is how many leading bytes are scanned for NUL, as git does.
const binarySample = 8000

// IsBinary reports whether data looks like a binary file: a NUL byte in the
// first binarySample bytes. UTF-16 and UTF-32 byte order marks mark text.
func IsBinary(data []byte) bool {
	if hasWideBOM(data) {
		return false
	}
	n := min(len(data), binarySample)
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

func hasWideBOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// UTF-16 LE/BE; the UTF-32 LE mark starts with the UTF-16 LE one.
	if (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF) {
		return true
	}
	return len(data) >= 4 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0xFE && data[3] == 0xFF
}

// SplitLines splits s on \n and \r\n. A trailing line ending does not
// produce a final empty line.
func SplitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n':
			lines = append(lines, s[start:i])
			start = i + 2
			i++
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
