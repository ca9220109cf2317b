// Package scanner reads one source file, strips an optional metadata
// header, classifies the leading lines, and produces a compile-ready
// unit plus the line offset needed to map compiler diagnostics back to
// the original file.
package scanner

import (
	"fmt"
	"os"
	"strings"
)

// Directive tags, recognized only at column zero among a file's
// leading non-code lines.
const (
	includeTag = "//#include"
	importTag  = "//#import"
)

// Metadata block markers. The block is not valid Go, so its presence
// forces the file to be rewritten before compilation.
const (
	metaOpen  = "::{"
	metaClose = "}::"
)

// Resolver turns a directive's raw target into a usable path or
// library reference. Implemented by resolver.IncludeResolver and
// resolver.ImportResolver.
type Resolver interface {
	Resolve(target string) string
}

// Scan reads the file at path and classifies its leading lines.
// Include targets are resolved through inc, import targets through
// imp. If the file carries a metadata header, the remaining lines are
// rewritten into a temporary file owned by the returned Unit.
func Scan(path string, inc, imp Resolver) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("File not found: %s", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	lines := splitLines(string(data))
	u := &Unit{Path: path, CompilePath: path}

	i := 0
	rewrite := false

	// Metadata header: consume through the closing marker plus the
	// line after it. Contents are opaque.
	if len(lines) > 0 && strings.HasPrefix(lines[0], metaOpen) {
		rewrite = true
		closed := false
		for i < len(lines) {
			line := lines[i]
			i++
			u.Offset++
			if strings.HasPrefix(line, metaClose) {
				closed = true
				break
			}
		}
		if !closed {
			return nil, fmt.Errorf("%s: unterminated metadata block", path)
		}
		// The line following the closing marker is also discarded.
		if i < len(lines) {
			i++
			u.Offset++
		}
	}

	// Classify leading lines until the first code line.
scan:
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++
			u.Offset++

		case strings.HasPrefix(trimmed, "/*"):
			next, consumed, err := skipBlockComment(lines, i, path)
			if err != nil {
				return nil, err
			}
			if !consumed {
				// Code follows the comment on one of its lines; the
				// whole chain from its opening line belongs to the
				// code region.
				break scan
			}
			u.Offset += next - i
			i = next

		case isDirective(line, includeTag):
			u.Includes = append(u.Includes, inc.Resolve(directiveTarget(line, includeTag)))
			i++
			u.Offset++

		case isDirective(line, importTag):
			u.Imports = append(u.Imports, imp.Resolve(directiveTarget(line, importTag)))
			i++
			u.Offset++

		case strings.HasPrefix(trimmed, "//"):
			i++
			u.Offset++

		default:
			break scan
		}
	}

	if !rewrite {
		// Directive and comment lines are valid Go comments; leave the
		// file untouched and report no offset.
		u.Offset = 0
		return u, nil
	}

	tmp, err := os.CreateTemp("", "goscript-*.go")
	if err != nil {
		return nil, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	body := strings.Join(lines[i:], "\n")
	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("writing temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("writing temp file for %s: %w", path, err)
	}
	u.CompilePath = tmp.Name()
	u.temp = true
	return u, nil
}

// splitLines splits src on newlines, dropping a trailing empty element
// produced by a final newline and stripping carriage returns.
func splitLines(src string) []string {
	lines := strings.Split(src, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// isDirective reports whether line starts, untrimmed at column zero,
// with tag followed by a whitespace character.
func isDirective(line, tag string) bool {
	if !strings.HasPrefix(line, tag) {
		return false
	}
	rest := line[len(tag):]
	return rest != "" && (rest[0] == ' ' || rest[0] == '\t')
}

// directiveTarget returns the trimmed remainder after tag.
func directiveTarget(line, tag string) string {
	return strings.TrimSpace(line[len(tag):])
}

// skipBlockComment walks a block comment (and any comment chain
// continuing on the closer's line) starting at lines[start]. It
// returns the index of the first line after the chain and whether the
// chain was fully consumed. When code appears after a closer on the
// same line, consumed is false and the caller treats lines[start] as
// the first code line. An unterminated comment is a hard scan error.
func skipBlockComment(lines []string, start int, path string) (next int, consumed bool, err error) {
	rest := strings.TrimSpace(lines[start])
	i := start
	for {
		// rest begins with "/*"; find the closer, scanning further
		// lines as needed.
		body := rest[2:]
		for {
			if idx := strings.Index(body, "*/"); idx >= 0 {
				rest = strings.TrimSpace(body[idx+2:])
				break
			}
			i++
			if i >= len(lines) {
				return 0, false, fmt.Errorf("%s: unterminated block comment", path)
			}
			body = lines[i]
		}
		switch {
		case rest == "":
			return i + 1, true, nil
		case strings.HasPrefix(rest, "//"):
			return i + 1, true, nil
		case strings.HasPrefix(rest, "/*"):
			// Another comment opens on the same line; keep walking.
		default:
			// Code shares a line with the closer.
			return start, false, nil
		}
	}
}
