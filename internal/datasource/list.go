package datasource

import (
	"bufio"
	"io"
	"strings"
)

// ReadList reads a line-based list of tokens (keys, URLs) and returns the
// non-empty, non-comment lines in order.
//
// Lines that are empty or start with '#' after trimming are skipped, so list
// files can carry comments and blank separators.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
