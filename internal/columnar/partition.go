package columnar

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPartition names the directory for null or empty partition values.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// escapePathValue percent-encodes the characters Hive refuses in partition
// directory names. Other bytes, including non-ASCII, pass through.
func escapePathValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}

// unescapePathValue reverses escapePathValue. Malformed escapes are kept
// literally.
func unescapePathValue(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// partitionValue renders one partition column value as a directory name.
func partitionValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return DefaultPartition
	case string:
		s = x
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return DefaultPartition
	}
	return escapePathValue(s)
}

// partitionPath builds "col=value/col=value" for one row.
func partitionPath(cols []string, vals []any) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = escapePathValue(c) + "=" + partitionValue(vals[i])
	}
	return strings.Join(parts, "/")
}

// parsePartitionDirs extracts col=value pairs from the directory part of a
// key relative to the table root.
func parsePartitionDirs(rel string) map[string]string {
	out := map[string]string{}
	parts := strings.Split(rel, "/")
	for _, p := range parts[:len(parts)-1] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		out[unescapePathValue(k)] = unescapePathValue(v)
	}
	return out
}
