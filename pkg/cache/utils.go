package cache

import (
	"fmt"
	"strings"
)

// GenerateKey builds a cache key from a prefix and one id.
func GenerateKey(prefix, id string) string {
	return prefix + ":" + id
}

// GenerateKeyWithParams joins a prefix with a variable parameter list,
// one colon-separated segment per parameter.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		b.WriteByte(':')
		fmt.Fprintf(&b, "%v", p)
	}
	return b.String()
}
