package util

import (
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// HashParams returns a short, order-independent digest of query parameters.
// Empty values are skipped so that "absent" and "empty" hash the same.
func HashParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := params[k]
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return strconv.FormatUint(xxh3.HashString(b.String()), 16)
}
