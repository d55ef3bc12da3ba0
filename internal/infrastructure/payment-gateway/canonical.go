package paymentgateway

import (
	"net/url"
	"slices"
	"sort"
	"strings"
)

// Canonicalize builds the exact base string the provider signs: excluded and
// empty-valued fields dropped, keys in ascending byte order, keys and values
// form-encoded (space as '+', reserved bytes as uppercase %XX), pairs joined by '&'.
func Canonicalize(params map[string]string, exclude ...string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if key == "" || value == "" || slices.Contains(exclude, key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[key]))
	}

	return b.String()
}
