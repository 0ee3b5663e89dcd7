package signing

import (
	"sort"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/internal/metadata"
)

// Input holds the parts of a request that take part in the signature.
type Input struct {
	Method      string
	ContentMD5  string
	ContentType string
	Date        string
	Metadata    *metadata.Multimap

	// Path is the resource path, optionally followed by ?query.
	Path string
}

// subResources are the query parameters kept in the signed resource, in priority order.
var subResources = []string{"acl", "torrent"}

// CanonicalString returns the newline-joined string to sign for in.
func CanonicalString(in Input) string {
	var b strings.Builder

	b.WriteString(in.Method)
	b.WriteByte('\n')
	b.WriteString(in.ContentMD5)
	b.WriteByte('\n')
	b.WriteString(in.ContentType)
	b.WriteByte('\n')
	b.WriteString(in.Date)
	b.WriteByte('\n')

	for _, h := range canonicalHeaders(in.Metadata) {
		b.WriteString(h.name)
		b.WriteByte(':')
		b.WriteString(h.value)
		b.WriteByte('\n')
	}

	b.WriteString(CanonicalResource(in.Path))
	return b.String()
}

type header struct {
	name  string
	value string
}

// canonicalHeaders folds metadata keys to lower case and sorts them.
// Keys that only differ in case are merged in first-seen order.
func canonicalHeaders(m *metadata.Multimap) []header {
	if m == nil || m.Len() == 0 {
		return nil
	}

	index := make(map[string]int, m.Len())
	var out []header
	for _, key := range m.Keys() {
		lk := strings.ToLower(key)
		joined := m.Joined(key)
		if i, ok := index[lk]; ok {
			out[i].value += "," + joined
			continue
		}
		index[lk] = len(out)
		out = append(out, header{name: lk, value: joined})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// CanonicalResource strips the query from path, keeping an acl or torrent
// sub-resource marker when the query names one.
func CanonicalResource(path string) string {
	i := strings.IndexByte(path, '?')
	if i < 0 {
		return path
	}
	for _, sub := range subResources {
		if hasParam(path[i:], sub) {
			return path[:i] + "?" + sub
		}
	}
	return path[:i]
}

// hasParam reports whether query names the parameter, bare or with a value.
// A name counts after any '?' or '&' and must end the query or be followed
// by '=' or '&'.
func hasParam(query, name string) bool {
	for i := 0; ; {
		j := strings.Index(query[i:], name)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(name)
		if start > 0 && (query[start-1] == '?' || query[start-1] == '&') &&
			(end == len(query) || query[end] == '=' || query[end] == '&') {
			return true
		}
		i = start + 1
	}
}
