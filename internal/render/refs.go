package render

import (
	"regexp"
	"sort"
)

// Pseudo-URI schemes recognized in shard bodies.
const (
	AssetScheme = "asset://"
	ShardScheme = "shard://"
)

// assetRefPattern matches a virtualized media reference. A bare scheme
// with no id ("asset://") or an id with characters outside the id
// alphabet does not match.
var assetRefPattern = regexp.MustCompile(`asset://([A-Za-z0-9-]+)`)

// ExtractReferences returns the distinct asset ids referenced by body.
// Only body text carries references; titles and tags are never scanned.
func ExtractReferences(body string) map[string]struct{} {
	refs := make(map[string]struct{})
	for _, m := range assetRefPattern.FindAllStringSubmatch(body, -1) {
		refs[m[1]] = struct{}{}
	}
	return refs
}

// RemovedReferences returns the asset ids referenced by oldBody but no
// longer by newBody, sorted for deterministic reclamation order.
func RemovedReferences(oldBody, newBody string) []string {
	kept := ExtractReferences(newBody)
	removed := make([]string, 0)
	for id := range ExtractReferences(oldBody) {
		if _, ok := kept[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}
