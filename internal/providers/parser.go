package providers

import "strings"

// ProviderRef is one entry of a "name:alias|name|..." provider list. The
// alias selects which API key the provider reads from the environment.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList splits a pipe-separated provider spec into refs in
// priority order. An empty or blank spec falls back to the mock provider
// so the service can always start.
func ParseProviderList(raw string) []ProviderRef {
	var out []ProviderRef
	for _, entry := range strings.Split(raw, "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ref := ProviderRef{Raw: entry, Name: entry}
		if name, alias, ok := strings.Cut(entry, ":"); ok {
			ref.Name = strings.TrimSpace(name)
			ref.KeyAlias = strings.TrimSpace(alias)
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = []ProviderRef{{Raw: "mock", Name: "mock"}}
	}
	return out
}
