package provider

// Registry maps provider names to constructed adapters. It is built once at
// startup from resolved configuration and passed to the router explicitly.
type Registry map[string]Adapter

// Get returns the adapter for the provider name.
func (r Registry) Get(name string) (Adapter, bool) {
	a, ok := r[name]
	return a, ok
}

// Names returns the registered provider names.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	return out
}
