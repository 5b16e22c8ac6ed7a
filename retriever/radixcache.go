package retriever

import "github.com/armon/go-radix"

// runCache is a typed wrapper over armon/go-radix memoizing
// DependenciesFor results within one resolver run, keyed by
// "<dep clone path>@<revision>".
type runCache struct {
	t *radix.Tree
}

func newRunCache() runCache {
	return runCache{t: radix.New()}
}

func (c runCache) Get(key string) (DependencyList, bool) {
	v, ok := c.t.Get(key)
	if !ok {
		return DependencyList{}, false
	}
	return v.(DependencyList), true
}

func (c runCache) Insert(key string, dl DependencyList) {
	c.t.Insert(key, dl)
}

func (c runCache) Len() int {
	return c.t.Len()
}
