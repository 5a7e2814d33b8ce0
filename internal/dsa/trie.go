// Package dsa provides a radix-tree backed prefix index.
package dsa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/armon/go-radix"
)

// ErrNoMatch and ErrAmbiguous are returned by Resolve.
var (
	ErrNoMatch   = errors.New("no match")
	ErrAmbiguous = errors.New("ambiguous prefix")
)

// Trie wraps go-radix with typed values. Keys sharing a prefix share
// nodes, so lookups cost O(k) in the key length.
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates an empty tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{tree: radix.New()}
}

// Insert adds or replaces key.
func (t *Trie[V]) Insert(key string, value V) {
	t.tree.Insert(key, value)
}

// Get looks up an exact key.
func (t *Trie[V]) Get(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// Len returns the number of keys.
func (t *Trie[V]) Len() int {
	return t.tree.Len()
}

// StartsWith returns every key with the given prefix, in lexical order.
func (t *Trie[V]) StartsWith(prefix string) []string {
	var keys []string
	t.tree.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}

// Resolve returns the key that prefix abbreviates. An exact key always
// wins; otherwise the prefix must match exactly one key.
func (t *Trie[V]) Resolve(prefix string) (string, V, error) {
	var zero V
	if v, ok := t.Get(prefix); ok {
		return prefix, v, nil
	}

	keys := t.StartsWith(prefix)
	switch len(keys) {
	case 0:
		return "", zero, fmt.Errorf("%w for %q", ErrNoMatch, prefix)
	case 1:
		v, _ := t.Get(keys[0])
		return keys[0], v, nil
	default:
		return "", zero, fmt.Errorf("%w %q: %s", ErrAmbiguous, prefix, strings.Join(keys, ", "))
	}
}
