// Package indextest builds sample indexes for tests.
package indextest

import (
	"bytes"
	"slices"

	"github.com/Iron-Ham/ssbatch/internal/index"
	"gopkg.in/yaml.v3"
)

// FromMap builds an index from nested maps by rendering them as a YAML
// document and loading it. Clones and pools are sorted lexically since Go
// maps carry no order. It panics if the document does not load.
func FromMap(m map[string]map[string]index.PairRecord) *index.SampleIndex {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, clone := range sortedKeys(m) {
		pools := &yaml.Node{Kind: yaml.MappingNode}
		for _, pool := range sortedKeys(m[clone]) {
			rec := m[clone][pool]
			leaf := &yaml.Node{Kind: yaml.MappingNode}
			leaf.Content = append(leaf.Content,
				str("call"), str(rec.Call),
				str("display"), str(rec.Display),
			)
			pools.Content = append(pools.Content, str(pool), leaf)
		}
		root.Content = append(root.Content, str(clone), pools)
	}

	data, err := yaml.Marshal(root)
	if err != nil {
		panic(err)
	}
	x, err := index.Load(bytes.NewReader(data), "indextest")
	if err != nil {
		panic(err)
	}
	return x
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
