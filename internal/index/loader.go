package index

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/Iron-Ham/ssbatch/internal/errors"
	"gopkg.in/yaml.v3"
)

// Leaf keys recognized in a pair record. Unknown keys are ignored.
const (
	keyCall    = "call"
	keyDisplay = "display"
	keyScore   = "score" // accepted when display is absent
)

// yamlLineRe extracts the line number from yaml.v3 syntax errors,
// e.g. "yaml: line 3: mapping values are not allowed in this context".
var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// LoadFile reads and parses the index at path. Failure to read the file is
// reported as a malformed index so the batch never starts.
func LoadFile(path string) (*SampleIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIndexError("cannot read index", err).WithSource(path)
	}
	return Load(bytes.NewReader(data), path)
}

// Load parses a sample index from r. source names the input in errors.
// An empty document yields an empty index; more than one document is
// rejected.
func Load(r io.Reader, source string) (*SampleIndex, error) {
	dec := yaml.NewDecoder(r)
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return newSampleIndex(), nil
		}
		return nil, syntaxError(err, source)
	}
	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case err == io.EOF:
	case err != nil:
		return nil, syntaxError(err, source)
	default:
		at := &extra
		if len(extra.Content) > 0 {
			at = extra.Content[0]
		}
		return nil, shapeError(at, source, "index must be a single YAML document")
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return newSampleIndex(), nil
		}
		root = root.Content[0]
	}
	root = deref(root)

	if isNull(root) {
		return newSampleIndex(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, shapeError(root, source, "index must be a mapping of clone IDs")
	}

	x := newSampleIndex()
	seenClones := make(map[string]bool)

	for i := 0; i+1 < len(root.Content); i += 2 {
		cloneKey, pools := deref(root.Content[i]), deref(root.Content[i+1])
		if cloneKey.Kind != yaml.ScalarNode || cloneKey.Value == "" {
			return nil, shapeError(cloneKey, source, "clone ID must be a non-empty string")
		}
		clone := cloneKey.Value
		if seenClones[clone] {
			return nil, shapeError(cloneKey, source, "duplicate clone ID "+strconv.Quote(clone))
		}
		seenClones[clone] = true

		if isNull(pools) {
			continue
		}
		if pools.Kind != yaml.MappingNode {
			return nil, shapeError(pools, source, "clone "+strconv.Quote(clone)+" must map pool IDs to records")
		}

		for j := 0; j+1 < len(pools.Content); j += 2 {
			poolKey, leaf := deref(pools.Content[j]), deref(pools.Content[j+1])
			if poolKey.Kind != yaml.ScalarNode || poolKey.Value == "" {
				return nil, shapeError(poolKey, source, "pool ID must be a non-empty string")
			}

			rec := parseRecord(leaf)
			if !x.add(PairID{Clone: clone, Pool: poolKey.Value}, rec) {
				return nil, shapeError(poolKey, source, "duplicate pool ID "+strconv.Quote(poolKey.Value)+" under clone "+strconv.Quote(clone))
			}
		}
	}

	return x, nil
}

// parseRecord reads call and display from a leaf mapping. A null or
// non-mapping leaf is an empty record and a non-scalar value counts as
// absent; completeness is judged later by the pair runner.
func parseRecord(leaf *yaml.Node) PairRecord {
	var rec PairRecord
	if isNull(leaf) || leaf.Kind != yaml.MappingNode {
		return rec
	}

	var score string
	for k := 0; k+1 < len(leaf.Content); k += 2 {
		key, val := deref(leaf.Content[k]), deref(leaf.Content[k+1])
		if key.Kind != yaml.ScalarNode {
			continue
		}
		switch key.Value {
		case keyCall, keyDisplay, keyScore:
		default:
			continue
		}
		var v string
		if val.Kind == yaml.ScalarNode && !isNull(val) {
			v = val.Value
		}
		switch key.Value {
		case keyCall:
			rec.Call = v
		case keyDisplay:
			rec.Display = v
		case keyScore:
			score = v
		}
	}
	if rec.Display == "" {
		rec.Display = score
	}
	return rec
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func shapeError(n *yaml.Node, source, msg string) error {
	return errors.NewIndexError(msg, nil).WithSource(source).WithPosition(n.Line, n.Column)
}

func syntaxError(err error, source string) error {
	ie := errors.NewIndexError("cannot parse index", err).WithSource(source)
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil {
			ie.WithPosition(line, 0)
		}
	}
	return ie
}
