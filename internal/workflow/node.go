package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is one value of a workflow document: a *Scalar, *Sequence or *Mapping.
type Node interface {
	isNode()
}

// Scalar is a leaf value. Tag and Style are kept from the source so that
// numbers stay numbers and quoted strings stay quoted when saved.
type Scalar struct {
	Value string
	Tag   string
	Style yaml.Style
}

// Sequence is an ordered list of nodes.
type Sequence struct {
	Items []Node
}

// Mapping is an ordered list of key/value entries.
type Mapping struct {
	Entries []Entry
}

// Entry is a single key/value pair of a Mapping.
type Entry struct {
	Key   *Scalar
	Value Node
}

func (*Scalar) isNode()   {}
func (*Sequence) isNode() {}
func (*Mapping) isNode()  {}

// NewString returns a plain string scalar.
func NewString(value string) *Scalar {
	return &Scalar{Value: value, Tag: "!!str"}
}

// IsNull reports whether the scalar is an explicit or implicit YAML null.
func (s *Scalar) IsNull() bool {
	return s.Tag == "!!null"
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Node, bool) {
	for _, e := range m.Entries {
		if e.Key.Value == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, appending a new entry if the key is absent.
func (m *Mapping) Set(key string, value Node) {
	for i := range m.Entries {
		if m.Entries[i].Key.Value == key {
			m.Entries[i].Value = value
			return
		}
	}
	m.Entries = append(m.Entries, Entry{Key: NewString(key), Value: value})
}

// Keys returns the mapping keys in document order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		keys = append(keys, e.Key.Value)
	}
	return keys
}

// fromYAML converts a yaml.v3 node tree. Aliases are expanded so the
// resulting tree owns every node it contains.
func fromYAML(n *yaml.Node) (Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: dangling alias", n.Line)
		}
		return fromYAML(n.Alias)
	case yaml.ScalarNode:
		return &Scalar{Value: n.Value, Tag: n.ShortTag(), Style: n.Style}, nil
	case yaml.SequenceNode:
		seq := &Sequence{Items: make([]Node, 0, len(n.Content))}
		for _, c := range n.Content {
			item, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, item)
		}
		return seq, nil
	case yaml.MappingNode:
		m := &Mapping{Entries: make([]Entry, 0, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind == yaml.AliasNode && k.Alias != nil {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			// merge keys are expanded in place
			if k.ShortTag() == "!!merge" {
				if err := mergeInto(m, n.Content[i+1]); err != nil {
					return nil, err
				}
				continue
			}
			value, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if _, merged := m.Get(k.Value); merged {
				m.Set(k.Value, value)
				continue
			}
			m.Entries = append(m.Entries, Entry{
				Key:   &Scalar{Value: k.Value, Tag: k.ShortTag(), Style: k.Style},
				Value: value,
			})
		}
		return m, nil
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

func mergeInto(m *Mapping, src *yaml.Node) error {
	node, err := fromYAML(src)
	if err != nil {
		return err
	}
	var sources []*Mapping
	switch v := node.(type) {
	case *Mapping:
		sources = append(sources, v)
	case *Sequence:
		for _, item := range v.Items {
			sm, ok := item.(*Mapping)
			if !ok {
				return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
			}
			sources = append(sources, sm)
		}
	default:
		return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
	}
	for _, sm := range sources {
		for _, e := range sm.Entries {
			if _, exists := m.Get(e.Key.Value); !exists {
				m.Entries = append(m.Entries, e)
			}
		}
	}
	return nil
}

// toYAML converts back into a yaml.v3 node tree for encoding.
func toYAML(n Node) *yaml.Node {
	switch v := n.(type) {
	case *Scalar:
		return scalarToYAML(v)
	case *Sequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items {
			out.Content = append(out.Content, toYAML(item))
		}
		return out
	case *Mapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.Entries {
			out.Content = append(out.Content, scalarToYAML(e.Key), toYAML(e.Value))
		}
		return out
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func scalarToYAML(s *Scalar) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: s.Tag, Value: s.Value, Style: s.Style}
}
