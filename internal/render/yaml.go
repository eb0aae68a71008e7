package render

import (
	"bytes"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

// ymap appends key/value pairs to a yaml mapping node in insertion order.
type ymap struct{ n *yaml.Node }

func newMap(style yaml.Style) ymap {
	return ymap{&yaml.Node{Kind: yaml.MappingNode, Style: style}}
}

func scalar(tag, v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v}
}

func strSeq(style yaml.Style, vs []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: style}
	for _, v := range vs {
		n.Content = append(n.Content, scalar("!!str", v))
	}
	return n
}

func (m ymap) set(k string, v *yaml.Node) {
	m.n.Content = append(m.n.Content, scalar("!!str", k), v)
}

func (m ymap) str(k, v string) { m.set(k, scalar("!!str", v)) }

// opt sets k only when v is non-empty.
func (m ymap) opt(k, v string) {
	if v != "" {
		m.str(k, v)
	}
}

func (m ymap) int(k string, v int) { m.set(k, scalar("!!int", strconv.Itoa(v))) }

func (m ymap) bool(k string, v bool) { m.set(k, scalar("!!bool", strconv.FormatBool(v))) }

func (m ymap) tribool(k string, t model.Tribool) {
	if t.IsSet() {
		m.bool(k, t.Bool())
	}
}

func (m ymap) empty() bool { return len(m.n.Content) == 0 }

// lookup returns the value node of key in a mapping node.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// put replaces the value of key, or appends the pair when key is absent.
func put(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content, scalar("!!str", key), value)
}

func remove(mapping *yaml.Node, key string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)
			return
		}
	}
}

func encodeYAML(n *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return "", renderError("RENDER_ENCODE_ERROR", "YAML 编码失败", "", err)
	}
	if err := enc.Close(); err != nil {
		return "", renderError("RENDER_ENCODE_ERROR", "YAML 编码失败", "", err)
	}
	return buf.String(), nil
}

// parseYAMLBase returns the root mapping of base, or a new mapping when
// base is blank.
func parseYAMLBase(base string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(base), &doc); err != nil {
		return nil, renderError("RENDER_BASE_INVALID", "基础配置不是合法的 YAML", "", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return newMap(0).n, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, renderError("RENDER_BASE_INVALID", "基础配置顶层必须是映射", "", nil)
	}
	return root, nil
}
