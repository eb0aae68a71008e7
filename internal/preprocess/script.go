package preprocess

import "github.com/CrazyForks/subconverter-go/internal/model"

// Scripter is the host-supplied script engine used by "!!script:" rename
// rules, sort scripts and filter scripts.
type Scripter interface {
	Rename(script string, node model.Proxy) (string, error)
	Sort(script string, nodes []model.Proxy) error
	Filter(script string, node model.Proxy) (bool, error)
}

// NopScripter keeps remarks, keeps every node and leaves order untouched.
type NopScripter struct{}

func (NopScripter) Rename(_ string, node model.Proxy) (string, error) { return node.Remark, nil }

func (NopScripter) Sort(string, []model.Proxy) error { return nil }

func (NopScripter) Filter(string, model.Proxy) (bool, error) { return true, nil }
