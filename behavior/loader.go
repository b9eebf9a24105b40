package behavior

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxDepth bounds the number of nodes on any root-to-leaf path.
const MaxDepth = 64

var (
	ErrUnknownCondition  = errors.New("unknown condition")
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrUnknownComparator = errors.New("unknown comparator")
	ErrMissingField      = errors.New("missing required field")
	ErrTooDeep           = errors.New("tree exceeds maximum depth")
)

// ConfigError reports a tree configuration problem. Path locates the node
// (e.g. "root.trueNode.falseNode") and Field the offending key.
type ConfigError struct {
	Path  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("behavior: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("behavior: %s.%s: %v", e.Path, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type rawNode struct {
	Type      *string            `json:"type"`
	Condition *string            `json:"condition"`
	Args      *[]json.RawMessage `json:"args"`
	TrueNode  json.RawMessage    `json:"trueNode"`
	FalseNode json.RawMessage    `json:"falseNode"`
	Action    *string            `json:"action"`
}

// Parse builds a tree from its JSON configuration. Any problem is returned as
// a *ConfigError and no tree is produced.
func Parse(data []byte) (*Tree, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ConfigError{Path: "root", Err: errors.New("empty configuration")}
	}
	b := &builder{}
	root, err := b.node(data, "root", 1)
	if err != nil {
		return nil, err
	}
	return &Tree{nodes: b.nodes, root: root, depth: b.depth}, nil
}

// ParseYAML builds a tree from a YAML document using the JSON field names.
func ParseYAML(data []byte) (*Tree, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Path: "root", Err: fmt.Errorf("malformed YAML: %w", err)}
	}
	converted, err := json.Marshal(doc)
	if err != nil {
		return nil, &ConfigError{Path: "root", Err: fmt.Errorf("convert YAML: %w", err)}
	}
	return Parse(converted)
}

// ParseFile reads a tree from disk, choosing the decoder by extension.
func ParseFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("behavior: read %s: %w", path, err)
	}
	return ParseNamed(path, data)
}

// ParseNamed parses data as YAML when name has a YAML extension and as JSON
// otherwise.
func ParseNamed(name string, data []byte) (*Tree, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

type builder struct {
	nodes []Node
	depth int
}

func missing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (b *builder) node(data []byte, path string, depth int) (NodeID, error) {
	if depth > MaxDepth {
		return 0, &ConfigError{Path: path, Err: ErrTooDeep}
	}
	if depth > b.depth {
		b.depth = depth
	}

	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, &ConfigError{Path: path, Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	if raw.Type == nil {
		return 0, &ConfigError{Path: path, Field: "type", Err: ErrMissingField}
	}

	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{})

	switch *raw.Type {
	case "DecisionNode":
		if raw.Condition == nil {
			return 0, &ConfigError{Path: path, Field: "condition", Err: ErrMissingField}
		}
		if raw.Args == nil {
			return 0, &ConfigError{Path: path, Field: "args", Err: ErrMissingField}
		}
		if missing(raw.TrueNode) {
			return 0, &ConfigError{Path: path, Field: "trueNode", Err: ErrMissingField}
		}
		if missing(raw.FalseNode) {
			return 0, &ConfigError{Path: path, Field: "falseNode", Err: ErrMissingField}
		}
		args, err := decodeArgs(*raw.Args)
		if err != nil {
			return 0, &ConfigError{Path: path, Field: "args", Err: err}
		}
		cond, field, err := resolveCondition(*raw.Condition, args)
		if err != nil {
			return 0, &ConfigError{Path: path, Field: field, Err: err}
		}
		t, err := b.node(raw.TrueNode, path+".trueNode", depth+1)
		if err != nil {
			return 0, err
		}
		f, err := b.node(raw.FalseNode, path+".falseNode", depth+1)
		if err != nil {
			return 0, err
		}
		b.nodes[id] = Node{kind: KindDecision, condition: cond, trueNode: t, falseNode: f}
	case "ActionNode":
		if raw.Action == nil {
			return 0, &ConfigError{Path: path, Field: "action", Err: ErrMissingField}
		}
		action, err := ParseAction(*raw.Action)
		if err != nil {
			return 0, &ConfigError{Path: path, Field: "action", Err: err}
		}
		b.nodes[id] = Node{kind: KindAction, action: action}
	default:
		return 0, &ConfigError{Path: path, Field: "type", Err: fmt.Errorf("unknown node type %q", *raw.Type)}
	}
	return id, nil
}

// decodeArgs accepts strings and bare numbers; numbers keep their literal
// spelling.
func decodeArgs(raw []json.RawMessage) ([]string, error) {
	out := make([]string, 0, len(raw))
	for i, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err == nil {
			out = append(out, n.String())
			continue
		}
		return nil, fmt.Errorf("arg %d must be a string or number, got %s", i, string(r))
	}
	return out, nil
}
