package behavior

import (
	"fmt"
	"io"
	"strings"
)

// NodeKind tags a tree node variant.
type NodeKind uint8

const (
	KindDecision NodeKind = iota + 1
	KindAction
)

func (k NodeKind) String() string {
	switch k {
	case KindDecision:
		return "DecisionNode"
	case KindAction:
		return "ActionNode"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// NodeID addresses a node inside its Tree.
type NodeID int32

// Node is one arena slot. Decision nodes own two child indices; action nodes
// are leaves.
type Node struct {
	kind      NodeKind
	condition Condition
	action    ActionKind
	trueNode  NodeID
	falseNode NodeID
}

func (n Node) Kind() NodeKind { return n.kind }
func (n Node) Condition() Condition { return n.condition }
func (n Node) Action() ActionKind { return n.action }
func (n Node) True() NodeID { return n.trueNode }
func (n Node) False() NodeID { return n.falseNode }

// Tree is an immutable arena of nodes. Children always sit at higher indices
// than their parent, so a tree cannot contain a cycle.
type Tree struct {
	nodes []Node
	root  NodeID
	depth int
}

// Root returns the root node id.
func (t *Tree) Root() NodeID {
	return t.root
}

// Node returns the node at id.
func (t *Tree) Node(id NodeID) Node {
	return t.nodes[id]
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	return t.depth
}

// Actions returns the distinct actions the tree can select, in first-seen
// order.
func (t *Tree) Actions() []ActionKind {
	seen := make(map[ActionKind]bool)
	var out []ActionKind
	for _, n := range t.nodes {
		if n.kind == KindAction && !seen[n.action] {
			seen[n.action] = true
			out = append(out, n.action)
		}
	}
	return out
}

// Format writes an indented outline of the tree.
func (t *Tree) Format(w io.Writer) error {
	var b strings.Builder
	t.format(&b, t.root, 0, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Tree) format(b *strings.Builder, id NodeID, indent int, label string) {
	n := t.nodes[id]
	b.WriteString(strings.Repeat("  ", indent))
	b.WriteString(label)
	switch n.kind {
	case KindDecision:
		fmt.Fprintf(b, "if %s\n", n.condition)
		t.format(b, n.trueNode, indent+1, "then: ")
		t.format(b, n.falseNode, indent+1, "else: ")
	case KindAction:
		fmt.Fprintf(b, "%s\n", n.action)
	}
}
