package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"sortable/internal"
	"sortable/internal/util"
)

// Leaf is one canonical product and the listings assigned to it.
// Listings only grow, in arrival order.
type Leaf struct {
	ProductName string            `json:"product_name"`
	Listings    []json.RawMessage `json:"listings"`
}

func (l *Leaf) Append(raw json.RawMessage) {
	l.Listings = append(l.Listings, raw)
}

// Child links a branch to the next level down. Key holds the
// normalized field value; Absent marks the branch that collects
// products missing the field entirely.
type Child struct {
	Key    string
	Absent bool
	Node   *Node
}

// Node is one level of the manufacturer → family → model tree.
// Children preserves catalog insertion order; candidate generation
// and the "first candidate" tie-break depend on it.
type Node struct {
	Children []*Child
	Leaf     *Leaf

	byKey  map[string]*Child
	absent *Child
}

func newNode() *Node {
	return &Node{byKey: map[string]*Child{}}
}

func (n *Node) child(key string, absent bool) *Node {
	if absent {
		if n.absent == nil {
			c := &Child{Absent: true, Node: newNode()}
			n.absent = c
			n.Children = append(n.Children, c)
		}
		return n.absent.Node
	}
	c, ok := n.byKey[key]
	if !ok {
		c = &Child{Key: key, Node: newNode()}
		n.byKey[key] = c
		n.Children = append(n.Children, c)
	}
	return c.Node
}

// AbsentChild returns the branch for products missing this level's
// field, or nil. It is consulted only after the named keys fail.
func (n *Node) AbsentChild() *Node {
	if n.absent == nil {
		return nil
	}
	return n.absent.Node
}

type Index struct {
	Root *Node

	leaves int
}

func NewIndex() *Index {
	return &Index{Root: newNode()}
}

func BuildIndex(products []internal.Product) (*Index, error) {
	idx := NewIndex()
	for i, p := range products {
		if err := idx.Insert(p); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i+1, err)
		}
	}
	return idx, nil
}

// Insert files the product under its normalized manufacturer, family
// and model keys, creating branches in catalog order, and sets the
// leaf with an empty listings collection. A later product with the
// same key triple overwrites the leaf.
func (x *Index) Insert(p internal.Product) error {
	if strings.TrimSpace(p.ProductName) == "" {
		return fmt.Errorf("missing product_name (manufacturer=%q model=%q)", deref(p.Manufacturer), deref(p.Model))
	}

	node := x.Root
	for _, field := range []*string{p.Manufacturer, p.Family, p.Model} {
		if field == nil {
			node = node.child("", true)
		} else {
			node = node.child(util.Normalize(*field), false)
		}
	}

	if node.Leaf == nil {
		x.leaves++
	}
	node.Leaf = &Leaf{ProductName: p.ProductName, Listings: []json.RawMessage{}}
	return nil
}

// Lookup resolves a candidate triple to its leaf, or nil.
func (x *Index) Lookup(c internal.Candidate) *Leaf {
	manChild, ok := x.Root.byKey[c.Manufacturer]
	if !ok {
		return nil
	}

	var famNode *Node
	if c.FamilyAbsent {
		famNode = manChild.Node.AbsentChild()
	} else if famChild, ok := manChild.Node.byKey[c.Family]; ok {
		famNode = famChild.Node
	}
	if famNode == nil {
		return nil
	}

	modChild, ok := famNode.byKey[c.Model]
	if !ok {
		return nil
	}
	return modChild.Node.Leaf
}

// Leaves returns every leaf in traversal order: manufacturer, then
// family, then model, each in insertion order.
func (x *Index) Leaves() []*Leaf {
	out := make([]*Leaf, 0, x.leaves)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Leaf != nil {
			out = append(out, n.Leaf)
			return
		}
		for _, c := range n.Children {
			walk(c.Node)
		}
	}
	walk(x.Root)
	return out
}

func (x *Index) Size() int {
	return x.leaves
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
