package models

// MenuNode is one persisted row of the menu tree. ParentID is nil for a root.
type MenuNode struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func (n MenuNode) IsRoot() bool {
	return n.ParentID == nil
}

// MenuTree is a node with its descendants. Children is never nil so leaves
// serialise as "children": [].
type MenuTree struct {
	MenuNode
	Children []*MenuTree `json:"children"`
}

func NewMenuTree(n MenuNode) *MenuTree {
	return &MenuTree{MenuNode: n, Children: []*MenuTree{}}
}

// Flatten returns the tree's nodes in pre-order.
func (t *MenuTree) Flatten() []MenuNode {
	out := []MenuNode{t.MenuNode}
	for _, c := range t.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}

// MenuView is the GET /menus/{id} shape: the subtree plus a read-time lookup of the parent.
type MenuView struct {
	MenuTree
	Parent *MenuNode `json:"parent"`
}

// MenuDetail carries the attributes derived on read for the detail editor.
type MenuDetail struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Depth      int    `json:"depth"`
	ParentName string `json:"parentName"`
}
