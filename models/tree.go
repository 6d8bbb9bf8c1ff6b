package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TreeType string

const (
	TreeTypeMenu         TreeType = "Menu"
	TreeTypePageResource TreeType = "PageResource"
	TreeTypeStandard     TreeType = "Standard"
	TreeTypeDepartment   TreeType = "DepartMent"
)

// TreeTypes returns every tree type in declaration order.
func TreeTypes() []TreeType {
	return []TreeType{TreeTypeMenu, TreeTypePageResource, TreeTypeStandard, TreeTypeDepartment}
}

func ParseTreeType(s string) (TreeType, error) {
	for _, t := range TreeTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tree type %q", s)
}

// RootName is the name of the single root node every tree of type t hangs from.
func (t TreeType) RootName() string {
	return "root_" + string(t)
}

type TreeNode struct {
	ID        string      `json:"id"`
	Type      TreeType    `json:"type"`
	Name      string      `json:"name"`
	Index     int         `json:"index"`
	IsParent  bool        `json:"is_parent"`
	ParentID  *string     `json:"parent_id,omitempty"`
	CSS       string      `json:"css,omitempty"`
	URL       string      `json:"url,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Children  []*TreeNode `json:"children,omitempty"`
}

// NewTreeNode creates a node with a fresh id. A nil parent makes it a root.
func NewTreeNode(t TreeType, name string, index int, isParent bool, parent *TreeNode) *TreeNode {
	node := &TreeNode{
		ID:       uuid.NewString(),
		Type:     t,
		Name:     name,
		Index:    index,
		IsParent: isParent,
	}
	if parent != nil {
		parentID := parent.ID
		node.ParentID = &parentID
	}
	return node
}

func (n *TreeNode) IsRoot() bool {
	return n.ParentID == nil
}

// Nest links a flat node list into a forest. Siblings keep their input order;
// nodes whose parent is not in the list are returned as top level nodes.
func Nest(nodes []TreeNode) []*TreeNode {
	byID := make(map[string]*TreeNode, len(nodes))
	ordered := make([]*TreeNode, 0, len(nodes))
	for i := range nodes {
		node := nodes[i]
		node.Children = nil
		byID[node.ID] = &node
		ordered = append(ordered, &node)
	}

	var top []*TreeNode
	for _, node := range ordered {
		if node.ParentID != nil {
			if parent, ok := byID[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		top = append(top, node)
	}
	return top
}
