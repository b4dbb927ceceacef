package model

import "encoding/json"

// LearningNode is one topic, subtopic or detail of a learning tree.
// Children is always encoded as an array, never null.
type LearningNode struct {
	Name     string         `json:"name"`
	Children []LearningNode `json:"children"`
}

func NewLearningNode(name string, children ...LearningNode) *LearningNode {
	if children == nil {
		children = []LearningNode{}
	}
	return &LearningNode{Name: name, Children: children}
}

func (n LearningNode) MarshalJSON() ([]byte, error) {
	type plain LearningNode
	p := plain(n)
	if p.Children == nil {
		p.Children = []LearningNode{}
	}
	return json.Marshal(p)
}

// Size counts n and all of its descendants.
func (n *LearningNode) Size() int {
	if n == nil {
		return 0
	}
	total := 1
	for i := range n.Children {
		total += n.Children[i].Size()
	}
	return total
}
