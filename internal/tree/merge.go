package tree

import (
	"fmt"

	"medtree/internal/model"
)

const (
	EmptyRootName  = "Root"
	MergedRootName = "Materi Pembelajaran"
	sectionFormat  = "Bagian %d"
)

// Merge combines per-chunk trees into one. Trees with children become
// numbered sections under a synthetic root, childless named trees are
// attached directly, and nil or nameless leaves are skipped. Input order is
// kept, so sections follow document order. Nothing is deduplicated.
func Merge(trees []*model.LearningNode) *model.LearningNode {
	switch len(trees) {
	case 0:
		return model.NewLearningNode(EmptyRootName)
	case 1:
		if trees[0] == nil {
			return model.NewLearningNode(EmptyRootName)
		}
		return trees[0]
	}

	merged := model.NewLearningNode(MergedRootName)
	for i, t := range trees {
		switch {
		case t == nil:
			continue
		case len(t.Children) > 0:
			merged.Children = append(merged.Children, model.LearningNode{
				Name:     fmt.Sprintf(sectionFormat, i+1),
				Children: t.Children,
			})
		case t.Name != "":
			merged.Children = append(merged.Children, *t)
		}
	}
	return merged
}
