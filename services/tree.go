package services

import (
	"menu-service/models"
)

// buildForest links flat rows into trees in one pass. Rows keep their input order among
// siblings. A row becomes a top-level tree when isTop reports true for it; rows whose
// parent is absent from the input and that are not top-level are dropped.
func buildForest(rows []models.MenuNode, isTop func(models.MenuNode) bool) []*models.MenuTree {
	byID := make(map[string]*models.MenuTree, len(rows))
	for _, r := range rows {
		byID[r.ID] = models.NewMenuTree(r)
	}

	tops := []*models.MenuTree{}
	for _, r := range rows {
		t := byID[r.ID]
		if isTop(r) {
			tops = append(tops, t)
			continue
		}
		if r.ParentID == nil {
			continue
		}
		if parent, ok := byID[*r.ParentID]; ok {
			parent.Children = append(parent.Children, t)
		}
	}
	return tops
}

func isRootNode(n models.MenuNode) bool {
	return n.ParentID == nil
}

func hasID(id string) func(models.MenuNode) bool {
	return func(n models.MenuNode) bool { return n.ID == id }
}
