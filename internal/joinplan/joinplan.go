// Package joinplan finds the join tree connecting the tables a query needs.
//
// Planning is a breadth-first search over the schema graph. Neighbours
// are visited in lexicographic order and required tables are processed
// in lexicographic order, so the same graph and table set always yield
// the same path.
package joinplan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Plan returns the minimal join tree rooted at base that reaches every
// table in required. Edges are oriented parent to child and ordered by
// the BFS discovery order of their child table.
func Plan(g *schema.Graph, base string, required []string) (core.JoinPath, error) {
	root, ok := g.Table(base)
	if !ok {
		return core.JoinPath{}, fmt.Errorf("unknown base table %q", base)
	}

	targets := make([]string, 0, len(required))
	seen := map[string]bool{strings.ToLower(root.Name): true}
	for _, r := range required {
		t, ok := g.Table(r)
		if !ok {
			return core.JoinPath{}, fmt.Errorf("unknown table %q", r)
		}
		key := strings.ToLower(t.Name)
		if !seen[key] {
			seen[key] = true
			targets = append(targets, t.Name)
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		return strings.ToLower(targets[i]) < strings.ToLower(targets[j])
	})

	path := core.JoinPath{Base: root.Name}
	if len(targets) == 0 {
		return path, nil
	}

	tree := search(g, root.Name)
	used := map[string]bool{}
	for _, target := range targets {
		key := strings.ToLower(target)
		if _, reached := tree.order[key]; !reached {
			return core.JoinPath{}, &core.UnreachableTableError{From: root.Name, To: target}
		}
		for key != strings.ToLower(root.Name) && !used[key] {
			used[key] = true
			key = strings.ToLower(tree.parent[key].FromTable)
		}
	}

	for key := range used {
		path.Edges = append(path.Edges, tree.parent[key])
	}
	sort.Slice(path.Edges, func(i, j int) bool {
		return tree.order[strings.ToLower(path.Edges[i].ToTable)] < tree.order[strings.ToLower(path.Edges[j].ToTable)]
	})
	return path, nil
}

// bfsTree records, for every table reachable from the root, the edge it
// was discovered through and its discovery index.
type bfsTree struct {
	parent map[string]core.JoinEdge
	order  map[string]int
}

func search(g *schema.Graph, root string) bfsTree {
	tree := bfsTree{
		parent: make(map[string]core.JoinEdge),
		order:  map[string]int{strings.ToLower(root): 0},
	}
	queue := []string{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range g.Neighbors(current) {
			key := strings.ToLower(e.ToTable)
			if _, visited := tree.order[key]; visited {
				continue
			}
			tree.order[key] = len(tree.order)
			tree.parent[key] = e
			queue = append(queue, e.ToTable)
		}
	}
	return tree
}
