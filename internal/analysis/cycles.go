// Package analysis derives graph facts from stored diagrams: orphaned
// elements, circular dependencies, per-element dependencies, statistics
// and integrity reports. Every relationship is treated as a directed edge
// from its source to its target, association included.
package analysis

import (
	"sort"
	"strings"

	"github.com/duskhollow/diagramdb/internal/store"
)

// Cycles returns the directed cycles found among the given relationships.
// Each cycle is a sequence of element ids without the closing repetition,
// rotated so the lexicographically smallest id comes first; duplicates
// (the same cycle reached from different start nodes) are reported once.
//
// The traversal is an iterative depth-first search with an explicit
// recursion stack, so self-loops, disconnected subgraphs and large graphs
// all terminate without recursion-depth limits.
func Cycles(relationships []store.RelationshipRecord) [][]string {
	adj := make(map[string][]string)
	nodeSet := make(map[string]struct{})
	for _, rel := range relationships {
		adj[rel.SourceID] = append(adj[rel.SourceID], rel.TargetID)
		nodeSet[rel.SourceID] = struct{}{}
		nodeSet[rel.TargetID] = struct{}{}
	}

	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, neighbors := range adj {
		sort.Strings(neighbors)
	}

	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)
	color := make(map[string]int, len(nodes))

	var cycles [][]string
	reported := make(map[string]struct{})

	type frame struct {
		node string
		next int // index of the next neighbor to visit
	}

	for _, start := range nodes {
		if color[start] != white {
			continue
		}

		stack := []frame{{node: start}}
		color[start] = gray
		path := []string{start}
		pathIndex := map[string]int{start: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbors := adj[top.node]

			if top.next < len(neighbors) {
				n := neighbors[top.next]
				top.next++

				if idx, onPath := pathIndex[n]; onPath {
					cycle := canonicalCycle(path[idx:])
					key := strings.Join(cycle, "\x00")
					if _, dup := reported[key]; !dup {
						reported[key] = struct{}{}
						cycles = append(cycles, cycle)
					}
					continue
				}
				if color[n] == black {
					continue
				}

				color[n] = gray
				pathIndex[n] = len(path)
				path = append(path, n)
				stack = append(stack, frame{node: n})
				continue
			}

			color[top.node] = black
			delete(pathIndex, top.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return cycles
}

// canonicalCycle rotates the cycle so its smallest element id leads.
func canonicalCycle(cycle []string) []string {
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minIdx:]...)
	out = append(out, cycle[:minIdx]...)
	return out
}
