// Package graph builds the directed transfer graph and flags accounts
// that are unusually central in it.
package graph

import (
	"github.com/neuroaml/neuroaml/internal/domain"
)

// centralityThreshold is the degree-centrality cutoff for a HIGH flag.
// A central node is a structural hub, not a laundering proof; the flag
// is one input to fusion, never a verdict on its own.
const centralityThreshold = 0.2

// Graph is a directed weighted transfer graph. Nodes are accounts
// appearing as sender or receiver. Repeated sender->receiver pairs
// coalesce into one edge whose weight is the sum of the amounts.
type Graph struct {
	out map[string]map[string]float64 // sender -> receiver -> total amount
	in  map[string]map[string]float64 // receiver -> sender -> total amount
}

// Build constructs the graph from a transaction batch.
func Build(txs []domain.Transaction) *Graph {
	g := &Graph{
		out: make(map[string]map[string]float64),
		in:  make(map[string]map[string]float64),
	}
	for i := range txs {
		tx := &txs[i]
		g.addEdge(tx.Sender, tx.Receiver, tx.Amount)
	}
	return g
}

func (g *Graph) addEdge(sender, receiver string, amount float64) {
	if g.out[sender] == nil {
		g.out[sender] = make(map[string]float64)
	}
	g.out[sender][receiver] += amount
	if g.in[receiver] == nil {
		g.in[receiver] = make(map[string]float64)
	}
	g.in[receiver][sender] += amount
	// Make sure both endpoints exist as nodes even with no reverse edges.
	if g.out[receiver] == nil {
		g.out[receiver] = make(map[string]float64)
	}
	if g.in[sender] == nil {
		g.in[sender] = make(map[string]float64)
	}
}

// HasNode reports whether the account appears in the graph.
func (g *Graph) HasNode(account string) bool {
	_, ok := g.out[account]
	return ok
}

// NodeCount returns the number of accounts in the graph.
func (g *Graph) NodeCount() int {
	return len(g.out)
}

// EdgeWeight returns the coalesced weight of the sender->receiver edge,
// or 0 if no such edge exists.
func (g *Graph) EdgeWeight(sender, receiver string) float64 {
	return g.out[sender][receiver]
}

// Neighbors returns the union of in- and out-neighbors of an account.
func (g *Graph) Neighbors(account string) []string {
	seen := make(map[string]struct{})
	for n := range g.out[account] {
		seen[n] = struct{}{}
	}
	for n := range g.in[account] {
		seen[n] = struct{}{}
	}
	neighbors := make([]string, 0, len(seen))
	for n := range seen {
		neighbors = append(neighbors, n)
	}
	return neighbors
}

// Centrality returns the degree centrality of an account:
// (in-degree + out-degree) / (N - 1). A single-node graph has
// centrality 0 for its node.
func (g *Graph) Centrality(account string) float64 {
	n := g.NodeCount()
	if n <= 1 {
		return 0
	}
	degree := len(g.out[account]) + len(g.in[account])
	return float64(degree) / float64(n-1)
}

// Detect labels every node HIGH when its degree centrality exceeds the
// hub threshold, else LOW.
func Detect(g *Graph) map[string]domain.Signal {
	signals := make(map[string]domain.Signal, g.NodeCount())
	for account := range g.out {
		if g.Centrality(account) > centralityThreshold {
			signals[account] = domain.SignalHigh
		} else {
			signals[account] = domain.SignalLow
		}
	}
	return signals
}
