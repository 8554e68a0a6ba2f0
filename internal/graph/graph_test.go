package graph

import (
	"fmt"
	"testing"
	"time"

	"github.com/neuroaml/neuroaml/internal/domain"
)

func tx(sender, receiver string, amount float64) domain.Transaction {
	return domain.Transaction{
		ID:        fmt.Sprintf("%s-%s-%v", sender, receiver, amount),
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuild_DuplicateEdgesSumWeights(t *testing.T) {
	g := Build([]domain.Transaction{
		tx("acct-a", "acct-b", 100),
		tx("acct-a", "acct-b", 250),
		tx("acct-a", "acct-c", 40),
	})

	if got := g.EdgeWeight("acct-a", "acct-b"); got != 350 {
		t.Errorf("duplicate edges should sum: expected 350, got %v", got)
	}
	if got := g.EdgeWeight("acct-a", "acct-c"); got != 40 {
		t.Errorf("expected 40, got %v", got)
	}
	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}
}

func TestCentrality_Star(t *testing.T) {
	// Star topology: hub sends to N-1 leaves.
	const leaves = 5
	var txs []domain.Transaction
	for i := 0; i < leaves; i++ {
		txs = append(txs, tx("hub", fmt.Sprintf("leaf-%d", i), 10))
	}
	g := Build(txs)

	// Hub out-degree is N-1, in-degree 0: centrality (N-1)/(N-1) = 1.
	if got := g.Centrality("hub"); got != 1.0 {
		t.Errorf("hub centrality: expected 1.0, got %v", got)
	}
	// Each leaf has degree 1 over N-1 = 5 possible.
	if got := g.Centrality("leaf-0"); got != 0.2 {
		t.Errorf("leaf centrality: expected 0.2, got %v", got)
	}

	signals := Detect(g)
	if signals["hub"] != domain.SignalHigh {
		t.Errorf("hub should be HIGH, got %s", signals["hub"])
	}
	// Leaf centrality 0.2 is not strictly above the 0.2 threshold.
	if signals["leaf-0"] != domain.SignalLow {
		t.Errorf("leaf should be LOW, got %s", signals["leaf-0"])
	}
}

func TestCentrality_SingleNode(t *testing.T) {
	g := Build([]domain.Transaction{tx("acct-a", "acct-a", 5)})
	if g.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", g.NodeCount())
	}
	if got := g.Centrality("acct-a"); got != 0 {
		t.Errorf("single-node centrality must be 0, got %v", got)
	}
}

func TestNeighbors_UnionOfDirections(t *testing.T) {
	g := Build([]domain.Transaction{
		tx("acct-a", "acct-b", 10),
		tx("acct-c", "acct-a", 20),
		tx("acct-a", "acct-b", 5), // duplicate pair, still one neighbor
	})

	neighbors := g.Neighbors("acct-a")
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %v", neighbors)
	}
	seen := map[string]bool{}
	for _, n := range neighbors {
		seen[n] = true
	}
	if !seen["acct-b"] || !seen["acct-c"] {
		t.Errorf("expected acct-b and acct-c, got %v", neighbors)
	}
}

func TestDetect_EmptyGraph(t *testing.T) {
	signals := Detect(Build(nil))
	if len(signals) != 0 {
		t.Errorf("expected no signals, got %d", len(signals))
	}
}
