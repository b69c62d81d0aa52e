// Package brain implements the polymorphic neuron "brain" abstraction
// (spec §4.D): a feed-forward acyclic neural network with topological
// sort caching, and a logic-gate/flip-flop alternative. Both variants
// are invoked once per neuron activation.
//
// The node/connection struct shapes and Kahn's-algorithm topo caching
// follow the small-scale graph idiom seen across the pack's NEAT-style
// reference material (other_examples' jinyeom-neat and
// available-username-neat network.go files); the per-node
// integrate-then-activate staging mirrors the teacher's
// neuron/dendrite.go and neuron/axon.go two-stage processing.
package brain

import (
	"encoding/json"
	"math"
)

// SourceKind names where an input slot's value is gathered from (spec
// §4.D input_map).
type SourceKind int

const (
	SourceActivationPotential SourceKind = iota
	SourceLocalVariable
	SourceGlobalHormone
	SourceConstantOne
	SourceHealth
	SourceAge
)

// InputSpec is one entry of a brain's input_map.
type InputSpec struct {
	Kind  SourceKind
	Index int // meaningful for SourceLocalVariable/SourceGlobalHormone
}

// ActionKind names what an output slot does with its evaluated value
// (spec §4.D output_map).
type ActionKind int

const (
	ActionSetOutputValue ActionKind = iota
	ActionExecuteGene
	ActionMove // reserved, per spec; never dispatched by the core.
)

// OutputSpec is one entry of a brain's output_map, holding both the
// static routing metadata and the mutable value last written by
// Evaluate.
type OutputSpec struct {
	Action ActionKind
	Value  float32
	// Target is the OutputNode id for ActionSetOutputValue, or the gene
	// id for ActionExecuteGene. Its interpretation is owned by the
	// world, not this package.
	Target uint32
}

// Brain is the common interface implemented by NeuralNetwork and
// LogicGate.
type Brain interface {
	InputMap() []InputSpec
	OutputMap() []OutputSpec
	Evaluate(inputs []float32) error
	Reset()
}

// Activation is the node activation function tag (spec §4.D).
type Activation int

const (
	ActivationTanh Activation = iota
	ActivationLinear
	ActivationSigmoid
	ActivationReLU
)

func (a Activation) Apply(x float32) float32 {
	switch a {
	case ActivationLinear:
		return x
	case ActivationSigmoid:
		return float32(1 / (1 + math.Exp(-float64(x))))
	case ActivationReLU:
		if x < 0 {
			return 0
		}
		return x
	case ActivationTanh:
		return float32(math.Tanh(float64(x)))
	default:
		return x
	}
}

// NodeType tags a network node's role.
type NodeType int

const (
	NodeInput NodeType = iota
	NodeHidden
	NodeOutput
)

// Node is a single network node.
type Node struct {
	ID         uint32
	Type       NodeType
	Bias       float32
	Activation Activation

	// Input routing metadata (meaningful when Type == NodeInput).
	InputSource SourceKind
	SourceIndex int

	// Output routing metadata (meaningful when Type == NodeOutput).
	ActionType ActionKind
	ActionArg  uint32

	value float32
}

// Connection is a directed weighted edge between two node ids.
type Connection struct {
	FromID uint32
	ToID   uint32
	Weight float32
}

// ErrInputCountMismatch is returned by Evaluate when the input vector's
// length does not match the number of input nodes (spec §4.D step 1).
type ErrInputCountMismatch struct {
	Got, Want int
}

func (e *ErrInputCountMismatch) Error() string {
	return "brain: input count mismatch"
}

// NeuralNetwork is a directed acyclic weighted graph of nodes and
// connections.
type NeuralNetwork struct {
	nodes       map[uint32]*Node
	nodeOrder   []uint32 // insertion order, used for dictionary-order fallback
	connections []*Connection
	outgoing    map[uint32][]*Connection

	topoOrder []uint32 // cached topological order, nil if invalidated

	onLog func(string) // optional best-effort logging hook
}

// NewNeuralNetwork constructs an empty network.
func NewNeuralNetwork() *NeuralNetwork {
	return &NeuralNetwork{
		nodes:    make(map[uint32]*Node),
		outgoing: make(map[uint32][]*Connection),
	}
}

// SetLogger installs a callback invoked with a message whenever the
// best-effort topo-sort fallback fires. Nil disables logging.
func (n *NeuralNetwork) SetLogger(fn func(string)) { n.onLog = fn }

// AddNode inserts a node if its id is absent, and invalidates the
// topological order cache.
func (n *NeuralNetwork) AddNode(node Node) {
	if _, exists := n.nodes[node.ID]; exists {
		return
	}
	nn := node
	n.nodes[nn.ID] = &nn
	n.nodeOrder = append(n.nodeOrder, nn.ID)
	n.topoOrder = nil
}

// AddConnection adds an edge from->to, rejecting it (returning false) if
// it would introduce a cycle, including a self-loop. Acyclicity is
// checked by reachability from `to` back to `from` following existing
// outgoing edges, per spec §4.D.
func (n *NeuralNetwork) AddConnection(c Connection) bool {
	if _, ok := n.nodes[c.FromID]; !ok {
		return false
	}
	if _, ok := n.nodes[c.ToID]; !ok {
		return false
	}
	if c.FromID == c.ToID {
		return false
	}
	if n.reachable(c.ToID, c.FromID) {
		return false
	}
	cc := c
	n.connections = append(n.connections, &cc)
	n.outgoing[c.FromID] = append(n.outgoing[c.FromID], &cc)
	n.topoOrder = nil
	return true
}

// reachable reports whether to is reachable from `from` via outgoing
// edges.
func (n *NeuralNetwork) reachable(from, to uint32) bool {
	if from == to {
		return true
	}
	visited := map[uint32]bool{from: true}
	stack := []uint32{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range n.outgoing[cur] {
			if e.ToID == to {
				return true
			}
			if !visited[e.ToID] {
				visited[e.ToID] = true
				stack = append(stack, e.ToID)
			}
		}
	}
	return false
}

// RemoveNode removes a node and every edge incident to it, invalidating
// the topo cache.
func (n *NeuralNetwork) RemoveNode(id uint32) {
	if _, ok := n.nodes[id]; !ok {
		return
	}
	delete(n.nodes, id)
	for i, nid := range n.nodeOrder {
		if nid == id {
			n.nodeOrder = append(n.nodeOrder[:i], n.nodeOrder[i+1:]...)
			break
		}
	}
	filtered := n.connections[:0]
	for _, c := range n.connections {
		if c.FromID == id || c.ToID == id {
			continue
		}
		filtered = append(filtered, c)
	}
	n.connections = filtered
	delete(n.outgoing, id)
	for from, edges := range n.outgoing {
		kept := edges[:0]
		for _, e := range edges {
			if e.ToID != id {
				kept = append(kept, e)
			}
		}
		n.outgoing[from] = kept
	}
	n.topoOrder = nil
}

// RemoveConnection removes the edge from->to, if present.
func (n *NeuralNetwork) RemoveConnection(from, to uint32) {
	filtered := n.connections[:0]
	for _, c := range n.connections {
		if c.FromID == from && c.ToID == to {
			continue
		}
		filtered = append(filtered, c)
	}
	n.connections = filtered
	edges := n.outgoing[from]
	kept := edges[:0]
	for _, e := range edges {
		if e.ToID != to {
			kept = append(kept, e)
		}
	}
	n.outgoing[from] = kept
	n.topoOrder = nil
}

// recomputeTopoOrder runs Kahn's algorithm. On failure (a residual cycle
// somehow present, leaving nodes with non-zero in-degree) it appends the remaining nodes in dictionary (insertion) order and
// logs, per spec §4.D step 2.
func (n *NeuralNetwork) recomputeTopoOrder() {
	inDegree := make(map[uint32]int, len(n.nodes))
	for id := range n.nodes {
		inDegree[id] = 0
	}
	for _, c := range n.connections {
		inDegree[c.ToID]++
	}

	var queue []uint32
	for _, id := range n.nodeOrder {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []uint32
	visited := make(map[uint32]bool, len(n.nodes))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		order = append(order, cur)
		for _, e := range n.outgoing[cur] {
			inDegree[e.ToID]--
			if inDegree[e.ToID] == 0 {
				queue = append(queue, e.ToID)
			}
		}
	}

	if len(order) != len(n.nodes) {
		if n.onLog != nil {
			n.onLog("brain: topo sort incomplete, falling back to insertion order for residual nodes")
		}
		for _, id := range n.nodeOrder {
			if !visited[id] {
				order = append(order, id)
				visited[id] = true
			}
		}
	}
	n.topoOrder = order
}

// Evaluate runs one forward pass. inputs is matched positionally to
// input nodes in insertion order.
func (n *NeuralNetwork) Evaluate(inputs []float32) error {
	inputNodes := n.inputNodesInOrder()
	if len(inputs) != len(inputNodes) {
		return &ErrInputCountMismatch{Got: len(inputs), Want: len(inputNodes)}
	}

	if n.topoOrder == nil {
		n.recomputeTopoOrder()
	}

	for _, node := range n.nodes {
		node.value = node.Bias
	}
	for i, id := range inputNodes {
		n.nodes[id].value += inputs[i]
	}

	for _, id := range n.topoOrder {
		node := n.nodes[id]
		activated := node.value
		if node.Type != NodeInput {
			activated = node.Activation.Apply(node.value)
			node.value = activated
		}
		for _, e := range n.outgoing[id] {
			n.nodes[e.ToID].value += activated * e.Weight
		}
	}
	return nil
}

func (n *NeuralNetwork) inputNodesInOrder() []uint32 {
	var ids []uint32
	for _, id := range n.nodeOrder {
		if n.nodes[id].Type == NodeInput {
			ids = append(ids, id)
		}
	}
	return ids
}

// outputNodesInOrder returns output node ids in insertion order.
func (n *NeuralNetwork) outputNodesInOrder() []uint32 {
	var ids []uint32
	for _, id := range n.nodeOrder {
		if n.nodes[id].Type == NodeOutput {
			ids = append(ids, id)
		}
	}
	return ids
}

// InputMap implements Brain.
func (n *NeuralNetwork) InputMap() []InputSpec {
	var specs []InputSpec
	for _, id := range n.inputNodesInOrder() {
		node := n.nodes[id]
		specs = append(specs, InputSpec{Kind: node.InputSource, Index: node.SourceIndex})
	}
	return specs
}

// OutputMap implements Brain, reading current node values.
func (n *NeuralNetwork) OutputMap() []OutputSpec {
	var specs []OutputSpec
	for _, id := range n.outputNodesInOrder() {
		node := n.nodes[id]
		specs = append(specs, OutputSpec{Action: node.ActionType, Value: node.value, Target: node.ActionArg})
	}
	return specs
}

// Reset clears no persistent state for NeuralNetwork (it has none beyond
// per-evaluation node values, which Evaluate always reinitializes from
// bias).
func (n *NeuralNetwork) Reset() {}

// Mutate perturbs one uniformly-chosen connection's weight and one
// uniformly-chosen node's bias by (u*2-1)*rate, per spec §4.D genetic
// mutation semantics.
func (n *NeuralNetwork) Mutate(rate float32, next func() float32) {
	if len(n.connections) > 0 {
		idx := int(next() * float32(len(n.connections)))
		if idx >= len(n.connections) {
			idx = len(n.connections) - 1
		}
		delta := (next()*2 - 1) * rate
		n.connections[idx].Weight += delta
	}
	if len(n.nodeOrder) > 0 {
		idx := int(next() * float32(len(n.nodeOrder)))
		if idx >= len(n.nodeOrder) {
			idx = len(n.nodeOrder) - 1
		}
		delta := (next()*2 - 1) * rate
		n.nodes[n.nodeOrder[idx]].Bias += delta
	}
}

// Node returns a copy of the node with the given id, for bridge queries.
func (n *NeuralNetwork) Node(id uint32) (Node, bool) {
	node, ok := n.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *node, true
}

// SetNodeActivation updates a node's activation function in place.
func (n *NeuralNetwork) SetNodeActivation(id uint32, act Activation) bool {
	node, ok := n.nodes[id]
	if !ok {
		return false
	}
	node.Activation = act
	return true
}

// SetConnectionWeight updates the weight of the edge from->to in place.
func (n *NeuralNetwork) SetConnectionWeight(from, to uint32, weight float32) bool {
	for _, c := range n.connections {
		if c.FromID == from && c.ToID == to {
			c.Weight = weight
			return true
		}
	}
	return false
}

// NodeCount reports the number of nodes currently in the network.
func (n *NeuralNetwork) NodeCount() int { return len(n.nodes) }

// ConnectionCount reports the number of connections currently in the
// network.
func (n *NeuralNetwork) ConnectionCount() int { return len(n.connections) }

// networkWire is NeuralNetwork's save/load shape: nodes in insertion
// order plus the connection list, enough to rebuild every derived index
// (outgoing, topoOrder) on load (spec §4.J).
type networkWire struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// MarshalJSON implements json.Marshaler.
func (n *NeuralNetwork) MarshalJSON() ([]byte, error) {
	w := networkWire{Connections: make([]Connection, len(n.connections))}
	for _, id := range n.nodeOrder {
		w.Nodes = append(w.Nodes, *n.nodes[id])
	}
	for i, c := range n.connections {
		w.Connections[i] = *c
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler, rebuilding the outgoing
// index and invalidating the topo-order cache so it recomputes lazily.
func (n *NeuralNetwork) UnmarshalJSON(data []byte) error {
	var w networkWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.nodes = make(map[uint32]*Node, len(w.Nodes))
	n.nodeOrder = make([]uint32, 0, len(w.Nodes))
	n.outgoing = make(map[uint32][]*Connection, len(w.Nodes))
	for _, node := range w.Nodes {
		nn := node
		n.nodes[nn.ID] = &nn
		n.nodeOrder = append(n.nodeOrder, nn.ID)
	}
	n.connections = make([]*Connection, len(w.Connections))
	for i, c := range w.Connections {
		cc := c
		n.connections[i] = &cc
		n.outgoing[cc.FromID] = append(n.outgoing[cc.FromID], &cc)
	}
	n.topoOrder = nil
	return nil
}

// Clone returns a deep copy: independent node and connection storage,
// so mutating the clone never touches n (used by Mitosis, spec §4.H).
// The topo-order cache is not copied; the clone recomputes it lazily on
// its first Evaluate.
func (n *NeuralNetwork) Clone() *NeuralNetwork {
	c := &NeuralNetwork{
		nodes:    make(map[uint32]*Node, len(n.nodes)),
		nodeOrder: append([]uint32(nil), n.nodeOrder...),
		outgoing: make(map[uint32][]*Connection, len(n.outgoing)),
		onLog:    n.onLog,
	}
	for id, node := range n.nodes {
		nc := *node
		c.nodes[id] = &nc
	}
	c.connections = make([]*Connection, len(n.connections))
	for i, conn := range n.connections {
		cc := *conn
		c.connections[i] = &cc
		c.outgoing[cc.FromID] = append(c.outgoing[cc.FromID], &cc)
	}
	return c
}
