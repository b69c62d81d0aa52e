package world

// InputNode is an external-world terminal written by the environment
// and read by synapses as a source (spec §3 "InputNode / OutputNode").
type InputNode struct {
	ID    uint64
	Value float32
}

// OutputNode is an external-world terminal written by neuron brains or
// synapses and read by the environment.
type OutputNode struct {
	ID    uint64
	Value float32
}
