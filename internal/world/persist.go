// Persistence (spec §4.J): a self-describing JSON document capturing
// every piece of World-owned state except what can be cheaply rebuilt
// on load (spatial hash, topological-sort caches, outgoing-edge
// indexes) and the compiled genome ASTs, which are never serialized —
// the genome source text travels with the document and is re-parsed on
// load, exactly as the teacher's persistence layer treats its own
// compiled/derived state as non-authoritative. Pending events in the
// event queue, each neuron's LastFiredValue and the metrics history are
// not written to the document and are not restored by Load.
package world

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hidra-sim/hidra/internal/brain"
	"github.com/hidra-sim/hidra/internal/config"
	"github.com/hidra-sim/hidra/internal/prng"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// documentVersion guards against loading a document from an
// incompatible future layout; cross-version compatibility is
// explicitly not required by spec §4.J, so Load simply refuses to
// proceed rather than attempting to migrate.
const documentVersion = 1

type neuronDoc struct {
	ID            uint64           `json:"id"`
	Position      spatial.Position `json:"position"`
	IsActive      bool             `json:"is_active"`
	LVars         []float32        `json:"lvars"`
	OwnedSynapses []uint64         `json:"owned_synapses"`
	BrainKind     string           `json:"brain_kind"` // "none", "network", "logicgate"
	Brain         json.RawMessage  `json:"brain,omitempty"`
}

type synapseDoc struct {
	ID                  uint64               `json:"id"`
	SourceID            uint64               `json:"source_id"`
	SourceKind          synapse.EndpointKind `json:"source_kind"`
	TargetID            uint64               `json:"target_id"`
	TargetKind          synapse.EndpointKind `json:"target_kind"`
	SignalType          synapse.SignalType   `json:"signal_type"`
	Weight              float32              `json:"weight"`
	Parameter           float32              `json:"parameter"`
	Condition           synapse.Condition    `json:"condition"`
	PersistentValue     *float32             `json:"persistent_value,omitempty"`
	PreviousSourceValue float32              `json:"previous_source_value"`
	SustainedCounter    int32                `json:"sustained_counter"`
	FatigueLevel        float32              `json:"fatigue_level"`
	FatigueRate         float32              `json:"fatigue_rate"`
}

type inputNodeDoc struct {
	ID    uint64  `json:"id"`
	Value float32 `json:"value"`
}

type outputNodeDoc struct {
	ID    uint64  `json:"id"`
	Value float32 `json:"value"`
}

// document is the top-level persisted shape (spec §4.J "Persisted
// state").
type document struct {
	Version        int             `json:"version"`
	RunID          string          `json:"run_id"`
	Config         config.Config   `json:"config"`
	GenomeSource   string          `json:"genome_source"`
	CurrentTick    uint64          `json:"current_tick"`
	PRNGState      prng.State      `json:"prng_state"`
	GlobalHormones [256]float32    `json:"global_hormones"`
	NextNeuron     uint64          `json:"next_neuron"`
	NextSynapse    uint64          `json:"next_synapse"`
	NextInput      uint64          `json:"next_input"`
	NextOutput     uint64          `json:"next_output"`
	Neurons        []neuronDoc     `json:"neurons"`
	Synapses       []synapseDoc    `json:"synapses"`
	InputNodes     []inputNodeDoc  `json:"input_nodes"`
	OutputNodes    []outputNodeDoc `json:"output_nodes"`
}

// Save serializes the World state described above to JSON. A fresh
// run_id is stamped on every Save call via google/uuid, so two saves of
// the same running world are distinguishable artifacts even if their
// tick-by-tick content is identical.
func (w *World) Save() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := document{
		Version:        documentVersion,
		RunID:          uuid.NewString(),
		Config:         w.cfg,
		GenomeSource:   w.genomeSource,
		CurrentTick:    w.currentTick,
		PRNGState:      w.rng.GetState(),
		GlobalHormones: w.globalHormones,
		NextNeuron:     w.nextNeuron,
		NextSynapse:    w.nextSynapse,
		NextInput:      w.nextInput,
		NextOutput:     w.nextOutput,
	}

	for _, id := range w.sortedNeuronIDs() {
		n := w.neurons[id]
		nd := neuronDoc{
			ID:            n.ID,
			Position:      n.Position,
			IsActive:      n.IsActive,
			LVars:         n.LVars[:],
			OwnedSynapses: n.OwnedSynapses,
			BrainKind:     "none",
		}
		if n.Brain != nil {
			kind, payload, err := encodeBrain(n.Brain)
			if err != nil {
				return nil, fmt.Errorf("world: encode neuron %d brain: %w", n.ID, err)
			}
			nd.BrainKind = kind
			nd.Brain = payload
		}
		doc.Neurons = append(doc.Neurons, nd)
	}

	for _, id := range w.sortedSynapseIDs() {
		s := w.synapses[id]
		doc.Synapses = append(doc.Synapses, synapseDoc{
			ID:                  id,
			SourceID:            s.SourceID,
			SourceKind:          s.SourceKind,
			TargetID:            s.TargetID,
			TargetKind:          s.TargetKind,
			SignalType:          s.SignalType,
			Weight:              s.Weight,
			Parameter:           s.Parameter,
			Condition:           s.Condition,
			PersistentValue:     s.PersistentValue,
			PreviousSourceValue: s.PreviousSourceValue,
			SustainedCounter:    s.SustainedCounter,
			FatigueLevel:        s.FatigueLevel,
			FatigueRate:         s.FatigueRate,
		})
	}

	for _, id := range w.sortedInputIDs() {
		doc.InputNodes = append(doc.InputNodes, inputNodeDoc{ID: id, Value: w.inputNodes[id].Value})
	}
	for _, id := range w.sortedOutputIDs() {
		doc.OutputNodes = append(doc.OutputNodes, outputNodeDoc{ID: id, Value: w.outputNodes[id].Value})
	}

	return json.MarshalIndent(&doc, "", "  ")
}

// Load reconstructs a World from a document produced by Save. The
// genome source travels inside the document and is re-parsed rather
// than deserialized as AST (spec §4.J: "Compiled genome ASTs are not
// serialized"). The spatial hash is rebuilt; each neuron's
// owned-synapse list is taken from the document as saved.
func Load(data []byte, logger *slog.Logger) (*World, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("world: decode document: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("world: unsupported document version %d (want %d)", doc.Version, documentVersion)
	}

	w, err := New(doc.Config, doc.GenomeSource, logger)
	if err != nil {
		return nil, fmt.Errorf("world: rebuild from genome source: %w", err)
	}

	// New() already ran Genesis against a clean slate; Load replaces
	// every piece of runtime state wholesale with the document's.
	w.neurons = make(map[uint64]*Neuron, len(doc.Neurons))
	w.synapses = make(map[uint64]*synapse.Synapse, len(doc.Synapses))
	w.inputNodes = make(map[uint64]*InputNode, len(doc.InputNodes))
	w.outputNodes = make(map[uint64]*OutputNode, len(doc.OutputNodes))

	w.currentTick = doc.CurrentTick
	w.rng.SetState(doc.PRNGState)
	w.globalHormones = doc.GlobalHormones
	w.nextNeuron, w.nextSynapse, w.nextInput, w.nextOutput = doc.NextNeuron, doc.NextSynapse, doc.NextInput, doc.NextOutput

	for _, nd := range doc.Neurons {
		n := &Neuron{ID: nd.ID, Position: nd.Position, IsActive: nd.IsActive, OwnedSynapses: append([]uint64(nil), nd.OwnedSynapses...)}
		if len(nd.LVars) == lvarCount {
			copy(n.LVars[:], nd.LVars)
		}
		if nd.BrainKind != "none" {
			b, err := decodeBrain(nd.BrainKind, nd.Brain)
			if err != nil {
				return nil, fmt.Errorf("world: decode neuron %d brain: %w", nd.ID, err)
			}
			n.Brain = b
		}
		w.neurons[nd.ID] = n
	}

	for _, sd := range doc.Synapses {
		w.synapses[sd.ID] = &synapse.Synapse{
			ID:                  synapse.SynapseID(sd.ID),
			SourceID:            sd.SourceID,
			SourceKind:          sd.SourceKind,
			TargetID:            sd.TargetID,
			TargetKind:          sd.TargetKind,
			SignalType:          sd.SignalType,
			Weight:              sd.Weight,
			Parameter:           sd.Parameter,
			Condition:           sd.Condition,
			PersistentValue:     sd.PersistentValue,
			PreviousSourceValue: sd.PreviousSourceValue,
			SustainedCounter:    sd.SustainedCounter,
			FatigueLevel:        sd.FatigueLevel,
			FatigueRate:         sd.FatigueRate,
		}
	}
	for _, id := range doc.InputNodes {
		w.inputNodes[id.ID] = &InputNode{ID: id.ID, Value: id.Value}
	}
	for _, od := range doc.OutputNodes {
		w.outputNodes[od.ID] = &OutputNode{ID: od.ID, Value: od.Value}
	}

	w.rebuildSpatialHash()
	return w, nil
}

// encodeBrain tags and marshals a neuron's Brain for storage. The kind
// string is the only thing distinguishing which concrete type to
// reconstruct on Load, since the Brain interface value itself loses its
// concrete type across a JSON round trip.
func encodeBrain(b brain.Brain) (kind string, payload json.RawMessage, err error) {
	switch v := b.(type) {
	case *brain.NeuralNetwork:
		payload, err = json.Marshal(v)
		return "network", payload, err
	case *brain.LogicGate:
		payload, err = json.Marshal(v)
		return "logicgate", payload, err
	default:
		return "", nil, fmt.Errorf("world: unknown brain type %T", b)
	}
}

// decodeBrain reconstructs a Brain from its encoded kind and payload.
func decodeBrain(kind string, payload json.RawMessage) (brain.Brain, error) {
	switch kind {
	case "network":
		nn := brain.NewNeuralNetwork()
		if err := json.Unmarshal(payload, nn); err != nil {
			return nil, fmt.Errorf("world: decode network brain: %w", err)
		}
		return nn, nil
	case "logicgate":
		lg := &brain.LogicGate{}
		if err := json.Unmarshal(payload, lg); err != nil {
			return nil, fmt.Errorf("world: decode logicgate brain: %w", err)
		}
		return lg, nil
	default:
		return nil, fmt.Errorf("world: unknown brain kind %q", kind)
	}
}
