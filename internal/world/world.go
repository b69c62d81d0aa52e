// Package world implements the simulation aggregate and its nine-phase
// tick loop (spec §4.I): the single owning struct for every neuron,
// synapse, input/output node, global hormone, and subsystem (event
// queue, spatial hash, PRNG, compiled genome).
//
// World is modeled on the teacher's extracellular/matrix.go
// ExtracellularMatrix: one struct owns every subsystem, one mutex guards
// all of it, and a single constructor wires the pieces together. Where
// the teacher is continuous-time and goroutine-driven, World is
// single-threaded and tick-synchronous (spec §1 Non-goals, §5).
package world

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hidra-sim/hidra/internal/bridge"
	"github.com/hidra-sim/hidra/internal/config"
	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/genome"
	"github.com/hidra-sim/hidra/internal/prng"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// Genesis, Gestation, Mitosis, and Apoptosis are the reserved system
// gene ids hooked automatically by the World (spec §3 "Gene / Genome").
const (
	GeneGenesis   = 0
	GeneGestation = 1
	GeneMitosis   = 2
	GeneApoptosis = 3
)

// World owns all simulation state (spec §4.I).
type World struct {
	mu sync.Mutex

	cfg    config.Config
	logger *slog.Logger

	// genomeSource is retained verbatim so Save can round-trip it; the
	// compiled ASTs derived from it are never themselves serialized
	// (spec §4.J).
	genomeSource string

	neurons     map[uint64]*Neuron
	synapses    map[uint64]*synapse.Synapse
	inputNodes  map[uint64]*InputNode
	outputNodes map[uint64]*OutputNode

	globalHormones [256]float32

	currentTick uint64
	nextNeuron  uint64
	nextSynapse uint64
	nextInput   uint64
	nextOutput  uint64

	eventQueue *event.Queue
	spatial    *spatial.Hash
	rng        *prng.PRNG

	geneCount      int
	compiledGenome bridge.Genome
	interp         *bridge.Interpreter

	deactivationList []uint64

	metrics *metricsRing
}

// New parses genomeSource, constructs a World, and runs Genesis (gene 0)
// in System context (spec §4.I "Construction").
func New(cfg config.Config, genomeSource string, logger *slog.Logger) (*World, error) {
	if logger == nil {
		logger = slog.Default()
	}

	genes := genome.ScanGenes(genomeSource)
	compiled := make(bridge.Genome, len(genes))
	for i, raw := range genes {
		decoded := genome.Decode(raw, logger)
		isSystem := i < cfg.SystemGeneCount
		compiled[uint32(i)] = genome.BuildAST(decoded, isSystem)
	}

	w := &World{
		cfg:            cfg,
		logger:         logger,
		genomeSource:   genomeSource,
		neurons:        make(map[uint64]*Neuron),
		synapses:       make(map[uint64]*synapse.Synapse),
		inputNodes:     make(map[uint64]*InputNode),
		outputNodes:    make(map[uint64]*OutputNode),
		eventQueue:     event.New(),
		spatial:        spatial.New(cfg.CompetitionRadius),
		rng:            prng.New(cfg.Seed0, cfg.Seed1),
		geneCount:      len(genes),
		compiledGenome: compiled,
		nextNeuron:     1,
		nextSynapse:    1,
		nextInput:      1,
		nextOutput:     1,
	}
	w.interp = bridge.NewInterpreter(compiled)
	if cfg.MetricsEnabled {
		w.metrics = newMetricsRing(cfg.MetricsRingCapacity)
	}

	if _, hasGenesis := compiled[GeneGenesis]; hasGenesis {
		if err := w.interp.Run(w, GeneGenesis, event.ContextSystem, 0, 0, cfg.DefaultGeneFuel); err != nil {
			return nil, fmt.Errorf("world: genesis gene: %w", err)
		}
	}
	w.rebuildSpatialHash()

	return w, nil
}

// Configure runs fn with the world lock held, exposing the same host
// API gene bytecode uses (AddSynapse, SetBrainType,
// CreateBrainSimpleFeedForward, ...) to external Go callers that want to
// wire up a world's initial population without hand-assembling a
// Genesis gene for simple cases. Every bridge.Environment method assumes
// its caller already holds the lock (see environment.go); Configure is
// the one sanctioned way to get that guarantee from outside the
// interpreter.
func (w *World) Configure(fn func(env bridge.Environment)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

// CurrentTick returns the tick counter.
func (w *World) CurrentTick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentTick
}

// sortedNeuronIDs returns every neuron id in ascending order, the
// traversal order required by spec §4.I's determinism clause. Callers
// must already hold w.mu.
func (w *World) sortedNeuronIDs() []uint64 {
	ids := make([]uint64, 0, len(w.neurons))
	for id := range w.neurons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) sortedSynapseIDs() []uint64 {
	ids := make([]uint64, 0, len(w.synapses))
	for id := range w.synapses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) sortedInputIDs() []uint64 {
	ids := make([]uint64, 0, len(w.inputNodes))
	for id := range w.inputNodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) sortedOutputIDs() []uint64 {
	ids := make([]uint64, 0, len(w.outputNodes))
	for id := range w.outputNodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AddInputNode registers a new external-world input terminal and
// returns its id.
func (w *World) AddInputNode() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextInput
	w.nextInput++
	w.inputNodes[id] = &InputNode{ID: id}
	return id
}

// AddOutputNode registers a new external-world output terminal and
// returns its id.
func (w *World) AddOutputNode() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextOutput
	w.nextOutput++
	w.outputNodes[id] = &OutputNode{ID: id}
	return id
}

// SetInputValue writes an input node's externally-driven value.
func (w *World) SetInputValue(id uint64, value float32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.inputNodes[id]
	if !ok {
		return false
	}
	n.Value = value
	return true
}

// OutputValue reads an output node's current value.
func (w *World) OutputValue(id uint64) (float32, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.outputNodes[id]
	if !ok {
		return 0, false
	}
	return n.Value, true
}

// AddInputSynapse wires an InputNode to a neuron or output node (spec
// §3: InputNodes are synapse sources only). Bytecode genes have no
// opcode for this — AddSynapse's source is always the calling neuron —
// so sensory wiring is a host-side construction concern, exercised here
// rather than through the interpreter.
func (w *World) AddInputSynapse(inputID uint64, targetKind synapse.TargetKind, targetID uint64, sig synapse.SignalType, weight, param float32) (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inputNodes[inputID]; !ok {
		return 0, false
	}
	return w.addSynapseLocked(synapse.EndpointInput, inputID, targetKind, targetID, sig, weight, param)
}

// addNeuronLocked creates a neuron at pos without acquiring the lock
// (callers already hold it).
func (w *World) addNeuronLocked(pos spatial.Position) *Neuron {
	id := w.nextNeuron
	w.nextNeuron++
	n := NewNeuron(id, pos, w.cfg.InitialNeuronHealth, w.cfg.InitialPotential, float32(w.cfg.DefaultRefractoryPeriod))
	n.LVars[LVarThresholdAdaptationFactor] = w.cfg.DefaultThresholdAdaptationFactor
	n.LVars[LVarThresholdRecoveryRate] = w.cfg.DefaultThresholdRecoveryRate
	w.neurons[id] = n

	if _, hasGestation := w.compiledGenome[GeneGestation]; hasGestation {
		w.eventQueue.Push(event.Event{
			ExecutionTick: w.currentTick + 1,
			Kind:          event.KindExecuteGene,
			TargetID:      id,
			GeneID:        GeneGestation,
			GeneCtx:       event.ContextProtected,
		})
	}
	return n
}

// AddNeuron creates a neuron at pos, scheduling its Gestation hook for
// the next tick if one is compiled (spec §4.I "Construction").
func (w *World) AddNeuron(pos spatial.Position) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addNeuronLocked(pos).ID
}

// removeNeuronLocked deletes a neuron and every synapse incident to it
// (spec §3 "removing a neuron removes all edges incident to it").
func (w *World) removeNeuronLocked(id uint64) {
	n, ok := w.neurons[id]
	if !ok {
		return
	}
	for _, sid := range append([]uint64(nil), n.OwnedSynapses...) {
		w.removeSynapseLocked(sid)
	}
	for _, sid := range w.sortedSynapseIDs() {
		s := w.synapses[sid]
		if s.TargetKind == synapse.EndpointNeuron && s.TargetID == id {
			w.removeSynapseLocked(sid)
		}
	}
	delete(w.neurons, id)
}

func (w *World) removeSynapseLocked(id uint64) {
	s, ok := w.synapses[id]
	if !ok {
		return
	}
	if s.SourceKind == synapse.EndpointNeuron {
		if src, ok := w.neurons[s.SourceID]; ok {
			src.removeOwnedSynapse(id)
		}
	}
	delete(w.synapses, id)
}
