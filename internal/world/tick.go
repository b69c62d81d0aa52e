package world

import (
	"github.com/hidra-sim/hidra/internal/brain"
	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// Step advances the simulation by exactly one tick, running the nine
// phases of spec §4.I under the world lock.
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step()
}

// RunFor advances the simulation by n ticks, holding the lock for the
// whole run (spec §4.I "Scheduling model": long operations hold the
// lock for the whole run unless designed to yield between ticks; Hidra
// does not need to yield since it has no concurrent external tick
// producers).
func (w *World) RunFor(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < n; i++ {
		w.step()
	}
}

func (w *World) step() {
	w.rebuildSpatialHash()
	w.dendriticReset()
	w.immediateTransmission()
	pulses, others := w.eventQueue.ProcessDue(w.currentTick)
	w.applyPulses(pulses)
	w.processOthers(others)
	w.thresholdFiring()
	w.passiveUpdates()
	w.lifecycle()
	if w.metrics != nil && w.cfg.MetricsCollectionInterval > 0 && w.currentTick%uint64(w.cfg.MetricsCollectionInterval) == 0 {
		w.metrics.push(w.sampleMetrics())
	}
	w.currentTick++
}

// rebuildSpatialHash reindexes every active neuron's position. Rebuilt
// once per tick rather than maintained incrementally, matching spec
// §4.C: "rebuilt from neuron positions when sensory queries are made."
func (w *World) rebuildSpatialHash() {
	w.spatial.Clear()
	for _, id := range w.sortedNeuronIDs() {
		n := w.neurons[id]
		if n.IsActive {
			w.spatial.Insert(id, n.Position)
		}
	}
}

// Phase 1.
func (w *World) dendriticReset() {
	for _, id := range w.sortedNeuronIDs() {
		n := w.neurons[id]
		if n.IsActive {
			n.LVars[LVarDendriticPotential] = 0
		}
	}
}

// Phase 2: condition-gated immediate transmission (spec §4.E).
func (w *World) immediateTransmission() {
	for _, id := range w.sortedSynapseIDs() {
		s := w.synapses[id]
		sourceValue, ok := w.synapseSourceValue(s)
		if !ok {
			continue
		}

		ctx := synapse.Context{
			SourceValue:     sourceValue,
			SourceLVar:      w.lvarReader(s.SourceID, s.SourceKind),
			TargetLVar:      w.lvarReader(s.TargetID, s.TargetKind),
			GVar:            func(idx int) (float32, bool) { return w.GVar(idx), idx >= 0 && idx < 256 },
			TargetPotential: w.targetPotentialReader(s.TargetID, s.TargetKind),
		}
		holds := s.Condition.Evaluate(ctx, s.PreviousSourceValue, &s.SustainedCounter)

		if holds {
			switch s.SignalType {
			case synapse.Immediate:
				w.addPotentialToTarget(s.TargetID, s.TargetKind, sourceValue*s.EffectiveWeight())
				s.RecordTransmission()
			case synapse.Persistent:
				if s.PersistentValue != nil {
					w.addPotentialToTarget(s.TargetID, s.TargetKind, *s.PersistentValue*(1-s.FatigueLevel))
					s.RecordTransmission()
				}
			}
		}

		s.PreviousSourceValue = sourceValue
		s.ApplyFatigueDecay(w.cfg.DefaultDecayRate)
	}
}

// synapseSourceValue resolves a synapse's live source_value: a Neuron's
// ActivationPotential, or an InputNode's externally-driven value.
func (w *World) synapseSourceValue(s *synapse.Synapse) (float32, bool) {
	switch s.SourceKind {
	case synapse.EndpointNeuron:
		n, ok := w.neurons[s.SourceID]
		if !ok || !n.IsActive {
			return 0, false
		}
		return n.ActivationPotential(), true
	case synapse.EndpointInput:
		in, ok := w.inputNodes[s.SourceID]
		if !ok {
			return 0, false
		}
		return in.Value, true
	default:
		return 0, false
	}
}

func (w *World) lvarReader(id uint64, kind synapse.EndpointKind) func(int) (float32, bool) {
	return func(idx int) (float32, bool) {
		if kind != synapse.EndpointNeuron {
			return 0, false
		}
		return w.LoadLVar(id, idx)
	}
}

func (w *World) targetPotentialReader(id uint64, kind synapse.EndpointKind) func() (float32, bool) {
	return func() (float32, bool) {
		if kind != synapse.EndpointNeuron {
			return 0, false
		}
		n, ok := w.neurons[id]
		if !ok {
			return 0, false
		}
		return n.ActivationPotential(), true
	}
}

// addPotentialToTarget adds amount to a Neuron's DendriticPotential, or
// directly to an OutputNode's value (spec §4.E generalizes Immediate's
// target to either entity kind, per §3 "the target may be a Neuron or
// an OutputNode").
func (w *World) addPotentialToTarget(id uint64, kind synapse.EndpointKind, amount float32) {
	switch kind {
	case synapse.EndpointNeuron:
		if n, ok := w.neurons[id]; ok && n.IsActive {
			n.LVars[LVarDendriticPotential] += amount
		}
	case synapse.EndpointOutput:
		if out, ok := w.outputNodes[id]; ok {
			out.Value += amount
		}
	}
}

// Phase 3a.
func (w *World) applyPulses(pulses []event.Event) {
	for _, p := range pulses {
		if n, ok := w.neurons[p.TargetID]; ok {
			if n.IsActive {
				n.LVars[LVarSomaPotential] += p.PulseAmount
			}
			continue
		}
		if out, ok := w.outputNodes[p.TargetID]; ok {
			out.Value += p.PulseAmount
		}
	}
}

// Phase 3b.
func (w *World) processOthers(others []event.Event) {
	for _, e := range others {
		switch e.Kind {
		case event.KindExecuteGene:
			if err := w.interp.Run(w, e.GeneID, e.GeneCtx, e.TargetID, e.TargetID, w.cfg.DefaultGeneFuel); err != nil {
				w.logger.Warn("world: gene execution aborted", "gene", e.GeneID, "target", e.TargetID, "error", err)
			}
		case event.KindActivate:
			w.processActivate(e)
		}
	}
}

// Phase 4: brain evaluation and outgoing-synapse dispatch from an
// Activate event (spec §4.I step 4). Brain evaluation is skipped for a
// brainless neuron, but a firing neuron's Delayed/Transient/Persistent
// synapses still arm below regardless of whether it has a brain — those
// signal types are a property of the synapse, not of brain evaluation
// (spec §4.E).
func (w *World) processActivate(e event.Event) {
	n, ok := w.neurons[e.TargetID]
	if !ok || !n.IsActive {
		return
	}
	activationValue := e.PulseAmount // captured at fire time, see Neuron.LastFiredValue

	if n.Brain != nil {
		inputMap := n.Brain.InputMap()
		inputs := make([]float32, len(inputMap))
		for i, spec := range inputMap {
			inputs[i] = w.gatherBrainInput(n, spec, activationValue)
		}
		if err := n.Brain.Evaluate(inputs); err != nil {
			w.logger.Warn("world: brain evaluate failed", "neuron", n.ID, "error", err)
		} else {
			for _, out := range n.Brain.OutputMap() {
				switch out.Action {
				case brain.ActionSetOutputValue:
					if node, ok := w.outputNodes[uint64(out.Target)]; ok {
						node.Value = out.Value
					}
				case brain.ActionExecuteGene:
					geneID := uint32(wrapIndexLocal(float64(out.Value), w.geneCount))
					w.eventQueue.Push(event.Event{
						ExecutionTick: w.currentTick + 1,
						Kind:          event.KindExecuteGene,
						TargetID:      n.ID,
						GeneID:        geneID,
						GeneCtx:       event.ContextGeneral,
					})
				case brain.ActionMove:
					// Reserved; never dispatched by the core (spec §4.D).
				}
			}
		}
	}

	for _, sid := range n.OwnedSynapses {
		s, ok := w.synapses[sid]
		if !ok {
			continue
		}
		switch s.SignalType {
		case synapse.Delayed, synapse.Transient:
			delay := roundParameter(s.Parameter)
			if s.SignalType == synapse.Delayed && delay < 1 {
				delay = 1
			}
			if delay < 0 {
				delay = 0
			}
			w.eventQueue.Push(event.Event{
				ExecutionTick: w.currentTick + uint64(delay),
				Kind:          event.KindPotentialPulse,
				TargetID:      s.TargetID,
				PulseAmount:   activationValue * s.EffectiveWeight(),
			})
			s.RecordTransmission()
		case synapse.Persistent:
			pv := activationValue * s.Weight
			s.PersistentValue = &pv
		}
	}
}

func (w *World) gatherBrainInput(n *Neuron, spec brain.InputSpec, activationValue float32) float32 {
	switch spec.Kind {
	case brain.SourceActivationPotential:
		return activationValue
	case brain.SourceLocalVariable:
		if spec.Index >= 0 && spec.Index < lvarCount {
			return n.LVars[spec.Index]
		}
		return 0
	case brain.SourceGlobalHormone:
		return w.GVar(spec.Index)
	case brain.SourceConstantOne:
		return 1
	case brain.SourceHealth:
		return n.LVars[LVarHealth]
	case brain.SourceAge:
		return n.LVars[LVarAge]
	default:
		return 0
	}
}

func roundParameter(p float32) int {
	if p < 0 {
		return int(p - 0.5)
	}
	return int(p + 0.5)
}

// wrapIndexLocal is a local counterpart of bridge's unexported wrapIndex
// (spec §4.H modulus fallback), kept here since the two packages share
// no common dependency for it. Unlike wrapIndex it converts v with
// int(v), truncating toward zero rather than flooring, so a negative
// fraction such as -0.5 maps to 0.
func wrapIndexLocal(v float64, n int) int {
	if n <= 0 {
		return 0
	}
	iv := int(v)
	if iv >= 0 && iv < n {
		return iv
	}
	m := iv % n
	if m < 0 {
		m += n
	}
	return m
}

// Phase 5.
func (w *World) thresholdFiring() {
	for _, id := range w.sortedNeuronIDs() {
		n := w.neurons[id]
		if !n.IsActive || n.LVars[LVarRefractoryTimeLeft] > 0 {
			continue
		}
		threshold := w.cfg.DefaultFiringThreshold + n.LVars[LVarAdaptiveThreshold]
		potential := n.LVars[LVarDendriticPotential] + n.LVars[LVarSomaPotential]
		if potential < threshold {
			continue
		}

		n.LastFiredValue = potential
		w.eventQueue.Push(event.Event{
			ExecutionTick: w.currentTick + 1,
			Kind:          event.KindActivate,
			TargetID:      n.ID,
			PulseAmount:   potential,
		})
		n.LVars[LVarSomaPotential] = 0
		n.LVars[LVarRefractoryTimeLeft] = n.LVars[LVarRefractoryPeriod]
		n.LVars[LVarAdaptiveThreshold] += n.LVars[LVarThresholdAdaptationFactor]
		maWeight := w.cfg.FiringRateMAWeight
		n.LVars[LVarFiringRate] += (1 - n.LVars[LVarFiringRate]) * maWeight
	}
}

// Phase 6.
func (w *World) passiveUpdates() {
	for _, id := range w.sortedNeuronIDs() {
		n := w.neurons[id]
		if !n.IsActive {
			continue
		}
		n.LVars[LVarSomaPotential] *= w.cfg.DefaultDecayRate
		n.LVars[LVarAdaptiveThreshold] *= 1 - w.cfg.DefaultThresholdRecoveryRate
		if n.LVars[LVarRefractoryTimeLeft] > 0 {
			n.LVars[LVarRefractoryTimeLeft]--
		}
		n.LVars[LVarHealth] -= w.cfg.MetabolicTaxPerTick
		n.LVars[LVarAge]++
	}
}

// Phase 7: deactivate neurons with depleted health or on the
// deactivation list, then remove their incident synapses. Deactivation
// is "destroy", not merely flag, matching §3's "destroyed on health
// depletion or explicit apoptosis".
func (w *World) lifecycle() {
	dying := make(map[uint64]struct{})
	for _, id := range w.sortedNeuronIDs() {
		if w.neurons[id].LVars[LVarHealth] <= 0 {
			dying[id] = struct{}{}
		}
	}
	for _, id := range w.deactivationList {
		dying[id] = struct{}{}
	}
	w.deactivationList = w.deactivationList[:0]

	ids := make([]uint64, 0, len(dying))
	for id := range dying {
		ids = append(ids, id)
	}
	sortUint64s(ids)

	for _, id := range ids {
		if _, ok := w.neurons[id]; !ok {
			continue
		}
		if _, hasApoptosisHook := w.compiledGenome[GeneApoptosis]; hasApoptosisHook {
			if err := w.interp.Run(w, GeneApoptosis, event.ContextProtected, id, id, w.cfg.DefaultGeneFuel); err != nil {
				w.logger.Warn("world: apoptosis hook aborted", "neuron", id, "error", err)
			}
		}
		w.removeNeuronLocked(id)
	}
}
