package bridge

import (
	"math"

	"github.com/iancoleman/strcase"

	"github.com/hidra-sim/hidra/internal/event"
	"github.com/hidra-sim/hidra/internal/spatial"
	"github.com/hidra-sim/hidra/internal/synapse"
)

// apiFunc is the uniform shape of every host API: take the execution
// state and already-evaluated f32 arguments, return a value (ignored by
// the caller when the genome table marks the API void). This mirrors
// spec §4.H's "fixed parameter signature of f32s" contract.
type apiFunc func(st *execState, args []float64) float64

// wrapIndex implements spec §4.H's modulus fallback: a typed-index
// argument is used directly if it is already in range, else wrapped via
// ((v mod n) + n) mod n.
func wrapIndex(v float64, n int) int {
	if n <= 0 {
		return 0
	}
	iv := int(math.Floor(v))
	if iv >= 0 && iv < n {
		return iv
	}
	m := iv % n
	if m < 0 {
		m += n
	}
	return m
}

func target(st *execState) uint64 {
	return contextualTarget(st.ctx, st.selfID, st.systemTarget)
}

var apiTable = map[string]apiFunc{
	"StoreLVar":      apiStoreLVar,
	"LoadLVar":       apiLoadLVar,
	"StoreGVar":      apiStoreGVar,
	"LoadGVar":       apiLoadGVar,
	"GetSelfId":      apiGetSelfID,
	"GetPosition":    apiGetPosition,
	"CreateNeuron":   apiCreateNeuron,
	"Mitosis":        apiMitosis,
	"Apoptosis":      apiApoptosis,
	"SetSystemTarget": apiSetSystemTarget,

	"AddSynapse":               apiAddSynapse,
	"ModifySynapse":            apiModifySynapse,
	"SetSynapseSimpleProperty": apiSetSynapseSimpleProperty,
	"SetSynapseCondition":      apiSetSynapseCondition,
	"ClearSynapseCondition":    apiClearSynapseCondition,

	"GetNeighborCount":           apiGetNeighborCount,
	"GetNearestNeighborId":       apiGetNearestNeighborID,
	"GetNearestNeighborPosition": apiGetNearestNeighborPosition,

	"SetBrainType":                  apiSetBrainType,
	"ConfigureLogicGate":            apiConfigureLogicGate,
	"ClearBrain":                    apiClearBrain,
	"AddBrainNode":                  apiAddBrainNode,
	"AddBrainConnection":            apiAddBrainConnection,
	"RemoveBrainNode":               apiRemoveBrainNode,
	"RemoveBrainConnection":         apiRemoveBrainConnection,
	"ConfigureOutputNode":           apiConfigureOutputNode,
	"SetBrainInputSource":           apiSetBrainInputSource,
	"SetNodeActivationFunction":     apiSetNodeActivationFunction,
	"SetBrainConnectionWeight":      apiSetBrainConnectionWeight,
	"SetBrainNodeProperty":          apiSetBrainNodeProperty,
	"SetRefractoryPeriod":           apiSetRefractoryPeriod,
	"SetThresholdAdaptation":        apiSetThresholdAdaptation,
	"GetFiringRate":                 apiGetFiringRate,
	"CreateBrain_SimpleFeedForward": apiCreateBrainSimpleFeedForward,
	"CreateBrain_Competitive":       apiCreateBrainCompetitive,
}

// normalizedAPITable tolerates genome-authoring tools that emit API
// names in a different case/separator convention (snake_case,
// kebab-case) than the MasterInstructionOrder's canonical
// PascalCase/underscore names, by keying lookups on a canonicalized
// form as a fallback after an exact match misses.
var normalizedAPITable = func() map[string]apiFunc {
	m := make(map[string]apiFunc, len(apiTable))
	for name, fn := range apiTable {
		m[strcase.ToCamel(name)] = fn
	}
	return m
}()

func lookupAPI(name string) (apiFunc, bool) {
	if fn, ok := apiTable[name]; ok {
		return fn, true
	}
	fn, ok := normalizedAPITable[strcase.ToCamel(name)]
	return fn, ok
}

func apiStoreLVar(st *execState, args []float64) float64 {
	idx := int(args[0])
	if idx < 0 || idx >= userLVarWritableLimit {
		return 0
	}
	st.env.StoreLVar(target(st), idx, float32(args[1]))
	return 0
}

// userLVarWritableLimit mirrors config.USERLVarWritableLimit; duplicated
// here (rather than importing internal/config) to keep the bridge free
// of a dependency whose only other use would be this one constant.
const userLVarWritableLimit = 200

func apiLoadLVar(st *execState, args []float64) float64 {
	idx := int(args[0])
	v, ok := st.env.LoadLVar(target(st), idx)
	if !ok {
		return 0
	}
	return float64(v)
}

func apiStoreGVar(st *execState, args []float64) float64 {
	idx := wrapIndex(args[0], 256)
	st.env.SetGVar(idx, float32(args[1]))
	return 0
}

func apiLoadGVar(st *execState, args []float64) float64 {
	idx := wrapIndex(args[0], 256)
	return float64(st.env.GVar(idx))
}

func apiGetSelfID(st *execState, args []float64) float64 {
	return float64(target(st))
}

func apiGetPosition(st *execState, args []float64) float64 {
	pos, ok := st.env.Position(target(st))
	if !ok {
		return 0
	}
	switch wrapIndex(args[0], 3) {
	case 0:
		return pos.X
	case 1:
		return pos.Y
	default:
		return pos.Z
	}
}

func apiCreateNeuron(st *execState, args []float64) float64 {
	if st.ctx != event.ContextSystem {
		st.env.Warn("bridge: CreateNeuron called outside System context, ignoring")
		return 0
	}
	pos := spatial.Position{X: args[0], Y: args[1], Z: args[2]}
	id := st.env.CreateNeuron(pos)
	st.systemTarget = id
	return float64(id)
}

func apiMitosis(st *execState, args []float64) float64 {
	if st.ctx == event.ContextProtected {
		st.env.Warn("bridge: Mitosis called in Protected context, ignoring")
		return 0
	}
	offset := spatial.Position{X: args[0], Y: args[1], Z: args[2]}
	childID, ok := st.env.Mitosis(target(st), offset)
	if !ok {
		return 0
	}
	return float64(childID)
}

func apiApoptosis(st *execState, args []float64) float64 {
	if st.ctx != event.ContextGeneral {
		st.env.Warn("bridge: Apoptosis called outside General context, ignoring")
		return 0
	}
	st.env.MarkApoptosis(target(st))
	return 0
}

func apiSetSystemTarget(st *execState, args []float64) float64 {
	if st.ctx != event.ContextSystem {
		st.env.Warn("bridge: SetSystemTarget called outside System context, ignoring")
		return 0
	}
	direct := uint64(args[0])
	if st.env.NeuronExists(direct) {
		st.systemTarget = direct
		return 0
	}
	ord := wrapIndex(args[0], st.env.NeuronCount())
	if id, ok := st.env.NeuronIDByOrdinal(ord); ok {
		st.systemTarget = id
	}
	return 0
}

func apiAddSynapse(st *execState, args []float64) float64 {
	tt := synapse.TargetKind(wrapIndex(args[0], 3))
	rawID := args[1]
	sig := synapse.SignalType(wrapIndex(args[2], 4))
	weight, param := float32(args[3]), float32(args[4])

	var targetID uint64
	var ok bool
	switch tt {
	case synapse.TargetNeuron:
		targetID, ok = resolveByOrdinalOrDirect(rawID, uint64(rawID), st.env.NeuronExists, st.env.NeuronCount, st.env.NeuronIDByOrdinal)
	case synapse.TargetOutput:
		targetID, ok = resolveByOrdinalOrDirect(rawID, uint64(rawID), st.env.OutputNodeExists, st.env.OutputNodeCount, st.env.OutputNodeIDByOrdinal)
	case synapse.TargetInput:
		targetID, ok = resolveByOrdinalOrDirect(rawID, uint64(rawID), st.env.InputNodeExists, st.env.InputNodeCount, st.env.InputNodeIDByOrdinal)
	}
	if !ok {
		return 0
	}
	newID, ok := st.env.AddSynapse(target(st), tt, targetID, sig, weight, param)
	if !ok {
		return 0
	}
	return float64(newID)
}

func resolveByOrdinalOrDirect(raw float64, direct uint64, exists func(uint64) bool, count func() int, byOrdinal func(int) (uint64, bool)) (uint64, bool) {
	if exists(direct) {
		return direct, true
	}
	return byOrdinal(wrapIndex(raw, count()))
}

func apiModifySynapse(st *execState, args []float64) float64 {
	id, ok := resolveOwnedSynapse(st, args[0])
	if !ok {
		return 0
	}
	sig := synapse.SignalType(wrapIndex(args[3], 4))
	st.env.ModifySynapse(id, float32(args[1]), float32(args[2]), sig)
	return 0
}

func apiSetSynapseSimpleProperty(st *execState, args []float64) float64 {
	id, ok := resolveOwnedSynapse(st, args[0])
	if !ok {
		return 0
	}
	prop := wrapIndex(args[1], 3)
	st.env.SetSynapseSimpleProperty(id, prop, float32(args[2]))
	return 0
}

func apiSetSynapseCondition(st *execState, args []float64) float64 {
	id, ok := resolveOwnedSynapse(st, args[0])
	if !ok {
		return 0
	}
	kind := wrapIndex(args[1], 5)
	st.env.SetSynapseCondition(id, kind, float32(args[2]), float32(args[3]), float32(args[4]))
	return 0
}

func apiClearSynapseCondition(st *execState, args []float64) float64 {
	id, ok := resolveOwnedSynapse(st, args[0])
	if !ok {
		return 0
	}
	st.env.ClearSynapseCondition(id)
	return 0
}

func resolveOwnedSynapse(st *execState, localIdxArg float64) (uint64, bool) {
	owner := target(st)
	count := st.env.OwnedSynapseCount(owner)
	if count == 0 {
		return 0, false
	}
	idx := wrapIndex(localIdxArg, count)
	return st.env.OwnedSynapseByOrdinal(owner, idx)
}

func apiGetNeighborCount(st *execState, args []float64) float64 {
	pos, ok := st.env.Position(target(st))
	if !ok {
		return 0
	}
	return float64(st.env.NeighborCount(pos, args[0]))
}

func apiGetNearestNeighborID(st *execState, args []float64) float64 {
	pos, ok := st.env.Position(target(st))
	if !ok {
		return 0
	}
	id, _, ok := st.env.NearestNeighbor(pos, target(st))
	if !ok {
		return 0
	}
	return float64(id)
}

func apiGetNearestNeighborPosition(st *execState, args []float64) float64 {
	pos, ok := st.env.Position(target(st))
	if !ok {
		return 0
	}
	_, npos, ok := st.env.NearestNeighbor(pos, target(st))
	if !ok {
		return 0
	}
	switch wrapIndex(args[0], 3) {
	case 0:
		return npos.X
	case 1:
		return npos.Y
	default:
		return npos.Z
	}
}

func apiSetBrainType(st *execState, args []float64) float64 {
	st.env.SetBrainType(target(st), wrapIndex(args[0], 2))
	return 0
}

func apiConfigureLogicGate(st *execState, args []float64) float64 {
	st.env.ConfigureLogicGate(target(st), wrapIndex(args[0], 8), wrapIndex(args[1], 4), float32(args[2]))
	return 0
}

func apiClearBrain(st *execState, args []float64) float64 {
	st.env.ClearBrain(target(st))
	return 0
}

func apiAddBrainNode(st *execState, args []float64) float64 {
	// args[4] (routing extra) is intentionally unused: input/output
	// routing is configured separately via SetBrainInputSource and
	// ConfigureOutputNode, per spec §4.H's own split of those concerns.
	st.env.AddBrainNode(target(st), uint32(args[0]), wrapIndex(args[1], 3), float32(args[2]), wrapIndex(args[3], 4))
	return 0
}

func apiAddBrainConnection(st *execState, args []float64) float64 {
	ok := st.env.AddBrainConnection(target(st), uint32(args[0]), uint32(args[1]), float32(args[2]))
	return boolToF64(ok)
}

func apiRemoveBrainNode(st *execState, args []float64) float64 {
	st.env.RemoveBrainNode(target(st), uint32(args[0]))
	return 0
}

func apiRemoveBrainConnection(st *execState, args []float64) float64 {
	st.env.RemoveBrainConnection(target(st), uint32(args[0]), uint32(args[1]))
	return 0
}

func apiConfigureOutputNode(st *execState, args []float64) float64 {
	st.env.ConfigureOutputNode(target(st), uint32(args[0]), uint32(args[1]))
	return 0
}

func apiSetBrainInputSource(st *execState, args []float64) float64 {
	st.env.SetBrainInputSource(target(st), uint32(args[0]), wrapIndex(args[1], 6), int(args[2]))
	return 0
}

func apiSetNodeActivationFunction(st *execState, args []float64) float64 {
	st.env.SetNodeActivationFunction(target(st), uint32(args[0]), wrapIndex(args[1], 4))
	return 0
}

func apiSetBrainConnectionWeight(st *execState, args []float64) float64 {
	st.env.SetBrainConnectionWeight(target(st), uint32(args[0]), uint32(args[1]), float32(args[2]))
	return 0
}

func apiSetBrainNodeProperty(st *execState, args []float64) float64 {
	st.env.SetBrainNodeProperty(target(st), uint32(args[0]), wrapIndex(args[1], 2), float32(args[2]))
	return 0
}

func apiSetRefractoryPeriod(st *execState, args []float64) float64 {
	st.env.SetRefractoryPeriod(target(st), float32(args[0]))
	return 0
}

func apiSetThresholdAdaptation(st *execState, args []float64) float64 {
	st.env.SetThresholdAdaptation(target(st), float32(args[0]), float32(args[1]))
	return 0
}

func apiGetFiringRate(st *execState, args []float64) float64 {
	return float64(st.env.FiringRate(target(st)))
}

func apiCreateBrainSimpleFeedForward(st *execState, args []float64) float64 {
	st.env.CreateBrainSimpleFeedForward(target(st), int(args[0]), int(args[1]))
	return 0
}

func apiCreateBrainCompetitive(st *execState, args []float64) float64 {
	st.env.CreateBrainCompetitive(target(st), int(args[0]), int(args[1]))
	return 0
}
