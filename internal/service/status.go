package service

import (
	"sync/atomic"

	"image-search-service/internal/models"
	"image-search-service/internal/util"

	"go.uber.org/zap"
)

// StatusController tracks collaborator health for visual search. The two
// flags are flipped only by the outcomes of real collaborator calls (plus
// the startup/periodic probes); fallback mode is derived, never stored.
//
// Flags are atomics so in-flight requests read them without locking. A
// request observing a stale value while another request flips a flag is
// fine; the flags converge on the next collaborator call or probe.
type StatusController struct {
	modelLoaded     atomic.Bool
	vectorConnected atomic.Bool
	logger          *zap.Logger
}

// NewStatusController creates a controller with both flags down.
// Conservative initial state: degraded until a probe proves otherwise.
func NewStatusController() *StatusController {
	return &StatusController{logger: util.GetLogger()}
}

// SetModelLoaded records the outcome of an embedding extractor call.
func (sc *StatusController) SetModelLoaded(ok bool) {
	if sc.modelLoaded.Swap(ok) != ok {
		sc.logTransition("embedding_model", ok)
	}
}

// SetVectorConnected records the outcome of a vector index call.
func (sc *StatusController) SetVectorConnected(ok bool) {
	if sc.vectorConnected.Swap(ok) != ok {
		sc.logTransition("vector_index", ok)
	}
}

// FallbackMode reports whether visual search is currently degraded.
func (sc *StatusController) FallbackMode() bool {
	return !(sc.modelLoaded.Load() && sc.vectorConnected.Load())
}

// Snapshot returns the current status for the observability endpoint.
func (sc *StatusController) Snapshot() models.ServiceStatus {
	model := sc.modelLoaded.Load()
	vector := sc.vectorConnected.Load()
	return models.ServiceStatus{
		ModelLoaded:       model,
		PineconeConnected: vector,
		FallbackMode:      !(model && vector),
	}
}

func (sc *StatusController) logTransition(collaborator string, ok bool) {
	state := "down"
	if ok {
		state = "up"
	}
	util.FallbackTransitionsTotal.WithLabelValues(collaborator, state).Inc()
	sc.logger.Info("Collaborator health changed",
		zap.String("collaborator", collaborator),
		zap.String("state", state))
}
