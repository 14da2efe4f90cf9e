// Package classifyapi exposes the classification engine over HTTP and
// WebSocket, grounded on the teacher's internal/api.Server (CORS
// middleware, JSON request/response helpers) and internal/collab's
// gorilla/mux route registration.
package classifyapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"ntcstep/internal/classifycache"
	"ntcstep/internal/engine"
	"ntcstep/internal/stepmetrics"
	"ntcstep/internal/tracing"
	"ntcstep/pkg/structtypes"
)

// Server wires a classification Context (and optional result cache) to
// a set of HTTP routes.
type Server struct {
	ctx    *engine.Context
	cache  *classifycache.Cache // nil disables caching
	tracer *tracing.Tracer      // nil disables tracing
}

// NewServer builds a Server. cache and tracer may be nil.
func NewServer(ctx *engine.Context, cache *classifycache.Cache, tracer *tracing.Tracer) *Server {
	return &Server{ctx: ctx, cache: cache, tracer: tracer}
}

// RegisterRoutes registers this server's routes on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/classify/step", s.cors(s.handleClassifyStep)).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/v1/classify/steps", s.cors(s.handleClassifySteps)).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/v1/classify/stream", s.handleClassifyStream)
	router.HandleFunc("/api/v1/cache/stats", s.cors(s.handleCacheStats)).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/v1/health", s.cors(s.handleHealth)).Methods("GET", "OPTIONS")

	log.Println("[classifyapi] routes registered")
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[classifyapi] failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}

// atomRequest is the wire shape of one atom in a classify request.
type atomRequest struct {
	AtomID string  `json:"atom_id"`
	CompID string  `json:"comp_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

// stepRequest is the wire shape of one dinucleotide step: the atoms of
// its two residues, in any order (matched by atom_id).
type stepRequest struct {
	FirstResidue  []atomRequest `json:"first_residue"`
	SecondResidue []atomRequest `json:"second_residue"`
}

func toStep(req stepRequest) structtypes.DinucleotideStep {
	conv := func(atoms []atomRequest) []structtypes.Atom {
		out := make([]structtypes.Atom, len(atoms))
		for i, a := range atoms {
			out[i] = structtypes.Atom{
				AuthAtomID: a.AtomID, LabelAtomID: a.AtomID,
				AuthCompID: a.CompID, LabelCompID: a.CompID,
				Coords: structtypes.Vec3{X: a.X, Y: a.Y, Z: a.Z},
			}
		}
		return out
	}
	first := conv(req.FirstResidue)
	second := conv(req.SecondResidue)
	all := append(append([]structtypes.Atom{}, first...), second...)
	return structtypes.DinucleotideStep{
		Atoms:         all,
		FirstResidue:  structtypes.NewView(first),
		SecondResidue: structtypes.NewView(second),
	}
}

// classifiedStepResponse mirrors engine.ClassifiedStep with enum fields
// rendered as their string names, for a stable, language-neutral wire
// format.
type classifiedStepResponse struct {
	AssignedNtC  string `json:"assigned_ntc"`
	AssignedCANA string `json:"assigned_cana"`
	ClosestNtC   string `json:"closest_ntc"`
	ClosestCANA  string `json:"closest_cana"`

	Metrics     [12]float64 `json:"metrics"`
	MetricDiffs [12]float64 `json:"metric_diffs"`

	P1   float64 `json:"p1"`
	P2   float64 `json:"p2"`
	Tau1 float64 `json:"tau1"`
	Tau2 float64 `json:"tau2"`

	Pucker1 string `json:"pucker1"`
	Pucker2 string `json:"pucker2"`

	RMSDToClosestNtC  float64 `json:"rmsd_to_closest_ntc"`
	ClosestGoldenStep string  `json:"closest_golden_step"`
	Confal            float64 `json:"confal"`
	Violations        uint32  `json:"violations"`
}

func toResponse(cs engine.ClassifiedStep) classifiedStepResponse {
	return classifiedStepResponse{
		AssignedNtC:       cs.AssignedNtC.String(),
		AssignedCANA:      cs.AssignedCANA.String(),
		ClosestNtC:        cs.ClosestNtC.String(),
		ClosestCANA:       cs.ClosestCANA.String(),
		Metrics:           cs.Metrics,
		MetricDiffs:       cs.MetricDiffs,
		P1:                cs.P1,
		P2:                cs.P2,
		Tau1:              cs.Tau1,
		Tau2:              cs.Tau2,
		Pucker1:           cs.Pucker1.String(),
		Pucker2:           cs.Pucker2.String(),
		RMSDToClosestNtC:  cs.RMSDToClosestNtC,
		ClosestGoldenStep: cs.ClosestGoldenStep,
		Confal:            cs.Confal,
		Violations:        uint32(cs.Violations),
	}
}

func (s *Server) classifyCached(step structtypes.DinucleotideStep) (engine.ClassifiedStep, error) {
	if s.cache == nil {
		return engine.ClassifyStepTraced(step, s.ctx, s.tracer)
	}
	m, err := stepmetrics.Measure(step.FirstResidue, step.SecondResidue)
	if err != nil {
		return engine.ClassifyStepTraced(step, s.ctx, s.tracer)
	}
	key := classifycache.KeyForMetrics(m)
	if cs, ok := s.cache.Get(key); ok {
		return cs, nil
	}
	cs, err := engine.ClassifyStepTraced(step, s.ctx, s.tracer)
	if err == nil {
		s.cache.Put(key, cs)
	}
	return cs, err
}

func (s *Server) handleClassifyStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cs, err := s.classifyCached(toStep(req))
	if err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, toResponse(cs))
}

func (s *Server) handleClassifySteps(w http.ResponseWriter, r *http.Request) {
	var req []stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req) == 0 {
		s.sendError(w, http.StatusBadRequest, "empty step list")
		return
	}

	out := make([]map[string]interface{}, len(req))
	for i, sr := range req {
		cs, err := s.classifyCached(toStep(sr))
		if err != nil {
			out[i] = map[string]interface{}{"error": err.Error()}
			continue
		}
		out[i] = map[string]interface{}{"result": toResponse(cs)}
	}
	s.sendJSON(w, http.StatusOK, out)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{"enabled": s.cache != nil}
	if s.cache != nil {
		stats["in_memory_entries"] = s.cache.Len()
	}
	s.sendJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
