package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/FelixaHub/mipverify/api"
	"github.com/FelixaHub/mipverify/encode"
	"github.com/FelixaHub/mipverify/envconfig"
	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/solver"
	"github.com/FelixaHub/mipverify/tensor"
	"github.com/FelixaHub/mipverify/verify"
)

// errBadRequest markiert Fehler in der Anfrage selbst
var errBadRequest = errors.New("bad request")

// errorStatus bildet Fehler auf HTTP-Statuscodes ab
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, tensor.ErrShapeMismatch),
		errors.Is(err, nn.ErrDimensionIncompatibility),
		errors.Is(err, verify.ErrInputDomain),
		errors.Is(err, verify.ErrTargets),
		errors.Is(err, verify.ErrTolerance),
		errors.Is(err, solver.ErrUnsupported):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errorStatus(err), gin.H{"error": err.Error()})
}

// network sucht das Netzwerk und formt die Eingabe in dessen Input-Shape
func (s *Server) network(c *gin.Context, id string, input []float64) (*nn.Network, *tensor.Tensor[float64], bool) {
	n, ok := s.networks[id]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("network %q not found", id)})
		return nil, nil, false
	}
	x, err := tensor.FromSlice(input, n.InputShape...)
	if err != nil {
		abort(c, err)
		return nil, nil, false
	}
	return n, x, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); errors.Is(err, io.EOF) {
		abort(c, fmt.Errorf("%w: missing request body", errBadRequest))
		return false
	} else if err != nil {
		abort(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return false
	}
	return true
}

// ListHandler listet die geladenen Netzwerke
func (s *Server) ListHandler(c *gin.Context) {
	resp := api.ListResponse{Networks: []api.NetworkInfo{}}
	for _, n := range s.networks {
		resp.Networks = append(resp.Networks, api.NetworkInfo{
			ID:         n.ID,
			InputShape: n.InputShape,
			Outputs:    n.NumOutputs(),
			Layers:     n.String(),
		})
	}
	sort.Slice(resp.Networks, func(i, j int) bool { return resp.Networks[i].ID < resp.Networks[j].ID })
	c.JSON(http.StatusOK, resp)
}

// ForwardHandler wertet ein Netzwerk konkret aus
func (s *Server) ForwardHandler(c *gin.Context) {
	var req api.ForwardRequest
	if !bindJSON(c, &req) {
		return
	}
	n, x, ok := s.network(c, req.Network, req.Input)
	if !ok {
		return
	}

	out, predicted, err := nn.Predict(c.Request.Context(), n, x)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ForwardResponse{Network: n.ID, Output: out, Predicted: predicted})
}

// SearchHandler fuehrt eine adversariale Suche aus. Die Anfrage blockiert
// bis die Suche beendet ist.
func (s *Server) SearchHandler(c *gin.Context) {
	var req api.SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	n, x, ok := s.network(c, req.Network, req.Input)
	if !ok {
		return
	}

	p, err := verify.ParsePerturbation(req.Perturbation)
	if err != nil {
		abort(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	norm := encode.L1
	if req.Norm != "" {
		if norm, err = encode.ParseNorm(req.Norm); err != nil {
			abort(c, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
	}

	ctx := c.Request.Context()
	if err := s.searches.Acquire(ctx, 1); err != nil {
		abort(c, err)
		return
	}
	defer s.searches.Release(1)

	res, err := s.builder.FindAdversarialExample(ctx, verify.Request{
		Network:      n,
		Input:        x,
		Targets:      req.Targets,
		Invert:       req.Invert,
		Perturbation: p,
		Norm:         norm,
		Tolerance:    req.Tolerance,
		SlackWeight:  req.SlackWeight,
	})
	if err != nil {
		slog.Info("search failed", "network", n.ID, "error", err)
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse(n.ID, res))
}

// SearchResponse uebersetzt ein Suchergebnis in die API-Antwort
func SearchResponse(network string, res *verify.Result) api.SearchResponse {
	return api.SearchResponse{
		Network:          network,
		Status:           res.Status.String(),
		Predicted:        res.Predicted,
		TargetIndexes:    res.TargetIndexes,
		Perturbation:     res.Perturbation,
		PerturbedInput:   res.PerturbedInput,
		Output:           res.Output,
		AdversarialLabel: res.AdversarialLabel,
		NormValue:        res.NormValue,
		Objective:        res.Objective,
		Bound:            res.Bound,
		Vars:             res.Model.Vars,
		Binaries:         res.Model.Binaries,
		Constraints:      res.Model.Constraints,
		Cached:           res.Cached,
		BuildTime:        res.BuildTime,
		SolveTime:        res.SolveTime,
		TotalTime:        res.TotalTime,
	}
}

// ConfigHandler gibt die aktuelle Konfiguration aus der Umgebung zurueck
func (s *Server) ConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, envconfig.Values())
}
