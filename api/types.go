package api

import (
	"fmt"
	"time"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the mipverify server logs for details"
	}
}

// ForwardRequest evaluates a network on a concrete input. Input is the
// row-major data of a tensor of the network's input shape.
type ForwardRequest struct {
	Network string    `json:"network"`
	Input   []float64 `json:"input"`
}

// ForwardResponse is the response of [Client.Forward].
type ForwardResponse struct {
	Network   string    `json:"network"`
	Output    []float64 `json:"output"`
	Predicted int       `json:"predicted"`
}

// SearchRequest asks for the least-norm perturbation of Input that makes
// one of Targets the prediction. Without targets the search is untargeted.
type SearchRequest struct {
	Network string    `json:"network"`
	Input   []float64 `json:"input"`
	Targets []int     `json:"targets,omitempty"`
	Invert  bool      `json:"invert,omitempty"`

	// Perturbation is "unrestricted" (default) or "linf:<epsilon>".
	Perturbation string `json:"perturbation,omitempty"`
	// Norm is "l1" (default), "l2" or "linf".
	Norm string `json:"norm,omitempty"`
	// Tolerance is the winning margin; absent selects the server default.
	Tolerance   *float64 `json:"tolerance,omitempty"`
	SlackWeight float64  `json:"slack_weight,omitempty"`
}

// SearchResponse is the response of [Client.Search].
type SearchResponse struct {
	Network string `json:"network"`
	Status  string `json:"status"`

	Predicted        int       `json:"predicted"`
	TargetIndexes    []int     `json:"target_indexes"`
	Perturbation     []float64 `json:"perturbation,omitempty"`
	PerturbedInput   []float64 `json:"perturbed_input,omitempty"`
	Output           []float64 `json:"output,omitempty"`
	AdversarialLabel int       `json:"adversarial_label"`
	NormValue        float64   `json:"norm_value"`
	Objective        *float64  `json:"objective,omitempty"`
	Bound            *float64  `json:"bound,omitempty"`

	Vars        int  `json:"vars"`
	Binaries    int  `json:"binaries"`
	Constraints int  `json:"constraints"`
	Cached      bool `json:"cached"`

	BuildTime time.Duration `json:"build_time"`
	SolveTime time.Duration `json:"solve_time"`
	TotalTime time.Duration `json:"total_time"`
}

// NetworkInfo describes a network the server holds.
type NetworkInfo struct {
	ID         string `json:"id"`
	InputShape []int  `json:"input_shape"`
	Outputs    int    `json:"outputs"`
	Layers     string `json:"layers"`
}

// ListResponse is the response of [Client.List].
type ListResponse struct {
	Networks []NetworkInfo `json:"networks"`
}

// VersionResponse is the response of [Client.Version].
type VersionResponse struct {
	Version string `json:"version"`
}
