package nn

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// fingerprint hashes everything the network computes with: the input
// shape, the layer chain and every parameter value.
func fingerprint(inputShape []int, convs []*ConvLayer, fcs []*FullyConnectedLayer, logits *SoftmaxLayer) string {
	h := sha256.New()
	ints := func(tag string, xs ...int) {
		h.Write([]byte(tag))
		for _, x := range xs {
			binary.Write(h, binary.LittleEndian, int64(x)) //nolint:errcheck
		}
	}
	ints("input", append([]int{len(inputShape)}, inputShape...)...)
	for _, l := range convs {
		ints("conv", len(l.Conv.Filter.Shape))
		ints("", l.Conv.Filter.Shape...)
		floats(h, l.Conv.Filter.Data)
		floats(h, l.Conv.Bias)
		ints("pool", l.Pool.Strides[:]...)
	}
	for _, l := range fcs {
		ints("fc", l.MatMul.Rows(), l.MatMul.Cols())
		floats(h, l.MatMul.Matrix.Data)
		floats(h, l.MatMul.Bias)
		ints("mask", len(l.Mask))
		ints("", l.Mask...)
	}
	ints("logits", logits.MatMul.Rows(), logits.MatMul.Cols())
	floats(h, logits.MatMul.Matrix.Data)
	floats(h, logits.MatMul.Bias)
	return hex.EncodeToString(h.Sum(nil))
}

func floats(h hash.Hash, xs []float64) {
	var buf [8]byte
	for _, x := range xs {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		h.Write(buf[:])
	}
}
