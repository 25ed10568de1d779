package scconv

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Default unit parameters.
const (
	GroupNum      int64   = 4
	GateThreshold float64 = 0.5
	Alpha         float64 = 0.5
	SqueezeRatio  int64   = 2
	GroupSize     int64   = 2
)

// ScConv applies SRU then CRU at a fixed channel count.
type ScConv struct {
	sru *SRU
	cru *CRU
}

// NewScConv creates an ScConv with default unit parameters.
func NewScConv(p *nn.Path, channels int64) (*ScConv, error) {
	sru, err := NewSRU(p.Sub("sru"), channels, GroupNum, GateThreshold)
	if err != nil {
		return nil, err
	}

	cru, err := NewCRU(p.Sub("cru"), channels, Alpha, SqueezeRatio, GroupSize)
	if err != nil {
		return nil, err
	}

	return &ScConv{sru: sru, cru: cru}, nil
}

// ForwardT implements ts.ModuleT for ScConv.
func (m *ScConv) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	s := m.sru.ForwardT(x, train)
	res := m.cru.ForwardT(s, train)
	s.MustDrop()

	return res
}
