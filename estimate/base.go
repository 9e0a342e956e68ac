package estimate

import (
	"fmt"

	gpc "github.com/milosgajdos/go-gpc"
	"gonum.org/v1/gonum/mat"
)

// Base is base estimate
type Base struct {
	// val is estimated value
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBase returns base estimate given val with zero covariance
func NewBase(val mat.Vector) *Base {
	v := cloneVec(val)

	c := &mat.SymDense{}
	if v.Len() > 0 {
		c = mat.NewSymDense(v.Len(), nil)
	}

	return &Base{
		val: v,
		cov: c,
	}
}

// NewBaseWithCov returns base estimate given value and covariance.
// It returns error if val and cov dimensions do not match.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	if val.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("%w: estimate value %d, covariance %d x %d",
			gpc.ErrDimension, val.Len(), cov.SymmetricDim(), cov.SymmetricDim())
	}

	return &Base{
		val: cloneVec(val),
		cov: cloneSym(cov),
	}, nil
}

// Val returns estimated value
func (b *Base) Val() mat.Vector {
	return cloneVec(b.val)
}

// Cov returns covariance estimate
func (b *Base) Cov() mat.Symmetric {
	return cloneSym(b.cov)
}

// InitCond is initial condition given by state and its covariance
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	return &InitCond{
		state: cloneVec(state),
		cov:   cloneSym(cov),
	}
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	return cloneVec(c.state)
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	return cloneSym(c.cov)
}

// cloneVec returns a copy of v; nil and empty vectors are copied to an empty vector
func cloneVec(v mat.Vector) *mat.VecDense {
	out := &mat.VecDense{}
	if v == nil || v.Len() == 0 {
		return out
	}
	out.CloneFromVec(v)

	return out
}

// cloneSym returns a copy of s; nil and empty matrices are copied to an empty matrix
func cloneSym(s mat.Symmetric) *mat.SymDense {
	if s == nil || s.SymmetricDim() == 0 {
		return &mat.SymDense{}
	}

	out := mat.NewSymDense(s.SymmetricDim(), nil)
	out.CopySym(s)

	return out
}
