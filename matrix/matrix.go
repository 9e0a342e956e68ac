package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Toeplitz returns a rows x cols lower triangular Toeplitz matrix built from samples g:
// element [r, c] is g[r-c] for r >= c and zero otherwise.
// Samples past the end of g are equal to the last sample of g.
// It panics if g is empty.
func Toeplitz(g []float64, rows, cols int) *mat.Dense {
	last := g[len(g)-1]
	t := mat.NewDense(rows, cols, nil)

	for r := 0; r < rows; r++ {
		for c := 0; c <= r && c < cols; c++ {
			v := last
			if r-c < len(g) {
				v = g[r-c]
			}
			t.Set(r, c, v)
		}
	}

	return t
}

// Blocks assembles a block matrix from blocks stored in row-major order.
// All blocks in the same block row must have the same number of rows and
// all blocks in the same block column must have the same number of columns.
func Blocks(blocks [][]mat.Matrix) (*mat.Dense, error) {
	if len(blocks) == 0 || len(blocks[0]) == 0 {
		return nil, fmt.Errorf("invalid block layout: [%d x 0]", len(blocks))
	}

	heights := make([]int, len(blocks))
	widths := make([]int, len(blocks[0]))

	for i, row := range blocks {
		if len(row) != len(widths) {
			return nil, fmt.Errorf("invalid block row %d: %d blocks, expected %d", i, len(row), len(widths))
		}
		for j, b := range row {
			r, c := b.Dims()
			if i == 0 {
				widths[j] = c
			}
			if j == 0 {
				heights[i] = r
			}
			if r != heights[i] || c != widths[j] {
				return nil, fmt.Errorf("invalid block [%d, %d] dimensions: [%d x %d]", i, j, r, c)
			}
		}
	}

	rows, cols := 0, 0
	for _, h := range heights {
		rows += h
	}
	for _, w := range widths {
		cols += w
	}

	out := mat.NewDense(rows, cols, nil)
	r0 := 0
	for i, row := range blocks {
		c0 := 0
		for j, b := range row {
			view := out.Slice(r0, r0+heights[i], c0, c0+widths[j]).(*mat.Dense)
			view.Copy(b)
			c0 += widths[j]
		}
		r0 += heights[i]
	}

	return out, nil
}

// ExpandDiag returns a diagonal matrix which repeats every weight in w n times:
// diag(w[0], ..., w[0], w[1], ..., w[1], ...).
func ExpandDiag(w []float64, n int) *mat.DiagDense {
	data := make([]float64, len(w)*n)
	for i, v := range w {
		for k := 0; k < n; k++ {
			data[i*n+k] = v
		}
	}

	return mat.NewDiagDense(len(data), data)
}

// DiagValues returns a copy of the diagonal of d.
func DiagValues(d mat.Diagonal) []float64 {
	n := d.Diag()
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = d.At(i, i)
	}

	return vals
}

// IsSymmetric checks if m is square and symmetric within relative tolerance tol.
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}

	scale := mat.Norm(m, math.Inf(1))
	if scale == 0 {
		scale = 1
	}

	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol*scale {
				return false
			}
		}
	}

	return true
}

// Symmetrize returns the symmetric part ½(m + mᵀ) of square matrix m.
// It panics if m is not square.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return s
}

// IsPosDef checks if s is positive definite by attempting its Cholesky factorization.
func IsPosDef(s mat.Symmetric) bool {
	var chol mat.Cholesky
	return chol.Factorize(s)
}

// Convolve returns the product of polynomials a and b given by their coefficients.
// It returns nil if either a or b is empty.
func Convolve(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		floats.AddScaled(out[i:i+len(b)], av, b)
	}

	return out
}
