package predict

// ring is a fixed capacity buffer of the most recent samples of a signal.
// Pushing a sample drops the oldest one; index 0 is always the most recent sample.
type ring struct {
	buf  []float64
	head int
}

func newRing(n int) *ring {
	return &ring{buf: make([]float64, n)}
}

// reset fills the ring with vals ordered most recent first.
// Slots not covered by vals are zeroed.
func (r *ring) reset(vals []float64) {
	r.head = 0
	n := copy(r.buf, vals)
	for i := n; i < len(r.buf); i++ {
		r.buf[i] = 0
	}
}

// push stores v as the most recent sample
func (r *ring) push(v float64) {
	if len(r.buf) == 0 {
		return
	}
	r.head--
	if r.head < 0 {
		r.head = len(r.buf) - 1
	}
	r.buf[r.head] = v
}

// at returns i-th most recent sample
func (r *ring) at(i int) float64 {
	return r.buf[(r.head+i)%len(r.buf)]
}

// dot returns Σ c[l]·at(l) over the overlap of c and the ring
func (r *ring) dot(c []float64) float64 {
	n := len(c)
	if n > len(r.buf) {
		n = len(r.buf)
	}

	var sum float64
	idx := r.head
	for l := 0; l < n; l++ {
		sum += c[l] * r.buf[idx]
		idx++
		if idx == len(r.buf) {
			idx = 0
		}
	}

	return sum
}
