package services

import (
	"math"
	"math/rand"
)

// lstmNetwork is a single LSTM cell unrolled over the lookback window with a
// scalar dense head, trained by backpropagation through time with per-sample
// stochastic gradient descent. Inputs and targets live in scaled space.
//
// Gate weight rows are laid out input/forget/cell/output, H rows per gate.
type lstmNetwork struct {
	hidden int
	lr     float64

	wx []float64   // 4H, scalar input weight per gate row
	wh [][]float64 // 4H x H, recurrent weights
	b  []float64   // 4H, gate biases
	wy []float64   // H, dense head weights
	by float64
}

// stepCache holds one timestep's activations for the backward pass.
type stepCache struct {
	x     float64
	hPrev []float64
	cPrev []float64
	gi    []float64
	gf    []float64
	gc    []float64
	go_   []float64
	c     []float64
	tanhC []float64
	h     []float64
}

func newLSTMNetwork(hidden int, lr float64, seed int64) *lstmNetwork {
	rng := rand.New(rand.NewSource(seed))
	n := &lstmNetwork{
		hidden: hidden,
		lr:     lr,
		wx:     make([]float64, 4*hidden),
		wh:     make([][]float64, 4*hidden),
		b:      make([]float64, 4*hidden),
		wy:     make([]float64, hidden),
	}
	for k := 0; k < 4*hidden; k++ {
		n.wx[k] = rng.Float64()*0.2 - 0.1
		n.wh[k] = make([]float64, hidden)
		for j := range n.wh[k] {
			n.wh[k][j] = rng.Float64()*0.2 - 0.1
		}
	}
	// Forget-gate bias starts at 1 so early training does not wipe state.
	for j := 0; j < hidden; j++ {
		n.b[hidden+j] = 1
	}
	for j := range n.wy {
		n.wy[j] = rng.Float64()*0.2 - 0.1
	}
	return n
}

// forward runs the window through the cell and returns the prediction along
// with the per-step caches needed for BPTT.
func (n *lstmNetwork) forward(window []float64) (float64, []stepCache) {
	H := n.hidden
	h := make([]float64, H)
	c := make([]float64, H)
	caches := make([]stepCache, len(window))

	for t, x := range window {
		cache := stepCache{
			x:     x,
			hPrev: append([]float64(nil), h...),
			cPrev: append([]float64(nil), c...),
			gi:    make([]float64, H),
			gf:    make([]float64, H),
			gc:    make([]float64, H),
			go_:   make([]float64, H),
			c:     make([]float64, H),
			tanhC: make([]float64, H),
			h:     make([]float64, H),
		}
		for j := 0; j < H; j++ {
			cache.gi[j] = sigmoid(n.gate(0, j, x, cache.hPrev))
			cache.gf[j] = sigmoid(n.gate(1, j, x, cache.hPrev))
			cache.gc[j] = math.Tanh(n.gate(2, j, x, cache.hPrev))
			cache.go_[j] = sigmoid(n.gate(3, j, x, cache.hPrev))

			cache.c[j] = cache.gf[j]*cache.cPrev[j] + cache.gi[j]*cache.gc[j]
			cache.tanhC[j] = math.Tanh(cache.c[j])
			cache.h[j] = cache.go_[j] * cache.tanhC[j]
		}
		h, c = cache.h, cache.c
		caches[t] = cache
	}

	y := n.by
	for j := 0; j < H; j++ {
		y += n.wy[j] * h[j]
	}
	return y, caches
}

// gate computes the pre-activation for gate g (0=input 1=forget 2=cell
// 3=output), hidden unit j.
func (n *lstmNetwork) gate(g, j int, x float64, hPrev []float64) float64 {
	row := g*n.hidden + j
	z := n.wx[row]*x + n.b[row]
	for k, hv := range hPrev {
		z += n.wh[row][k] * hv
	}
	return z
}

// predict runs a forward pass only.
func (n *lstmNetwork) predict(window []float64) float64 {
	y, _ := n.forward(window)
	return y
}

// trainSample does one forward/backward/update step on a single window and
// target, returning the squared error before the update.
func (n *lstmNetwork) trainSample(window []float64, target float64) float64 {
	H := n.hidden
	y, caches := n.forward(window)
	dy := y - target

	dWx := make([]float64, 4*H)
	dWh := make([][]float64, 4*H)
	for k := range dWh {
		dWh[k] = make([]float64, H)
	}
	dB := make([]float64, 4*H)
	dWy := make([]float64, H)

	last := caches[len(caches)-1]
	dh := make([]float64, H)
	dc := make([]float64, H)
	for j := 0; j < H; j++ {
		dWy[j] = dy * last.h[j]
		dh[j] = dy * n.wy[j]
	}
	dBy := dy

	for t := len(caches) - 1; t >= 0; t-- {
		cache := caches[t]
		dhPrev := make([]float64, H)
		dcPrev := make([]float64, H)

		for j := 0; j < H; j++ {
			do := dh[j] * cache.tanhC[j] * cache.go_[j] * (1 - cache.go_[j])
			dcj := dc[j] + dh[j]*cache.go_[j]*(1-cache.tanhC[j]*cache.tanhC[j])
			di := dcj * cache.gc[j] * cache.gi[j] * (1 - cache.gi[j])
			dg := dcj * cache.gi[j] * (1 - cache.gc[j]*cache.gc[j])
			df := dcj * cache.cPrev[j] * cache.gf[j] * (1 - cache.gf[j])

			grads := [4]float64{di, df, dg, do}
			for g := 0; g < 4; g++ {
				row := g*H + j
				dWx[row] += grads[g] * cache.x
				dB[row] += grads[g]
				for k := 0; k < H; k++ {
					dWh[row][k] += grads[g] * cache.hPrev[k]
					dhPrev[k] += grads[g] * n.wh[row][k]
				}
			}
			dcPrev[j] = dcj * cache.gf[j]
		}
		dh, dc = dhPrev, dcPrev
	}

	for row := 0; row < 4*H; row++ {
		n.wx[row] -= n.lr * clipGrad(dWx[row])
		n.b[row] -= n.lr * clipGrad(dB[row])
		for k := 0; k < H; k++ {
			n.wh[row][k] -= n.lr * clipGrad(dWh[row][k])
		}
	}
	for j := 0; j < H; j++ {
		n.wy[j] -= n.lr * clipGrad(dWy[j])
	}
	n.by -= n.lr * clipGrad(dBy)

	return dy * dy
}

// clipGrad bounds a gradient component; exploding gradients on short noisy
// series would otherwise throw the weights into NaN territory.
func clipGrad(g float64) float64 {
	const limit = 5.0
	if g > limit {
		return limit
	}
	if g < -limit {
		return -limit
	}
	return g
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// minMaxScaler maps values into [-1,1]. Its bounds come from the training
// split only, so no information leaks from held-out data.
type minMaxScaler struct {
	min float64
	max float64
}

func fitScaler(data []float64) minMaxScaler {
	if len(data) == 0 {
		return minMaxScaler{}
	}
	s := minMaxScaler{min: data[0], max: data[0]}
	for _, v := range data[1:] {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	return s
}

func (s minMaxScaler) scale(v float64) float64 {
	if s.max == s.min {
		return 0
	}
	return -1 + 2*(v-s.min)/(s.max-s.min)
}

func (s minMaxScaler) invert(v float64) float64 {
	if s.max == s.min {
		return s.min
	}
	return s.min + (v+1)*(s.max-s.min)/2
}
