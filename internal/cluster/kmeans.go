package cluster

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInsufficientData is returned when there are fewer rows than clusters.
	ErrInsufficientData = eris.New("insufficient data")
	// ErrInvalidInput covers bad parameters and malformed feature matrices.
	ErrInvalidInput = eris.New("invalid input")
)

// Centroid initialization strategies.
const (
	InitKMeansPP = "kmeans++"
	InitRandom   = "random"
)

// DefaultMaxIter bounds the assign/update loop when MaxIter is zero.
const DefaultMaxIter = 300

// KMeans partitions rows into K clusters by Euclidean distance. All randomness
// comes from Seed, so a fixed seed and input always give the same labels.
type KMeans struct {
	K       int
	Seed    int64
	MaxIter int
	Init    string // kmeans++ (default) or random

	centroids [][]float64
}

// Result is the outcome of Fit.
type Result struct {
	Labels     []int       `json:"labels"`
	Centroids  [][]float64 `json:"centroids"`
	Sizes      []int       `json:"sizes"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
	// Reseeds counts empty clusters that were reinitialized.
	Reseeds int `json:"reseeds"`
}

// Fit clusters X. With len(X) >= K every cluster in the result is non-empty.
func (m *KMeans) Fit(X [][]float64) (*Result, error) {
	if m.K < 1 {
		return nil, eris.Wrapf(ErrInvalidInput, "cluster: k must be at least 1, got %d", m.K)
	}
	if len(X) < m.K {
		return nil, eris.Wrapf(ErrInsufficientData, "cluster: %d rows for k=%d", len(X), m.K)
	}
	if err := validate(X); err != nil {
		return nil, err
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	rng := rand.New(rand.NewSource(m.Seed))

	switch m.Init {
	case "", InitKMeansPP:
		m.centroids = initPlusPlus(X, m.K, rng)
	case InitRandom:
		m.centroids = initRandom(X, m.K, rng)
	default:
		return nil, eris.Wrapf(ErrInvalidInput, "cluster: unknown init %q (use %s or %s)", m.Init, InitKMeansPP, InitRandom)
	}

	n := len(X)
	res := &Result{Labels: make([]int, n)}
	for i := range res.Labels {
		res.Labels[i] = -1
	}
	for it := 1; it <= maxIter; it++ {
		res.Iterations = it
		changed := m.assign(X, res.Labels)
		sizes := counts(res.Labels, m.K)
		reseeds := m.reseedEmpty(X, res.Labels, sizes)
		res.Reseeds += reseeds
		m.update(X, res.Labels, sizes)
		if !changed && reseeds == 0 {
			res.Converged = true
			break
		}
	}

	res.Sizes = counts(res.Labels, m.K)
	res.Centroids = m.Centroids()
	for i, x := range X {
		d := floats.Distance(x, m.centroids[res.Labels[i]], 2)
		res.Inertia += d * d
	}
	return res, nil
}

// Predict labels X against the fitted centroids.
func (m *KMeans) Predict(X [][]float64) ([]int, error) {
	if m.centroids == nil {
		return nil, eris.Wrap(ErrInvalidInput, "cluster: model is not fitted")
	}
	if err := validate(X); err != nil {
		return nil, err
	}
	if len(X) > 0 && len(X[0]) != len(m.centroids[0]) {
		return nil, eris.Wrapf(ErrInvalidInput, "cluster: %d features, model has %d", len(X[0]), len(m.centroids[0]))
	}
	labels := make([]int, len(X))
	for i := range labels {
		labels[i] = -1
	}
	m.assign(X, labels)
	return labels, nil
}

// Centroids returns a copy of the fitted centroids.
func (m *KMeans) Centroids() [][]float64 {
	out := make([][]float64, len(m.centroids))
	for k, c := range m.centroids {
		out[k] = append([]float64(nil), c...)
	}
	return out
}

func validate(X [][]float64) error {
	if len(X) == 0 {
		return nil
	}
	p := len(X[0])
	if p == 0 {
		return eris.Wrap(ErrInvalidInput, "cluster: rows have no features")
	}
	for i, x := range X {
		if len(x) != p {
			return eris.Wrapf(ErrInvalidInput, "cluster: row %d has %d features, want %d", i+1, len(x), p)
		}
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return eris.Wrapf(ErrInvalidInput, "cluster: row %d has a non-finite value", i+1)
			}
		}
	}
	return nil
}

// assign moves each row to its nearest centroid. Ties go to the lowest index,
// except that a row already in one of the tied clusters stays put.
func (m *KMeans) assign(X [][]float64, labels []int) bool {
	changed := false
	for i, x := range X {
		best, bestD := -1, math.Inf(1)
		for k, c := range m.centroids {
			if d := sqDist(x, c); d < bestD {
				best, bestD = k, d
			}
		}
		if cur := labels[i]; cur >= 0 && sqDist(x, m.centroids[cur]) == bestD {
			best = cur
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// reseedEmpty gives every empty cluster the row farthest from its own centroid,
// taken from a cluster that keeps at least one member.
func (m *KMeans) reseedEmpty(X [][]float64, labels, sizes []int) int {
	reseeds := 0
	for k := range sizes {
		if sizes[k] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, x := range X {
			if sizes[labels[i]] < 2 {
				continue
			}
			if d := sqDist(x, m.centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			break
		}
		sizes[labels[far]]--
		labels[far] = k
		sizes[k] = 1
		m.centroids[k] = append([]float64(nil), X[far]...)
		reseeds++
	}
	return reseeds
}

func (m *KMeans) update(X [][]float64, labels, sizes []int) {
	p := len(X[0])
	sums := make([][]float64, m.K)
	for k := range sums {
		sums[k] = make([]float64, p)
	}
	for i, x := range X {
		floats.Add(sums[labels[i]], x)
	}
	for k, s := range sums {
		if sizes[k] == 0 {
			continue
		}
		floats.Scale(1/float64(sizes[k]), s)
		m.centroids[k] = s
	}
}

func initPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	chosen := make([]bool, n)
	first := rng.Intn(n)
	chosen[first] = true
	centroids := [][]float64{append([]float64(nil), X[first]...)}

	distSq := make([]float64, n)
	for i, x := range X {
		distSq[i] = sqDist(x, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(distSq)
		next := -1
		if total > 0 {
			r := rng.Float64() * total
			acc := 0.0
			for i, d := range distSq {
				if d == 0 {
					continue
				}
				acc += d
				next = i
				if acc >= r {
					break
				}
			}
		} else {
			// every row coincides with a chosen centroid
			next = pickUnchosen(chosen, rng)
		}
		chosen[next] = true
		c := append([]float64(nil), X[next]...)
		centroids = append(centroids, c)
		for i, x := range X {
			if d := sqDist(x, c); d < distSq[i] {
				distSq[i] = d
			}
		}
	}
	return centroids
}

func initRandom(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(X))
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = append([]float64(nil), X[perm[c]]...)
	}
	return centroids
}

func pickUnchosen(chosen []bool, rng *rand.Rand) int {
	var free []int
	for i, c := range chosen {
		if !c {
			free = append(free, i)
		}
	}
	return free[rng.Intn(len(free))]
}

func counts(labels []int, k int) []int {
	sizes := make([]int, k)
	for _, l := range labels {
		if l >= 0 {
			sizes[l]++
		}
	}
	return sizes
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
