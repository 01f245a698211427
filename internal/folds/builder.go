// Package folds builds spatial cross-validation folds that keep spatial units
// intact while stratifying by class.
package folds

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// Options tunes fold construction.
type Options struct {
	// Seed shuffles units of equal size before assignment. Zero keeps the
	// first-appearance order, which makes Build deterministic.
	Seed int64
}

// unit is one atomic group of samples sharing a spatial identifier.
type unit struct {
	id       string
	order    int
	rows     []int
	classes  map[string]int
	dominant string
}

const loadEpsilon = 1e-12

// Build assigns every sample to one of k folds. All samples of a spatial
// unit land in the same fold and each fold's class mix tracks the global mix
// as closely as unit sizes allow.
func Build(samples []model.Sample, k int, opts Options) (*model.FoldAssignment, error) {
	if len(samples) == 0 {
		return nil, eris.New("folds: no samples")
	}
	if k < 2 {
		return nil, eris.Errorf("folds: k must be at least 2, got %d", k)
	}

	units, err := groupUnits(samples)
	if err != nil {
		return nil, err
	}
	if k > len(units) {
		return nil, eris.Errorf("folds: k=%d exceeds the %d available spatial units", k, len(units))
	}

	global := make(map[string]int)
	for _, s := range samples {
		global[s.Label]++
	}

	for label, ids := range UnitsByClass(samples) {
		if len(ids) < k {
			zap.L().Debug("folds: class spans fewer units than folds",
				zap.String("label", label),
				zap.Int("units", len(ids)),
				zap.Int("k", k),
			)
		}
	}

	order := assignmentOrder(units, opts.Seed)

	classLoad := make([]map[string]int, k)
	for f := range classLoad {
		classLoad[f] = make(map[string]int)
	}
	total := make([]int, k)
	members := make([]int, k)
	fold := make([]int, len(samples))

	for n, u := range order {
		remaining := len(order) - n
		empty := 0
		for _, m := range members {
			if m == 0 {
				empty++
			}
		}
		onlyEmpty := empty >= remaining

		best := -1
		var bestClass, bestTotal float64
		for f := 0; f < k; f++ {
			if onlyEmpty && members[f] > 0 {
				continue
			}
			cl := float64(classLoad[f][u.dominant]+u.classes[u.dominant]) / float64(global[u.dominant])
			tl := float64(total[f]+len(u.rows)) / float64(len(samples))
			if best < 0 || cl < bestClass-loadEpsilon ||
				(math.Abs(cl-bestClass) <= loadEpsilon && tl < bestTotal-loadEpsilon) {
				best, bestClass, bestTotal = f, cl, tl
			}
		}

		for label, c := range u.classes {
			classLoad[best][label] += c
		}
		total[best] += len(u.rows)
		members[best]++
		for _, r := range u.rows {
			fold[r] = best
		}
	}

	a, err := model.NewFoldAssignment(k, fold)
	if err != nil {
		return nil, eris.Wrap(err, "folds: build assignment")
	}

	zap.L().Debug("folds: built",
		zap.Int("k", k),
		zap.Int("samples", len(samples)),
		zap.Int("units", len(units)),
		zap.Ints("sizes", a.Sizes()),
	)
	return a, nil
}

// groupUnits groups sample rows by spatial unit in first-appearance order.
func groupUnits(samples []model.Sample) ([]*unit, error) {
	byID := make(map[string]*unit)
	var units []*unit
	for i, s := range samples {
		if s.Unit == "" {
			return nil, eris.Errorf("folds: sample %d has an empty spatial unit", i)
		}
		u, ok := byID[s.Unit]
		if !ok {
			u = &unit{id: s.Unit, order: len(units), classes: make(map[string]int)}
			byID[s.Unit] = u
			units = append(units, u)
		}
		u.rows = append(u.rows, i)
		u.classes[s.Label]++
	}
	for _, u := range units {
		u.dominant = dominantClass(u.classes)
	}
	return units, nil
}

// dominantClass returns the most frequent label; ties go to the smallest label.
func dominantClass(classes map[string]int) string {
	var best string
	bestN := -1
	for label, n := range classes {
		if n > bestN || (n == bestN && label < best) {
			best, bestN = label, n
		}
	}
	return best
}

// assignmentOrder sorts units largest first. Equal sizes keep
// first-appearance order, or a seeded shuffle of it.
func assignmentOrder(units []*unit, seed int64) []*unit {
	order := append([]*unit(nil), units...)
	if seed != 0 {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(order[i].rows) > len(order[j].rows)
	})
	return order
}

// UnitsByClass returns, for each label, the spatial units containing at
// least one sample of it, in first-appearance order.
func UnitsByClass(samples []model.Sample) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[[2]string]bool)
	for _, s := range samples {
		key := [2]string{s.Label, s.Unit}
		if seen[key] {
			continue
		}
		seen[key] = true
		out[s.Label] = append(out[s.Label], s.Unit)
	}
	return out
}
