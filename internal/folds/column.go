package folds

import (
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-aoa/internal/model"
)

// FromColumn builds an assignment from precomputed fold labels, such as a
// fold column exported by an earlier run. Distinct labels are mapped to fold
// ids in sorted order. The unit constraint is still enforced: a spatial unit
// whose samples carry different labels is rejected.
func FromColumn(samples []model.Sample, labels []string) (*model.FoldAssignment, error) {
	if len(labels) != len(samples) {
		return nil, eris.Errorf("folds: %d fold labels for %d samples", len(labels), len(samples))
	}
	if len(samples) == 0 {
		return nil, eris.New("folds: no samples")
	}

	distinct := make(map[string]struct{})
	unitFold := make(map[string]string)
	for i, l := range labels {
		if l == "" {
			return nil, eris.Errorf("folds: sample %d has an empty fold label", i)
		}
		distinct[l] = struct{}{}
		u := samples[i].Unit
		if prev, ok := unitFold[u]; ok && prev != l {
			return nil, eris.Errorf("folds: spatial unit %q split across folds %q and %q", u, prev, l)
		}
		unitFold[u] = l
	}
	if len(distinct) < 2 {
		return nil, eris.New("folds: fold column must contain at least 2 folds")
	}

	names := make([]string, 0, len(distinct))
	for l := range distinct {
		names = append(names, l)
	}
	sortFoldNames(names)
	ids := make(map[string]int, len(names))
	for i, n := range names {
		ids[n] = i
	}

	fold := make([]int, len(labels))
	for i, l := range labels {
		fold[i] = ids[l]
	}
	a, err := model.NewFoldAssignment(len(names), fold)
	if err != nil {
		return nil, eris.Wrap(err, "folds: from column")
	}
	return a, nil
}

// sortFoldNames sorts numerically when every name is an integer.
func sortFoldNames(names []string) {
	nums := make(map[string]int, len(names))
	for _, n := range names {
		v, err := strconv.Atoi(n)
		if err != nil {
			sort.Strings(names)
			return
		}
		nums[n] = v
	}
	sort.Slice(names, func(i, j int) bool { return nums[names[i]] < nums[names[j]] })
}
