package portfolio

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// proportional returns raw normalized to sum 1; equal shares if raw sums to zero
func proportional(raw []float64) []float64 {
	dst := make([]float64, len(raw))
	if len(raw) == 0 {
		return dst
	}

	total := floats.Sum(raw)
	if total <= weightEps {
		for i := range dst {
			dst[i] = 1.0 / float64(len(dst))
		}
		return dst
	}

	copy(dst, raw)
	floats.Scale(1/total, dst)
	return dst
}

func sectorTotals(picked []admitted, weights []float64) map[string]float64 {
	totals := make(map[string]float64)
	for i, p := range picked {
		totals[p.sector] += weights[i]
	}
	return totals
}

func indicesOf(picked []admitted, sector string) []int {
	var idx []int
	for i, p := range picked {
		if p.sector == sector {
			idx = append(idx, i)
		}
	}
	return idx
}

func gather(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = v[i]
	}
	return out
}

func scatter(v []float64, idx []int, part []float64) {
	for j, i := range idx {
		v[i] = part[j]
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
