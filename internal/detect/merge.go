package detect

// iouPixels computes Intersection-over-Union for two candidates in pixel
// space.
func iouPixels(a, b Candidate) float64 {
	inter := a.PixelRect.Intersect(b.PixelRect)
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := a.Area() + b.Area() - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}

// mergeCandidates collapses overlap clusters into their enclosing boxes.
// Clusters are the transitive closure of the pairwise IoU-at-threshold
// relation over the original boxes, so chains merge fully and the result
// is independent of input order. Confidence is averaged over cluster
// members, weighted by how many detections each already absorbed.
func mergeCandidates(cands []Candidate, iouThreshold float64) []Candidate {
	n := len(cands)
	if n < 2 {
		return cands
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if iouPixels(cands[i], cands[j]) >= iouThreshold {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[rj] = ri
				}
			}
		}
	}

	// Collapse each cluster in first-member order.
	clusterOf := make(map[int]int, n) // root -> index into out
	var out []Candidate
	for i := 0; i < n; i++ {
		root := find(i)
		if at, ok := clusterOf[root]; ok {
			out[at] = combine(out[at], cands[i])
		} else {
			clusterOf[root] = len(out)
			out = append(out, cands[i])
		}
	}
	return out
}

func combine(a, b Candidate) Candidate {
	na, nb := a.passes, b.passes
	if na <= 0 {
		na = 1
	}
	if nb <= 0 {
		nb = 1
	}
	return Candidate{
		PixelRect:  a.PixelRect.Union(b.PixelRect),
		PageRect:   a.PageRect.Union(b.PageRect),
		Confidence: (a.Confidence*float64(na) + b.Confidence*float64(nb)) / float64(na+nb),
		Merged:     true,
		passes:     na + nb,
	}
}
