package candidate

import (
	"math"

	"github.com/sells-group/gridfinder/internal/model"
)

// Stats summarizes the committed dataset.
type Stats struct {
	State      string                 `json:"state" yaml:"state"`
	Count      int                    `json:"count" yaml:"count"`
	MinScore   float64                `json:"min_score" yaml:"min_score"`
	MaxScore   float64                `json:"max_score" yaml:"max_score"`
	MeanScore  float64                `json:"mean_score" yaml:"mean_score"`
	Categories map[model.Category]int `json:"categories" yaml:"categories"`
}

// Stats computes summary statistics over All. Score fields are zero for an
// empty store.
func (s *Store) Stats() Stats {
	points := s.All()
	st := Stats{
		State:      s.State().String(),
		Count:      len(points),
		Categories: make(map[model.Category]int, len(model.Categories)),
	}
	if len(points) == 0 {
		return st
	}

	st.MinScore, st.MaxScore = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, p := range points {
		sum += p.Score
		st.MinScore = math.Min(st.MinScore, p.Score)
		st.MaxScore = math.Max(st.MaxScore, p.Score)
		for _, c := range model.Categories {
			if p.POI.Has(c) {
				st.Categories[c]++
			}
		}
	}
	st.MeanScore = sum / float64(len(points))
	return st
}
