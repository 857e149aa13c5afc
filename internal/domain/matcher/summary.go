package matcher

// Summary counts results by outcome
type Summary struct {
	Total        int                 `json:"total"`
	Identified   int                 `json:"identified"`
	Unidentified int                 `json:"unidentified"`
	Pending      int                 `json:"pending"`
	Divergent    int                 `json:"divergent"`
	ByMethod     map[MatchMethod]int `json:"by_method"`
}

// Summarize counts the results of a run
func Summarize(results []MatchResult) Summary {
	s := Summary{ByMethod: make(map[MatchMethod]int)}
	for i := range results {
		r := &results[i]
		s.Total++
		switch r.Status {
		case StatusIdentified:
			s.Identified++
			s.ByMethod[r.Method]++
		case StatusUnidentified:
			s.Unidentified++
		case StatusPending:
			s.Pending++
		}
		if r.Divergence != nil {
			s.Divergent++
		}
	}
	return s
}
