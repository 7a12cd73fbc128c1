package volatility

// Stats summarizes mined change counts across the repository's source files.
type Stats struct {
	TotalFiles   int     `json:"total_files"`
	TotalChanges int     `json:"total_changes"`
	MaxChanges   int     `json:"max_changes"`
	AvgChanges   float64 `json:"avg_changes"`
	LowCount     int     `json:"low_count"`
	MediumCount  int     `json:"medium_count"`
	HighCount    int     `json:"high_count"`
}

// File-level bucket bounds for the summary statistics. These are coarse,
// absolute buckets for reporting; module classification uses percentiles.
const (
	lowMaxChanges    = 2
	mediumMaxChanges = 10
)

// Stats computes summary statistics over the mined per-file counts.
func (o *Oracle) Stats() Stats {
	s := Stats{TotalFiles: len(o.fileChanges)}
	if s.TotalFiles == 0 {
		return s
	}
	for _, n := range o.fileChanges {
		s.TotalChanges += n
		if n > s.MaxChanges {
			s.MaxChanges = n
		}
		switch {
		case n <= lowMaxChanges:
			s.LowCount++
		case n <= mediumMaxChanges:
			s.MediumCount++
		default:
			s.HighCount++
		}
	}
	s.AvgChanges = float64(s.TotalChanges) / float64(s.TotalFiles)
	return s
}

// FileChanges returns a copy of the per-file commit counts.
func (o *Oracle) FileChanges() map[string]int {
	out := make(map[string]int, len(o.fileChanges))
	for k, v := range o.fileChanges {
		out[k] = v
	}
	return out
}
