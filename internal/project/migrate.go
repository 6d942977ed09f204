package project

// Migrate upgrades legacy documents in place. Older documents modeled one
// track per prompt: prompts carried a track_index instead of a job_index,
// and tracks had no job_index/variant_index. The defaulting rules are:
//
//   - prompt.job_index missing: take the legacy track_index (1:1 mapping),
//     else the prompt's position in the list.
//   - track.job_index missing: equal to track_index (each old track was its
//     own job).
//   - track.variant_index missing: 0.
//
// All defaulting lives here; the validator never fills fields.
func Migrate(p *Project) {
	if p.Plan != nil {
		for i := range p.Plan.Prompts {
			pr := &p.Plan.Prompts[i]
			if pr.JobIndex == nil {
				if pr.LegacyTrackIndex != nil {
					pr.JobIndex = intPtr(*pr.LegacyTrackIndex)
				} else {
					pr.JobIndex = intPtr(i)
				}
			}
			pr.LegacyTrackIndex = nil
		}
	}

	for i := range p.Tracks {
		t := &p.Tracks[i]
		if t.JobIndex == nil {
			t.JobIndex = intPtr(t.TrackIndex)
		}
		if t.VariantIndex == nil {
			t.VariantIndex = intPtr(0)
		}
	}
}
