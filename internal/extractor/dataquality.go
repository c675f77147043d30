package extractor

import "github.com/sirupsen/logrus"

// RunDataQualityScan re-examines every non-disputed fact pairwise for
// missed contradictions and duplicate-candidate clusters. Facts synced
// in from peers never pass through Extract's per-call probes, so this
// retrospective pass is the only place they are cross-checked against
// the rest of the ledger.
func (e *Extractor) RunDataQualityScan() (conflicts, duplicateCandidates int, err error) {
	rows, err := e.store.GetFactsForAnalysis()
	if err != nil {
		return 0, 0, err
	}

	disputed := make(map[string]bool)
	for i := 0; i < len(rows); i++ {
		a := rows[i]
		if disputed[a.FactID] {
			continue
		}
		for j := i + 1; j < len(rows); j++ {
			b := rows[j]
			if disputed[b.FactID] {
				continue
			}

			if a.SubjectLemma != "" && a.SubjectLemma == b.SubjectLemma &&
				a.RootVerbLemma == b.RootVerbLemma && a.HasNegation != b.HasNegation {
				if err := e.store.MarkDisputed(a.FactID, b.FactID, "", ""); err != nil {
					e.log.WithError(err).Warn("data_quality_scan: mark_disputed failed")
					continue
				}
				disputed[a.FactID] = true
				disputed[b.FactID] = true
				conflicts++
				continue
			}

			if a.SourceDomain != b.SourceDomain &&
				lowerPrefix(a.Content, corroborationSpan) == lowerPrefix(b.Content, corroborationSpan) {
				duplicateCandidates++
				e.log.WithFields(logrus.Fields{"fact_a": a.FactID, "fact_b": b.FactID}).
					Info("data_quality_scan: duplicate candidate shares a corroboration-span prefix under distinct fact_ids")
			}
		}
	}
	return conflicts, duplicateCandidates, nil
}
