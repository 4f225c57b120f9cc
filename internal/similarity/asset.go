package similarity

import (
	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// assetScore measures how much of the source media made it across:
// every source asset present in the target media library by content
// hash counts as matched, placeholders for failed downloads count
// against the score.
func assetScore(source *idf.Document, target *converter.TargetDocument) (domain.MetricScore, error) {
	if len(source.Assets) == 0 {
		// A site with no media has nothing to lose.
		return domain.MetricScore{Score: 1, Details: map[string]float64{"total": 0}}, nil
	}

	targetIDs := map[string]bool{}
	for _, item := range target.MediaItems {
		if !item.Missing {
			targetIDs[item.ID] = true
		}
	}

	var matched, missing float64
	for _, asset := range source.Assets {
		if asset.Missing {
			missing++
			continue
		}
		if targetIDs[asset.ID] {
			matched++
		}
	}

	total := float64(len(source.Assets))
	return domain.MetricScore{
		Score: clamp01(matched / total),
		Details: map[string]float64{
			"total":   total,
			"matched": matched,
			"missing": missing,
		},
	}, nil
}
