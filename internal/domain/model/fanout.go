package model

import "github.com/streamvault/upload-gateway/internal/domain/vobj"

// FanoutTier is one message of the fanout that follows a stored upload.
type FanoutTier struct {
	Quality vobj.Quality
	Kind    vobj.TierKind
}

// FanoutPlan returns the ordered tiers published for a category: the catalog
// registration at FullHD first, then processing instructions at HD and SD.
// A fresh slice is returned on every call.
func FanoutPlan(category vobj.MediaCategory) []FanoutTier {
	if !category.IsValid() {
		return nil
	}
	return []FanoutTier{
		{Quality: vobj.QualityFullHD, Kind: vobj.TierKindCatalog},
		{Quality: vobj.QualityHD, Kind: vobj.TierKindProcessing},
		{Quality: vobj.QualitySD, Kind: vobj.TierKindProcessing},
	}
}
