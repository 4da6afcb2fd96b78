package detect

// classifyTier assigns the physical-size tier. BOARD wins on page dominance
// or raw physical size, ICON requires being small on both measures, and
// everything between is MID.
func classifyTier(widthIn, heightIn, coverageX, coverageY float64, cfg Config) Tier {
	if (coverageX >= cfg.BoardCoverage && coverageY >= cfg.BoardCoverage) ||
		(widthIn >= cfg.BoardMinIn && heightIn >= cfg.BoardMinIn) {
		return TierBoard
	}
	if widthIn < cfg.IconMaxIn && heightIn < cfg.IconMaxIn &&
		coverageX < cfg.IconMaxCoverage && coverageY < cfg.IconMaxCoverage {
		return TierIcon
	}
	return TierMid
}

// tierFloor returns the minimum physical side length for the tier. The ICON
// floor is looser so small tokens are kept at the cost of some noise.
func tierFloor(tier Tier, cfg Config) float64 {
	if tier == TierIcon {
		return cfg.IconMinSideIn
	}
	return cfg.MinSideIn
}
