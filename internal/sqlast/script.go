package sqlast

// ParseScript preprocesses raw T-SQL source and splits it into batches,
// matching spec §4.2 steps 1-2. Callers then run SplitStatements and
// Classify over each batch's text.
func ParseScript(raw string) []Batch {
	return SplitBatches(Preprocess(raw))
}
