package domain

// Data processing flags select which optional enrichments apply to a
// document. Retrievers set them at creation; processors consult them
// before doing work. The constants form a closed set of distinct bits.
const (
	FlagSentiment = 1 << iota
	FlagIndustry
	FlagMarket
	FlagProduct
	FlagNameEntity
	FlagKeywords
	FlagSimilarDocs
	FlagSummarise
	FlagExtractActions
	FlagComparePrevious
)
