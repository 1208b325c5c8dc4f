package analysis

// KeywordScore computes the keyword hit-rate of text against one keyword
// set: matched tokens divided by total filtered tokens. The result is in
// [0,1]. Empty text or a fully stop-worded text scores 0. The rate is
// deliberately unweighted by term frequency or position.
func KeywordScore(text string, keywords map[string]struct{}) float64 {
	if text == "" {
		return 0
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	matches := 0
	for _, token := range tokens {
		if _, ok := keywords[token]; ok {
			matches++
		}
	}

	return float64(matches) / float64(len(tokens))
}
