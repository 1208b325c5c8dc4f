package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bobbyhedeny/alignator/internal/types"
)

// Topic extraction constants. The seed and iteration bound make the
// decomposition deterministic across runs for the same input.
const (
	maxVocabulary    = 1000
	minDocFreq       = 2
	maxDocFreqRatio  = 0.95
	maxTopics        = 5
	topWordsPerTopic = 5
	topicSeed        = 42
	nmfIterations    = 100
	nmfEpsilon       = 1e-9
)

// ExtractTopics decomposes the summaries of a member's bills into latent
// topics. Only the summary field is used; bills with an empty summary are
// dropped. Fewer than 2 usable summaries yields an empty mapping because
// topic modeling is statistically meaningless below that size.
//
// The pipeline is TF-IDF over a pruned vocabulary followed by a
// fixed-seed non-negative matrix factorization. Topic names are
// positional, not semantic.
func ExtractTopics(bills []types.Bill) map[string]TopicScore {
	topics := make(map[string]TopicScore)

	docs := make([][]string, 0, len(bills))
	for _, bill := range bills {
		if bill.Summary == "" {
			continue
		}
		docs = append(docs, Tokenize(bill.Summary))
	}

	n := len(docs)
	if n < minDocFreq {
		return topics
	}

	terms, termIndex := buildVocabulary(docs)
	m := len(terms)
	if m == 0 {
		return topics
	}

	tfidf := buildTFIDF(docs, terms, termIndex)

	k := maxTopics
	if n < k {
		k = n
	}
	if m < k {
		k = m
	}

	_, h := factorize(tfidf, n, m, k)

	for topic := 0; topic < k; topic++ {
		weights := make([]float64, m)
		total := 0.0
		for j := 0; j < m; j++ {
			weights[j] = h.At(topic, j)
			total += weights[j]
		}

		topics[fmt.Sprintf("Topic_%d", topic+1)] = TopicScore{
			TopWords: topTerms(terms, weights),
			Weight:   total,
		}
	}

	return topics
}

// buildVocabulary prunes terms by document frequency (too rare or too
// common) and caps the vocabulary at the most frequent remaining terms.
func buildVocabulary(docs [][]string) ([]string, map[string]int) {
	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	maxDF := maxDocFreqRatio * float64(len(docs))
	kept := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= minDocFreq && float64(df) <= maxDF {
			kept = append(kept, term)
		}
	}

	// Most frequent first, alphabetical within ties, then cap.
	sort.Slice(kept, func(i, j int) bool {
		if termFreq[kept[i]] != termFreq[kept[j]] {
			return termFreq[kept[i]] > termFreq[kept[j]]
		}
		return kept[i] < kept[j]
	})
	if len(kept) > maxVocabulary {
		kept = kept[:maxVocabulary]
	}
	sort.Strings(kept)

	index := make(map[string]int, len(kept))
	for i, term := range kept {
		index[term] = i
	}
	return kept, index
}

// buildTFIDF builds a docs-by-terms matrix with smoothed idf and
// L2-normalized rows.
func buildTFIDF(docs [][]string, terms []string, termIndex map[string]int) *mat.Dense {
	n, m := len(docs), len(terms)

	docFreq := make([]int, m)
	counts := make([][]float64, n)
	for i, tokens := range docs {
		counts[i] = make([]float64, m)
		for _, tok := range tokens {
			if j, ok := termIndex[tok]; ok {
				counts[i][j]++
			}
		}
		for j := 0; j < m; j++ {
			if counts[i][j] > 0 {
				docFreq[j]++
			}
		}
	}

	idf := make([]float64, m)
	for j := 0; j < m; j++ {
		idf[j] = math.Log(float64(1+n)/float64(1+docFreq[j])) + 1
	}

	tfidf := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		norm := 0.0
		row := make([]float64, m)
		for j := 0; j < m; j++ {
			row[j] = counts[i][j] * idf[j]
			norm += row[j] * row[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := 0; j < m; j++ {
				row[j] /= norm
			}
		}
		tfidf.SetRow(i, row)
	}

	return tfidf
}

// factorize runs a seeded multiplicative-update NMF, V ≈ W·H, with a
// bounded iteration count.
func factorize(v *mat.Dense, n, m, k int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(topicSeed))

	scale := math.Sqrt(mat.Sum(v)/float64(n*m*k) + nmfEpsilon)
	w := mat.NewDense(n, k, nil)
	h := mat.NewDense(k, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			w.Set(i, j, rng.Float64()*scale+nmfEpsilon)
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < m; j++ {
			h.Set(i, j, rng.Float64()*scale+nmfEpsilon)
		}
	}

	var wtv, wtw, wtwh, vht, hht, whht mat.Dense
	for iter := 0; iter < nmfIterations; iter++ {
		// H <- H .* (WᵀV) ./ (WᵀWH)
		wtv.Mul(w.T(), v)
		wtw.Mul(w.T(), w)
		wtwh.Mul(&wtw, h)
		for i := 0; i < k; i++ {
			for j := 0; j < m; j++ {
				h.Set(i, j, h.At(i, j)*wtv.At(i, j)/(wtwh.At(i, j)+nmfEpsilon))
			}
		}

		// W <- W .* (VHᵀ) ./ (WHHᵀ)
		vht.Mul(v, h.T())
		hht.Mul(h, h.T())
		whht.Mul(w, &hht)
		for i := 0; i < n; i++ {
			for j := 0; j < k; j++ {
				w.Set(i, j, w.At(i, j)*vht.At(i, j)/(whht.At(i, j)+nmfEpsilon))
			}
		}
	}

	return w, h
}

// topTerms returns the highest-weighted terms of one topic in ascending
// weight order, least important first.
func topTerms(terms []string, weights []float64) []string {
	idx := make([]int, len(terms))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return weights[idx[a]] < weights[idx[b]]
	})

	count := topWordsPerTopic
	if len(idx) < count {
		count = len(idx)
	}

	top := make([]string, count)
	for i, j := range idx[len(idx)-count:] {
		top[i] = terms[j]
	}
	return top
}
