package rubric

import (
	"math"
	"regexp"
	"strings"
)

// Tokens are runs of two or more word characters, lower-cased.
// Single-character tokens carry no signal and are dropped.
var tokenPattern = regexp.MustCompile(`\w\w+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// NoveltyScore measures how far a candidate text sits from a fixed
// benchmark corpus: 100 * (1 - max cosine similarity) between the
// candidate's TF-IDF vector and each benchmark's, rounded to two
// decimals. A candidate sharing no vocabulary with the corpus saturates
// at 100; a candidate identical to a benchmark scores 0.
func NoveltyScore(text string, benchmarks []string) float64 {
	if len(benchmarks) == 0 {
		return 100
	}

	docs := make([][]string, 0, len(benchmarks)+1)
	for _, b := range benchmarks {
		docs = append(docs, tokenize(b))
	}
	docs = append(docs, tokenize(text))

	vectors := tfidfVectors(docs)

	candidate := vectors[len(vectors)-1]
	maxSim := 0.0
	for _, benchmark := range vectors[:len(vectors)-1] {
		if sim := dot(candidate, benchmark); sim > maxSim {
			maxSim = sim
		}
	}

	return round2((1 - maxSim) * 100)
}

// tfidfVectors builds L2-normalized TF-IDF vectors over the shared
// vocabulary of all documents, with smoothed inverse document frequency
// idf(t) = ln((1+n)/(1+df(t))) + 1.
func tfidfVectors(docs [][]string) []map[string]float64 {
	df := make(map[string]int)
	counts := make([]map[string]float64, len(docs))

	for i, tokens := range docs {
		counts[i] = make(map[string]float64, len(tokens))
		for _, tok := range tokens {
			counts[i][tok]++
		}
		for tok := range counts[i] {
			df[tok]++
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for tok, freq := range df {
		idf[tok] = math.Log((1+n)/(1+float64(freq))) + 1
	}

	vectors := make([]map[string]float64, len(docs))
	for i, tf := range counts {
		vec := make(map[string]float64, len(tf))
		norm := 0.0
		for tok, freq := range tf {
			v := freq * idf[tok]
			vec[tok] = v
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for tok := range vec {
				vec[tok] /= norm
			}
		}
		vectors[i] = vec
	}

	return vectors
}

func dot(a, b map[string]float64) float64 {
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for tok, va := range a {
		if vb, ok := b[tok]; ok {
			sum += va * vb
		}
	}
	return sum
}
