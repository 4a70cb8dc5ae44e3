package textutil

// CosineSimilarity scores two fingerprints between 0 and 1. A nil
// fingerprint scores 0 against anything.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a, b
	if len(small.tokens) > len(large.tokens) {
		small, large = large, small
	}
	var dot float64
	for token, count := range small.tokens {
		dot += count * large.tokens[token]
	}
	return dot / (a.norm * b.norm)
}
