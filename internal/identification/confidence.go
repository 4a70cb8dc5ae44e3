package identification

import (
	"strconv"
	"strings"
	"unicode"

	"log/slog"

	"golang.org/x/text/cases"

	"gdrive/internal/identification/tmdb"
	"gdrive/internal/logging"
	"gdrive/internal/textutil"
)

// fold case-folds s for comparison. A Caser is stateful, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// selectBestResult scores every candidate and applies the acceptance
// thresholds. Exact title matches win over higher-scored partial matches.
// A nil result means nothing was confident enough to use.
func selectBestResult(logger *slog.Logger, query string, year int, response *tmdb.Response) *tmdb.Result {
	if response == nil || len(response.Results) == 0 {
		return nil
	}
	queryLower := fold(query)
	queryNormalized := normalizeForComparison(query)
	queryPrint := textutil.NewFingerprint(query)

	var (
		best, bestExact           *tmdb.Result
		bestScore, bestExactScore = -1.0, -1.0
	)

	for idx := range response.Results {
		res := response.Results[idx]
		score := scoreResult(queryLower, res)
		score += textutil.CosineSimilarity(queryPrint, textutil.NewFingerprint(pickTitle(res))) * 0.5
		if year > 0 && res.Year() == strconv.Itoa(year) {
			score += 0.5
		}

		title := pickTitle(res)
		titleLower := fold(title)
		exactMatch := titleLower == queryLower || normalizeForComparison(title) == queryNormalized

		logger.Debug("calculating confidence score",
			logging.Int("result_index", idx),
			logging.Int64("tmdb_id", res.ID),
			logging.String("title", title),
			logging.String("year", res.Year()),
			logging.Float64("calculated_score", score),
			logging.Float64("vote_average", res.VoteAverage),
			logging.Int64("vote_count", res.VoteCount),
			logging.Bool("exact_title_match", exactMatch),
			logging.String("match_type", matchType(titleLower, queryLower)))

		if exactMatch && score > bestExactScore {
			bestExact = &response.Results[idx]
			bestExactScore = score
		}
		if score > bestScore {
			best = &response.Results[idx]
			bestScore = score
		}
	}

	if bestExact != nil {
		if bestExact.VoteCount > 0 && bestExact.VoteAverage < 2.0 {
			logger.Debug("exact match rejected: vote average too low",
				logging.Int64("tmdb_id", bestExact.ID),
				logging.Float64("vote_average", bestExact.VoteAverage),
				logging.Float64("threshold", 2.0))
			return nil
		}
		return bestExact
	}

	if best == nil {
		return nil
	}
	if best.VoteAverage < 3.0 {
		logger.Debug("partial match rejected: vote average too low",
			logging.Int64("tmdb_id", best.ID),
			logging.Float64("vote_average", best.VoteAverage),
			logging.Float64("threshold", 3.0))
		return nil
	}

	minExpectedScore := 1.3 + float64(best.VoteCount)/1000.0
	if bestScore < minExpectedScore {
		logger.Debug("partial match rejected: confidence score too low",
			logging.Float64("best_score", bestScore),
			logging.Float64("min_expected_score", minExpectedScore))
		return nil
	}
	return best
}

func matchType(titleLower, queryLower string) string {
	if titleLower == queryLower {
		return "exact"
	}
	if strings.Contains(titleLower, queryLower) {
		return "contains"
	}
	return "partial"
}

func scoreResult(query string, result tmdb.Result) float64 {
	title := pickTitle(result)
	if title == "" {
		return 0
	}
	titleLower := fold(title)
	match := 0.0
	if strings.Contains(titleLower, query) {
		match = 1.0
	}
	return match + (result.VoteAverage / 10.0) + float64(result.VoteCount)/1000.0
}

func pickTitle(result tmdb.Result) string {
	if result.Title != "" {
		return result.Title
	}
	if result.Name != "" {
		return result.Name
	}
	return ""
}

func normalizeForComparison(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	normalized := fold(input)
	normalized = strings.ReplaceAll(normalized, "&", "and")
	normalized = strings.ReplaceAll(normalized, "+", "and")

	var builder strings.Builder
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
