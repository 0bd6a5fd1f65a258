package services

import (
	"strconv"
	"strings"
)

// levelNames are the canonical proficiency names for ranks 1..5. Ranks above
// five keep their numeric rank but share the top name.
var levelNames = []string{"NOVICE", "INTERMEDIATE", "PROFICIENT", "ADVANCED", "EXPERT"}

// LevelNameForRank maps a rank to its proficiency name, clamping at EXPERT.
// Callers reject ranks below one before asking for a name.
func LevelNameForRank(rank int) string {
	if rank >= len(levelNames) {
		return levelNames[len(levelNames)-1]
	}
	return levelNames[rank-1]
}

type skillRef struct {
	Name string
	Rank int
}

// parseSkillList aligns a comma-separated skill list with its rank list by
// position. A skill without a rank at its index falls back to the first rank,
// then to rank 1. Blank skill names are dropped after alignment, so their
// positions still count. A rank token that is not a positive integer fails
// the whole row.
func parseSkillList(namesCSV, ranksCSV string) ([]skillRef, error) {
	names := splitCSV(namesCSV)
	if len(names) == 0 {
		return nil, nil
	}
	rankTokens := splitCSV(ranksCSV)
	ranks := make([]int, len(rankTokens))
	for i, token := range rankTokens {
		if token == "" {
			continue
		}
		rank, err := strconv.Atoi(token)
		if err != nil || rank < 1 {
			return nil, rowFailf("invalid skill rank %q", token)
		}
		ranks[i] = rank
	}

	var refs []skillRef
	for i, name := range names {
		if name == "" {
			continue
		}
		rank := 0
		if i < len(ranks) {
			rank = ranks[i]
		}
		if rank == 0 && len(ranks) > 0 {
			rank = ranks[0]
		}
		if rank == 0 {
			rank = 1
		}
		refs = append(refs, skillRef{Name: name, Rank: rank})
	}
	return refs, nil
}

// splitCSV splits on commas and trims each token. An all-blank input yields
// no tokens; blank tokens between commas are preserved to keep positions.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
