package decision

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/quorumllm/quorum/internal/dispatch"
)

// First returns the survivor with the lowest dispatch index
func First(survivors []dispatch.Attempt) dispatch.Attempt {
	return survivors[0]
}

// Majority returns the survivor whose payload appears most often.
// Payloads are compared after JSON normalization so formatting
// differences do not split a vote. Ties go to the candidate with the
// lowest dispatch index.
func Majority(survivors []dispatch.Attempt) (dispatch.Attempt, error) {
	counts := make(map[string]int)
	firstIndex := make(map[string]int)

	for i, s := range survivors {
		key, err := normalize(s.Value)
		if err != nil {
			return dispatch.Attempt{}, fmt.Errorf("decision: normalizing survivor %d: %w", s.Index, err)
		}
		counts[key]++
		if _, seen := firstIndex[key]; !seen {
			firstIndex[key] = i
		}
	}

	bestKey := ""
	bestCount := 0
	for key, count := range counts {
		if count > bestCount || (count == bestCount && firstIndex[key] < firstIndex[bestKey]) {
			bestKey = key
			bestCount = count
		}
	}

	return survivors[firstIndex[bestKey]], nil
}

// normalize produces a canonical form for vote counting. Object keys
// are sorted by re-marshalling through a map, then compacted.
func normalize(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, canonical); err != nil {
		return "", err
	}
	return buf.String(), nil
}
