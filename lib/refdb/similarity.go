// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"github.com/agext/levenshtein"
)

// fieldWeights biases the similarity measure toward the fields that
// identify a publication.
var fieldWeights = map[string]int{
	"author":       3,
	"year":         3,
	"title":        3,
	entryTypeField: 2,
}

var similarityParams = levenshtein.NewParams()

// distance measures the difference between two merged field sets in
// [0, 1]: 0 for identical, 1 for nothing in common. Only fields
// present on both sides are compared, weighted by fieldWeights
// (default weight 1). Used to rank candidate groups during split and
// merge resolution — relative order is all that matters.
func distance(left, right map[string]string) float64 {
	if len(left) == 0 && len(right) == 0 {
		return 0.0
	}

	var weightSum, scoreSum float64
	for field, leftValue := range left {
		rightValue, ok := right[field]
		if !ok {
			continue
		}
		weight := fieldWeights[field]
		if weight == 0 {
			weight = 1
		}
		weightSum += float64(weight)
		scoreSum += float64(weight) * levenshtein.Similarity(leftValue, rightValue, similarityParams)
	}

	if weightSum == 0 {
		return 1.0
	}
	return 1 - scoreSum/weightSum
}
