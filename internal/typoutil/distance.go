package typoutil

// Distance computes the Damerau-Levenshtein distance between two strings: the minimum
// number of single-rune insertions, deletions, substitutions or adjacent transpositions
// turning a into b.
func Distance(a, b string) int {
	runesA, runesB := []rune(a), []rune(b)
	return distanceWithLimit(runesA, runesB, len(runesA)+len(runesB))
}

// DistanceWithLimit is Distance with early termination. When the distance exceeds
// maxDistance it returns maxDistance + 1.
func DistanceWithLimit(a, b string, maxDistance int) int {
	return distanceWithLimit([]rune(a), []rune(b), maxDistance)
}

func distanceWithLimit(runesA, runesB []rune, maxDistance int) int {
	lenA, lenB := len(runesA), len(runesB)

	lengthDiff := lenA - lenB
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	if lengthDiff > maxDistance {
		return maxDistance + 1
	}
	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// Three rows: transpositions look back two rows
	prevPrevRow := make([]int, lenB+1)
	prevRow := make([]int, lenB+1)
	currRow := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prevRow[j] = j
	}

	for i := 1; i <= lenA; i++ {
		currRow[0] = i
		minInRow := i

		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}

			currRow[j] = min(prevRow[j]+1, currRow[j-1]+1, prevRow[j-1]+cost)

			if i > 1 && j > 1 && runesA[i-1] == runesB[j-2] && runesA[i-2] == runesB[j-1] {
				currRow[j] = min(currRow[j], prevPrevRow[j-2]+cost)
			}
			minInRow = min(minInRow, currRow[j])
		}

		// Row minima never decrease
		if minInRow > maxDistance {
			return maxDistance + 1
		}
		prevPrevRow, prevRow, currRow = prevRow, currRow, prevPrevRow
	}

	if prevRow[lenB] > maxDistance {
		return maxDistance + 1
	}
	return prevRow[lenB]
}
