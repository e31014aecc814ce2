package score

// Mark classifies one guessed letter against the answer.
type Mark string

const (
	MarkCorrect Mark = "correct"
	MarkPresent Mark = "present"
	MarkAbsent  Mark = "absent"
)

// WordLen is the fixed word length for every guess and answer.
const WordLen = 5

// Score classifies each letter of guess against answer using the standard
// two-pass algorithm. Pass one marks exact matches and tallies the remaining
// answer letters; pass two resolves present/absent in position order, so
// earlier positions consume duplicate counts first. A letter is never marked
// correct/present more times than it occurs in the answer.
//
// A malformed answer (wrong length or non-letters) yields an all-absent
// result instead of panicking; the caller is responsible for reporting it.
func Score(guess, answer string) []Mark {
	res := make([]Mark, len(guess))
	for i := range res {
		res[i] = MarkAbsent
	}
	if len(answer) != len(guess) || !isUpperAlpha(answer) {
		return res
	}

	var counts [26]int
	for i := 0; i < len(guess); i++ {
		if guess[i] == answer[i] {
			res[i] = MarkCorrect
		} else {
			counts[answer[i]-'A']++
		}
	}

	for i := 0; i < len(guess); i++ {
		if res[i] == MarkCorrect {
			continue
		}
		j := int(guess[i]) - 'A'
		if j >= 0 && j < 26 && counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		}
	}
	return res
}

func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
