package words

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"math/big"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Built-in fallback list so a server with no word files is still playable.
//
//go:embed default_words.txt
var builtinWords string

// Catalog holds the guess vocabulary and the answer pool.
//
// Two sources feed it: a broad "allowed" list used to validate guesses and a
// narrower "answers" list the secret word is drawn from. If both sources are
// empty the built-in list serves both roles; if exactly one is empty the
// other is mirrored into it, so validation and drawing always have content.
// Membership checks use the union of both sets so an answer word is never
// rejected as a guess.
type Catalog struct {
	allowed map[string]struct{}
	answers []string
}

// Load builds a Catalog from two newline-delimited files. Missing or
// unreadable files degrade to the mirroring/built-in policy instead of
// failing startup.
func Load(allowedPath, answersPath string, log *zap.Logger) *Catalog {
	allowed := readWordFile(allowedPath, log)
	answers := readWordFile(answersPath, log)

	switch {
	case len(allowed) == 0 && len(answers) == 0:
		builtin := normalizeLines(builtinWords)
		allowed, answers = builtin, builtin
		log.Warn("no word lists available, using built-in words",
			zap.Int("count", len(builtin)))
	case len(allowed) == 0:
		allowed = answers
	case len(answers) == 0:
		answers = allowed
	}

	union := make(map[string]struct{}, len(allowed)+len(answers))
	for _, w := range allowed {
		union[w] = struct{}{}
	}
	for _, w := range answers {
		union[w] = struct{}{}
	}

	log.Info("word lists loaded",
		zap.Int("allowed", len(union)),
		zap.Int("answers", len(answers)))
	return &Catalog{allowed: union, answers: answers}
}

// IsAllowed reports whether w is a member of the combined vocabulary.
func (c *Catalog) IsAllowed(w string) bool {
	_, ok := c.allowed[strings.ToUpper(w)]
	return ok
}

// DrawAnswer picks uniformly at random from the answer pool. Each call is an
// independent draw; repeats across rounds are possible.
func (c *Catalog) DrawAnswer() string {
	if len(c.answers) == 0 {
		return "CRANE"
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(c.answers))))
	return c.answers[n.Int64()]
}

// readWordFile loads one word per line, case-folds to uppercase, and keeps
// only exactly-5-letter alphabetic entries. An empty path or unreadable file
// yields nil.
func readWordFile(path string, log *zap.Logger) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn("word list unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w, ok := normalizeWord(sc.Text()); ok {
			out = append(out, w)
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn("word list truncated", zap.String("path", path), zap.Error(err))
	}
	return out
}

func normalizeLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if w, ok := normalizeWord(line); ok {
			out = append(out, w)
		}
	}
	return out
}

func normalizeWord(line string) (string, bool) {
	w := strings.ToUpper(strings.TrimSpace(line))
	if len(w) != 5 || !isAlpha(w) {
		return "", false
	}
	return w, true
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
