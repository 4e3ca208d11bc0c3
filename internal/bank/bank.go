// Package bank loads and serves the question bank. The bank is immutable
// after load; the engine tracks which indices it has used per session.
package bank

import (
	"bufio"
	"context"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"mesh-jeopardy-service/internal/domain"
)

// DefaultPoints is used when a question header carries no point value.
const DefaultPoints = 100

// Source loads question records from a backing store (file, Postgres, etc).
type Source interface {
	LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error)
}

// Bank indexes point-valued questions for random selection.
type Bank struct {
	questions []domain.QuestionRecord
	rnd       *rand.Rand
}

func New(questions []domain.QuestionRecord) *Bank {
	return &Bank{
		questions: questions,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *Bank) Len() int {
	return len(b.questions)
}

// Pick returns a uniform-random question among indices not in used.
// The third result is false when the bank is exhausted.
func (b *Bank) Pick(used map[int]struct{}) (domain.QuestionRecord, int, bool) {
	available := make([]int, 0, len(b.questions))
	for i := range b.questions {
		if _, ok := used[i]; !ok {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		return domain.QuestionRecord{}, 0, false
	}
	idx := available[b.rnd.Intn(len(available))]
	return b.questions[idx], idx, true
}

// Parse reads header-delimited question blocks:
//
//	Q:100: What port does SSH use?
//	A: 22
//	A: twenty-two
//
// A `Q:` line starts a new record; `A:` lines append accepted answers
// (lowercased). The point value defaults to DefaultPoints when the header
// has no numeric field. A trailing block without any answer is discarded.
func Parse(r io.Reader) []domain.QuestionRecord {
	var (
		questions []domain.QuestionRecord
		text      string
		answers   []string
		points    = DefaultPoints
	)

	flush := func() {
		if text != "" && len(answers) > 0 {
			questions = append(questions, domain.QuestionRecord{
				Text:    text,
				Answers: answers,
				Points:  points,
			})
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Q:"):
			flush()
			rest := line[2:]
			points = DefaultPoints
			text = strings.TrimSpace(rest)
			answers = nil
			if head, tail, ok := strings.Cut(rest, ":"); ok {
				if v, err := strconv.Atoi(strings.TrimSpace(head)); err == nil && v > 0 {
					points = v
					text = strings.TrimSpace(tail)
				}
			}
		case strings.HasPrefix(line, "A:"):
			answers = append(answers, strings.ToLower(strings.TrimSpace(line[2:])))
		}
	}
	flush()
	return questions
}

// LoadFile parses questions from path. It fails open: when the file is
// unreadable or yields no well-formed records, the built-in fallback set is
// returned so the engine can always start.
func LoadFile(path string) []domain.QuestionRecord {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("questions file %s unreadable (%v), using fallback set", path, err)
		return Fallback()
	}
	defer f.Close()

	questions := Parse(f)
	if len(questions) == 0 {
		log.Printf("questions file %s has no usable records, using fallback set", path)
		return Fallback()
	}
	return questions
}

// FileSource adapts LoadFile to the Source interface.
type FileSource struct {
	Path string
}

func (s FileSource) LoadQuestions(_ context.Context) ([]domain.QuestionRecord, error) {
	return LoadFile(s.Path), nil
}

// Fallback is the built-in question set used when no source is usable.
func Fallback() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{Text: "What port does SSH use by default?", Answers: []string{"22", "twenty-two"}, Points: 100},
		{Text: "What does XSS stand for?", Answers: []string{"cross-site scripting", "cross site scripting"}, Points: 200},
		{Text: "What is the default port for HTTPS?", Answers: []string{"443", "four forty-three"}, Points: 100},
	}
}
