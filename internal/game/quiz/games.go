package quiz

import (
	"errors"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"arcade/internal/game"
)

const (
	MathDuelType game.Type = "math-duel"
	FlagsType    game.Type = "flags-quiz"
	AnagramsType game.Type = "anagrams"
)

// QuestionsPerRound is the length of every generated question list.
const QuestionsPerRound = 10

// MathDuel asks integer arithmetic questions with free-text answers.
func MathDuel() Rules {
	return Rules{
		info:     game.Info{Type: MathDuelType, Title: "Math Duel", Aliases: []string{"math"}},
		generate: mathQuestions,
		validate: func(_ Question, answer string) error {
			if _, err := strconv.Atoi(answer); err != nil {
				return errors.New("answer must be a whole number")
			}
			return nil
		},
		decoy: func(q Question) string {
			n, _ := strconv.Atoi(q.Answer)
			return strconv.Itoa(n + 1)
		},
	}
}

func mathQuestions(rng *rand.Rand) []Question {
	qs := make([]Question, QuestionsPerRound)
	for i := range qs {
		a, b := rng.Intn(20)+1, rng.Intn(20)+1
		var prompt string
		var answer int
		switch rng.Intn(3) {
		case 0:
			prompt, answer = strconv.Itoa(a)+" + "+strconv.Itoa(b), a+b
		case 1:
			if b > a {
				a, b = b, a
			}
			prompt, answer = strconv.Itoa(a)+" - "+strconv.Itoa(b), a-b
		default:
			a, b = a%12+1, b%12+1
			prompt, answer = strconv.Itoa(a)+" × "+strconv.Itoa(b), a*b
		}
		qs[i] = Question{Prompt: prompt, Answer: strconv.Itoa(answer)}
	}
	return qs
}

var countries = []struct{ code, name string }{
	{"AR", "Argentina"}, {"AU", "Australia"}, {"AT", "Austria"}, {"BE", "Belgium"},
	{"BR", "Brazil"}, {"CA", "Canada"}, {"CL", "Chile"}, {"CN", "China"},
	{"CO", "Colombia"}, {"CZ", "Czechia"}, {"DK", "Denmark"}, {"EG", "Egypt"},
	{"FI", "Finland"}, {"FR", "France"}, {"DE", "Germany"}, {"GR", "Greece"},
	{"IN", "India"}, {"IE", "Ireland"}, {"IT", "Italy"}, {"JP", "Japan"},
	{"KE", "Kenya"}, {"MX", "Mexico"}, {"NL", "Netherlands"}, {"NG", "Nigeria"},
	{"NO", "Norway"}, {"PE", "Peru"}, {"PL", "Poland"}, {"PT", "Portugal"},
	{"KR", "South Korea"}, {"ES", "Spain"}, {"SE", "Sweden"}, {"CH", "Switzerland"},
	{"TR", "Turkey"}, {"UA", "Ukraine"}, {"GB", "United Kingdom"}, {"US", "United States"},
}

// flagEmoji turns an ISO 3166 alpha-2 code into its regional-indicator pair.
func flagEmoji(code string) string {
	var b strings.Builder
	for _, c := range code {
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}

// Flags shows a flag and four country names to choose from.
func Flags() Rules {
	return Rules{
		info:     game.Info{Type: FlagsType, Title: "Flags Quiz", Aliases: []string{"flags"}},
		generate: flagQuestions,
	}
}

func flagQuestions(rng *rand.Rand) []Question {
	order := rng.Perm(len(countries))
	qs := make([]Question, QuestionsPerRound)
	for i := range qs {
		right := countries[order[i]]
		choices := []string{right.name}
		for _, j := range rng.Perm(len(countries)) {
			if len(choices) == 4 {
				break
			}
			if j != order[i] {
				choices = append(choices, countries[j].name)
			}
		}
		rng.Shuffle(len(choices), func(a, b int) { choices[a], choices[b] = choices[b], choices[a] })
		qs[i] = Question{Prompt: flagEmoji(right.code), Choices: choices, Answer: right.name}
	}
	return qs
}

var words = []string{
	"planet", "garden", "silver", "castle", "rocket", "pencil", "window", "forest",
	"bridge", "candle", "dragon", "island", "jungle", "market", "orange", "pirate",
	"puzzle", "rabbit", "saddle", "tunnel", "violin", "wizard", "anchor", "basket",
	"cactus", "dinner", "engine", "falcon", "guitar", "helmet", "lantern", "monster",
}

func letters(s string) string {
	r := []rune(s)
	sort.Slice(r, func(i, j int) bool { return r[i] < r[j] })
	return string(r)
}

// Anagrams shows scrambled words; an answer must reuse exactly the shown
// letters, and only the source word scores.
func Anagrams() Rules {
	return Rules{
		info:     game.Info{Type: AnagramsType, Title: "Anagrams"},
		generate: anagramQuestions,
		validate: func(q Question, answer string) error {
			if letters(answer) != letters(normalize(q.Prompt)) {
				return errors.New("answer must use the scrambled letters")
			}
			return nil
		},
		decoy: func(q Question) string { return q.Prompt },
	}
}

func anagramQuestions(rng *rand.Rand) []Question {
	order := rng.Perm(len(words))
	qs := make([]Question, QuestionsPerRound)
	for i := range qs {
		w := words[order[i]]
		r := []rune(w)
		for string(r) == w {
			rng.Shuffle(len(r), func(a, b int) { r[a], r[b] = r[b], r[a] })
		}
		qs[i] = Question{Prompt: string(r), Answer: w}
	}
	return qs
}
