// Package strength puntua la fortaleza de un password con reglas heuristicas fijas.
package strength

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 8
	MaxScore  = 4

	WarningTooShort       = "Password is too short"
	WarningCommonPatterns = `Avoid common patterns like "123" or "password"`

	SuggestionLength  = "Use at least 8 characters"
	SuggestionUpper   = "Add uppercase letters"
	SuggestionLower   = "Add lowercase letters"
	SuggestionNumbers = "Add numbers"
	SuggestionSpecial = "Add special characters"
)

const specialChars = `!@#$%^&*(),.?":{}|<>`

var ErrEmptyPassword = errors.New("password is required")

type pattern struct {
	token    string
	foldCase bool
}

// "abc" solo cuenta en minusculas: "Abc12345!" es un password de puntaje maximo.
var defaultPatterns = []pattern{
	{token: "password", foldCase: true},
	{token: "qwerty", foldCase: true},
	{token: "abc"},
	{token: "admin", foldCase: true},
	{token: "letmein", foldCase: true},
}

// Criteria indica que criterios cumple el password.
type Criteria struct {
	Length         bool `json:"length"`
	HasUpperCase   bool `json:"hasUpperCase"`
	HasLowerCase   bool `json:"hasLowerCase"`
	HasNumbers     bool `json:"hasNumbers"`
	HasSpecialChar bool `json:"hasSpecialChar"`
}

func (c Criteria) satisfied() int {
	n := 0
	for _, ok := range []bool{c.Length, c.HasUpperCase, c.HasLowerCase, c.HasNumbers, c.HasSpecialChar} {
		if ok {
			n++
		}
	}
	return n
}

// Feedback agrupa advertencias y sugerencias para el usuario.
// Warning conserva la primera advertencia emitida; Warnings las lista todas en orden.
type Feedback struct {
	Warning     string   `json:"warning"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

func (f *Feedback) warn(msg string) {
	if f.Warning == "" {
		f.Warning = msg
	}
	f.Warnings = append(f.Warnings, msg)
}

// Result es la salida del scorer.
type Result struct {
	Score    int      `json:"score"`
	Feedback Feedback `json:"feedback"`
	Criteria Criteria `json:"criteria"`
}

// Scorer evalua passwords contra los criterios y la lista de patrones comunes.
// Es inmutable y seguro para uso concurrente.
type Scorer struct {
	patterns []pattern
}

type Option func(*Scorer)

// WithWelcomePattern agrega "welcome" a la lista de patrones comunes.
func WithWelcomePattern() Option {
	return func(s *Scorer) {
		s.patterns = append(s.patterns, pattern{token: "welcome", foldCase: true})
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{patterns: append([]pattern(nil), defaultPatterns...)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score puntua el password. Solo falla con ErrEmptyPassword.
func (s *Scorer) Score(password string) (Result, error) {
	if password == "" {
		return Result{}, ErrEmptyPassword
	}

	criteria := Evaluate(password)
	score := clamp(criteria.satisfied()-1, 0, MaxScore)

	feedback := Feedback{
		Warnings:    []string{},
		Suggestions: []string{},
	}
	if !criteria.Length {
		feedback.Suggestions = append(feedback.Suggestions, SuggestionLength)
		feedback.warn(WarningTooShort)
	}
	if !criteria.HasUpperCase {
		feedback.Suggestions = append(feedback.Suggestions, SuggestionUpper)
	}
	if !criteria.HasLowerCase {
		feedback.Suggestions = append(feedback.Suggestions, SuggestionLower)
	}
	if !criteria.HasNumbers {
		feedback.Suggestions = append(feedback.Suggestions, SuggestionNumbers)
	}
	if !criteria.HasSpecialChar {
		feedback.Suggestions = append(feedback.Suggestions, SuggestionSpecial)
	}

	if s.hasCommonPattern(password) {
		score = clamp(score-1, 0, MaxScore)
		feedback.warn(WarningCommonPatterns)
	}

	return Result{
		Score:    score,
		Feedback: feedback,
		Criteria: criteria,
	}, nil
}

// Evaluate calcula los cinco criterios. Las clases de caracteres son ASCII.
// La longitud cuenta code points: un emoji fuera del BMP vale 1, no los 2
// code units UTF-16 que contaria un cliente JS.
func Evaluate(password string) Criteria {
	c := Criteria{
		Length:         utf8.RuneCountInString(password) >= MinLength,
		HasSpecialChar: strings.ContainsAny(password, specialChars),
	}
	for i := 0; i < len(password); i++ {
		b := password[i]
		switch {
		case b >= 'A' && b <= 'Z':
			c.HasUpperCase = true
		case b >= 'a' && b <= 'z':
			c.HasLowerCase = true
		case b >= '0' && b <= '9':
			c.HasNumbers = true
		}
	}
	return c
}

func (s *Scorer) hasCommonPattern(password string) bool {
	if strings.HasPrefix(password, "123") {
		return true
	}
	lower := strings.ToLower(password)
	for _, p := range s.patterns {
		haystack := password
		if p.foldCase {
			haystack = lower
		}
		if strings.Contains(haystack, p.token) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
