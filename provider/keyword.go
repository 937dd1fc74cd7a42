package provider

import (
	"context"
	"strings"
)

// KeywordAnalyzer scores sentiment from Polish keyword matches. It is the
// offline fallback when the inference API is unreachable.
type KeywordAnalyzer struct {
	negative []string
	positive []string
}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{
		negative: []string{
			"kurde", "kurwa", "cholera", "do diabła", "szlag",
			"zmęczony", "zmęczona", "wykończony", "wykończona", "padnięty",
			"nie działa", "nie wiem", "nie rozumiem", "nie mogę",
			"błąd", "error", "bug", "problem", "utknąłem", "utknęłam",
			"zły", "zła", "wkurzony", "wkurzona", "sfrustrowany", "sfrustrowana",
			"denerwuje", "irytuje", "wnerwiający", "głupi", "głupie",
			"poddaję się", "nie dam rady", "beznadziejne", "bezsensowne",
		},
		positive: []string{
			"działa", "udało się", "rozwiązałem", "rozwiązałam",
			"naprawiłem", "naprawiłam", "znalazłem", "znalazłam",
			"super", "świetnie", "wspaniale", "ekstra", "fajnie",
			"rewelacja", "bomba", "git", "spoko",
			"ciekawe", "interesujące", "pomysł", "idea",
			"wiem", "rozumiem", "jasne", "proste",
		},
	}
}

func (k *KeywordAnalyzer) Analyze(_ context.Context, text string) (SentimentResult, error) {
	lower := strings.ToLower(text)

	var negCount, posCount int
	for _, kw := range k.negative {
		if strings.Contains(lower, kw) {
			negCount++
		}
	}
	for _, kw := range k.positive {
		if strings.Contains(lower, kw) {
			posCount++
		}
	}

	total := negCount + posCount
	if total == 0 {
		return SentimentResult{
			Label:      SentimentNeutral,
			Confidence: 0.5,
			Scores:     map[string]float64{SentimentPositive: 0.33, SentimentNegative: 0.33, SentimentNeutral: 0.34},
		}, nil
	}

	posScore := float64(posCount) / float64(total)
	negScore := float64(negCount) / float64(total)

	result := SentimentResult{
		Scores: map[string]float64{
			SentimentPositive: posScore,
			SentimentNegative: negScore,
			SentimentNeutral:  max(0, 1-posScore-negScore),
		},
	}
	switch {
	case negScore > posScore:
		result.Label = SentimentNegative
		result.Confidence = min(0.9, 0.5+negScore*0.4)
	case posScore > negScore:
		result.Label = SentimentPositive
		result.Confidence = min(0.9, 0.5+posScore*0.4)
	default:
		result.Label = SentimentNeutral
		result.Confidence = 0.5
	}
	return result, nil
}

// FallbackAnalyzer tries the primary analyzer and falls back when it
// fails. The fallback's error, if any, is returned.
type FallbackAnalyzer struct {
	Primary  Analyzer
	Fallback Analyzer
}

func (f *FallbackAnalyzer) Analyze(ctx context.Context, text string) (SentimentResult, error) {
	res, err := f.Primary.Analyze(ctx, text)
	if err == nil {
		return res, nil
	}
	return f.Fallback.Analyze(ctx, text)
}
