// Package readability implements Analyzer — Readability (C9): Flesch
// Reading Ease, sentence complexity, vocabulary diversity, and content
// organization, computed from a single pass over body text extracted via
// go-readability. Weight 15%, maxScore 100.
package readability

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"
)

// languageDetector is built once over a fixed set of common web-content
// languages; SPEC_FULL.md's language gate only needs to distinguish
// English from non-English, not identify every possible language.
var languageDetector = lingua.NewLanguageDetectorBuilder().
	FromLanguages(
		lingua.English, lingua.Spanish, lingua.French, lingua.German,
		lingua.Portuguese, lingua.Italian, lingua.Dutch, lingua.Russian,
		lingua.Chinese, lingua.Japanese,
	).
	Build()

// nonEnglishConfidenceThreshold is the fixed threshold above which a
// detected non-English language triggers the calibration-mismatch note.
const nonEnglishConfidenceThreshold = 0.7

// Input is everything the analyzer needs.
type Input struct {
	Doc      *htmldoc.ParsedDocument
	RawHTML  string
	PageURL  string
}

// Result is C9's raw analyzer output.
type Result struct {
	LinguisticPrecision report.Drawer
	TextComplexity      report.Drawer
	ContentOrganization report.Drawer
}

// textStats is computed once and reused across every Readability metric,
// per the spec's "single Flesch calculation" invariant.
type textStats struct {
	text          string
	sentenceCount int
	wordCount     int
	syllableCount int
	words         []string
}

// Analyze runs the Readability analyzer.
func Analyze(in Input) Result {
	text := extractBodyText(in)
	wordCount := len(tokenizeWords(text))

	if wordCount < 20 {
		card := report.NewCard("insufficient-content", "Insufficient Content", "The page has too little body text to compute readability metrics.",
			0, 100, []report.Recommendation{{
				Problem:  fmt.Sprintf("Body text has only %d words; readability metrics require at least 20.", wordCount),
				Solution: "Add substantive body content before re-auditing readability.",
				Impact:   6,
			}}, "", map[string]any{"wordCount": wordCount})
		drawer := report.NewDrawer("insufficient-content", "Insufficient Content", "Guard: body text is too short to analyze.", []report.MetricCard{card})
		return Result{LinguisticPrecision: drawer}
	}

	stats := computeStats(text)
	langNote, isNonEnglish := languageNote(text)

	flesch := fleschCard(stats, langNote, isNonEnglish)
	sentence := sentenceComplexityCard(stats)
	vocabulary := vocabularyDiversityCard(stats)
	organization := contentOrganizationCard(in, stats)

	return Result{
		LinguisticPrecision: report.NewDrawer("linguistic-precision", "Linguistic Precision", "Flesch Reading Ease score.", []report.MetricCard{flesch}),
		TextComplexity:      report.NewDrawer("text-complexity", "Text Complexity", "Sentence complexity and vocabulary diversity.", []report.MetricCard{sentence, vocabulary}),
		ContentOrganization: report.NewDrawer("content-organization", "Content Organization", "Paragraph structure and content density.", []report.MetricCard{organization}),
	}
}

// extractBodyText prefers go-readability's boilerplate-stripped article
// text; it falls back to the raw DOM's body text if readability parsing
// fails (e.g. a fragment with no recognizable article structure).
func extractBodyText(in Input) string {
	if in.RawHTML != "" {
		pageURL, _ := url.Parse(in.PageURL)
		parser := readability.NewParser()
		article, err := parser.Parse(strings.NewReader(in.RawHTML), pageURL)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return article.TextContent
		}
	}
	if in.Doc != nil {
		return in.Doc.BodyText()
	}
	return ""
}

var sentenceBoundary = regexp.MustCompile(`[.!?]+(\s+|$)`)
var wordPunct = regexp.MustCompile(`[^\w'-]+`)
var vowelGroup = regexp.MustCompile(`[aeiouy]+`)

func tokenizeWords(text string) []string {
	cleaned := wordPunct.ReplaceAllString(text, " ")
	return strings.Fields(cleaned)
}

func computeStats(text string) textStats {
	words := tokenizeWords(text)

	sentences := sentenceBoundary.Split(strings.TrimSpace(text), -1)
	sentenceCount := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	return textStats{
		text:          text,
		sentenceCount: sentenceCount,
		wordCount:     len(words),
		syllableCount: syllables,
		words:         words,
	}
}

// countSyllables is a heuristic vowel-group count: floor 1, minus one for
// a trailing silent 'e' when more than one group remains.
func countSyllables(word string) int {
	w := strings.ToLower(word)
	groups := vowelGroup.FindAllString(w, -1)
	count := len(groups)
	if count == 0 {
		count = 1
	}
	if strings.HasSuffix(w, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func languageNote(text string) (string, bool) {
	sample := text
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	language, exists := languageDetector.DetectLanguageOf(sample)
	if !exists || language == lingua.English {
		return "", false
	}
	confidence := languageDetector.ComputeLanguageConfidence(sample, language)
	return language.String(), confidence >= nonEnglishConfidenceThreshold
}

func fleschScore(stats textStats) float64 {
	wordsPerSentence := float64(stats.wordCount) / float64(stats.sentenceCount)
	syllablesPerWord := float64(stats.syllableCount) / float64(stats.wordCount)
	return 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
}

func fleschCard(stats textStats, langName string, nonEnglish bool) report.MetricCard {
	score := fleschScore(stats)

	var points int
	var recs []report.Recommendation
	switch {
	case score >= 60:
		points = 40
	case score >= 50:
		points = 26
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Flesch Reading Ease is %.1f, in the 50-60 partial range.", score), Solution: "Shorten sentences and prefer shorter, more common words.", Impact: 3})
	default:
		points = 10
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Flesch Reading Ease is %.1f, below 50.", score), Solution: "Simplify sentence structure and vocabulary substantially.", Impact: 5})
	}

	if nonEnglish {
		recs = append(recs, report.Recommendation{
			Problem:  fmt.Sprintf("Detected content language is %s; the Flesch formula is calibrated for English.", langName),
			Solution: "Interpret this score as directional only for non-English content; consider a language-specific readability formula.",
			Impact:   1,
		})
	}

	return report.NewCard("flesch-reading-ease", "Flesch Reading Ease", "Classic Flesch Reading Ease formula over body text.",
		points, 40, recs, successMessageIfEmpty(recs, "Flesch Reading Ease indicates the content is easy to read."),
		map[string]any{"fleschScore": round2(score), "words": stats.wordCount, "sentences": stats.sentenceCount, "syllables": stats.syllableCount, "detectedLanguage": langName})
}

func sentenceComplexityCard(stats textStats) report.MetricCard {
	avgLen := float64(stats.wordCount) / float64(stats.sentenceCount)

	score := 20
	var recs []report.Recommendation
	if avgLen > 25 {
		score = 8
		recs = append(recs, report.Recommendation{
			Problem:  fmt.Sprintf("Average sentence length is %.1f words, above the 25-word threshold.", avgLen),
			Solution: "Break long sentences into shorter, single-idea sentences.",
			Impact:   3,
		})
	}

	return report.NewCard("sentence-complexity", "Sentence Complexity", "Checks average sentence length.",
		score, 20, recs, successMessageIfEmpty(recs, "Sentences are an easily digestible length."),
		map[string]any{"averageSentenceLength": round2(avgLen)})
}

var trailingSuffix = regexp.MustCompile(`(ing|ed|es|s)$`)

func lemmaApprox(word string) string {
	w := strings.ToLower(word)
	if len(w) > 5 {
		w = trailingSuffix.ReplaceAllString(w, "")
	}
	return w
}

func vocabularyDiversityCard(stats textStats) report.MetricCard {
	unique := map[string]bool{}
	for _, w := range stats.words {
		unique[lemmaApprox(w)] = true
	}
	ratio := float64(len(unique)) / float64(len(stats.words))

	score := 20
	var recs []report.Recommendation
	if ratio <= 0.4 {
		score = int(round(20 * ratio / 0.4))
		recs = append(recs, report.Recommendation{
			Problem:  fmt.Sprintf("Vocabulary diversity ratio is %.2f, at or below the 0.4 target.", ratio),
			Solution: "Vary word choice; avoid repeating the same few words throughout the content.",
			Impact:   2,
		})
	}

	return report.NewCard("vocabulary-diversity", "Vocabulary Diversity", "Ratio of unique lemma-approximated words to total words.",
		score, 20, recs, successMessageIfEmpty(recs, "Vocabulary is sufficiently varied."),
		map[string]any{"uniqueWords": len(unique), "totalWords": len(stats.words), "ratio": round2(ratio)})
}

func contentOrganizationCard(in Input, stats textStats) report.MetricCard {
	paragraphCount := 0
	if in.Doc != nil {
		paragraphCount = in.Doc.Find("p").Length()
	}
	if paragraphCount == 0 {
		paragraphCount = len(strings.Split(strings.TrimSpace(stats.text), "\n\n"))
	}

	avgParagraphLen := float64(stats.wordCount) / float64(maxInt(paragraphCount, 1))

	ratio := 0.0
	if in.Doc != nil && in.Doc.RawLength() > 0 {
		ratio = float64(len(stats.text)) / float64(in.Doc.RawLength()) * 100
	}

	score := 20
	var recs []report.Recommendation
	if paragraphCount <= 1 {
		score -= 10
		recs = append(recs, report.Recommendation{Problem: "Content is not broken into multiple paragraphs.", Solution: "Split content into focused paragraphs to aid scanning and extraction.", Impact: 3})
	}
	if avgParagraphLen > 150 {
		score -= 5
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Average paragraph length is %.0f words, quite long.", avgParagraphLen), Solution: "Break long paragraphs into shorter ones.", Impact: 2})
	}
	if score < 0 {
		score = 0
	}

	return report.NewCard("content-organization", "Content Organization", "Checks paragraph count, average paragraph length, and text density.",
		score, 20, recs, successMessageIfEmpty(recs, "Content is well organized into paragraphs."),
		map[string]any{"paragraphCount": paragraphCount, "averageParagraphLength": round2(avgParagraphLen), "textToHtmlRatio": round2(ratio)})
}

func successMessageIfEmpty(recs []report.Recommendation, msg string) string {
	if len(recs) == 0 {
		return msg
	}
	return ""
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round(f float64) float64 {
	if f < 0 {
		return f - 0.5
	}
	return f + 0.5
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
