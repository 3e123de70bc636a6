// Package voc is the VOC Pre-Processor (C6): synchronous, deterministic
// NLU over one inbound turn — language detection, entity extraction,
// urgency, and risk flags — targeting under 10ms since it runs on every
// message before the LLM is ever invoked. Every function here is a pure
// function of its inputs, the same heuristic-regex style as
// internal/tools/facts' ExtractTool, just extended past email/url/phone
// into the domain-specific entity set this spec needs.
package voc

import (
	"strings"
	"unicode"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// devanagariRatioThreshold is the character-ratio cutoff above which text
// is classified as Hindi written in Devanagari script.
const devanagariRatioThreshold = 0.4

// hinglishMarkerThreshold is the word-ratio cutoff above which text is
// classified as Hinglish (romanized Hindi/English code-mixing).
const hinglishMarkerThreshold = 0.15

// hinglishLexicon is a fixed set of common romanized-Hindi markers. Not
// exhaustive — it doesn't need to be, it only needs to catch enough
// signal words to separate Hinglish from plain English at the ratio
// threshold above.
var hinglishLexicon = map[string]struct{}{
	"hai": {}, "haan": {}, "nahi": {}, "nahin": {}, "kya": {}, "kyun": {},
	"kyu": {}, "kaise": {}, "kab": {}, "kahan": {}, "kaun": {}, "mera": {},
	"meri": {}, "mere": {}, "aap": {}, "aapka": {}, "aapki": {}, "tum": {},
	"tumhara": {}, "hum": {}, "humara": {}, "bhai": {}, "bhaiya": {},
	"yaar": {}, "theek": {}, "thik": {}, "accha": {}, "acha": {}, "bahut": {},
	"bohot": {}, "karo": {}, "karna": {}, "karenge": {}, "kiya": {}, "hoga": {},
	"hogi": {}, "hoga?": {}, "nahi hai": {}, "plz": {}, "please": {}, "order": {},
	"paisa": {}, "paise": {}, "refund": {}, "jaldi": {}, "abhi": {}, "kab tak": {},
	"batao": {}, "bataiye": {}, "chahiye": {}, "problem": {}, "issue": {},
}

// DetectLanguage classifies text per spec §4.6's language-detection
// ladder: Devanagari ratio first, then a Hinglish lexicon ratio, falling
// back to English.
func DetectLanguage(text string) []models.DetectedLanguage {
	if strings.TrimSpace(text) == "" {
		return []models.DetectedLanguage{{Language: "en", Confidence: 0.9, Script: "latin"}}
	}

	ratio := devanagariRatio(text)
	if ratio > devanagariRatioThreshold {
		confidence := 0.6 + ratio*0.4
		if confidence > 1 {
			confidence = 1
		}
		return []models.DetectedLanguage{{Language: "hi", Confidence: confidence, Script: "devanagari"}}
	}

	markerRatio := hinglishMarkerRatio(text)
	if markerRatio > hinglishMarkerThreshold {
		primaryConfidence := 0.5 + markerRatio
		if primaryConfidence > 1 {
			primaryConfidence = 1
		}
		secondaryConfidence := 1 - markerRatio
		if secondaryConfidence < 0.3 {
			secondaryConfidence = 0.3
		}
		return []models.DetectedLanguage{
			{Language: "hinglish", Confidence: primaryConfidence, Script: "latin"},
			{Language: "en", Confidence: secondaryConfidence, Script: "latin"},
		}
	}

	return []models.DetectedLanguage{{Language: "en", Confidence: 0.9, Script: "latin"}}
}

// devanagariRatio is the fraction of non-space runes in text that fall in
// the Devanagari Unicode block.
func devanagariRatio(text string) float64 {
	total, devanagari := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Devanagari, r) {
			devanagari++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(devanagari) / float64(total)
}

// hinglishMarkerRatio is the fraction of words in text found in the
// Hinglish lexicon.
func hinglishMarkerRatio(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	marked := 0
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'")
		if _, ok := hinglishLexicon[w]; ok {
			marked++
		}
	}
	return float64(marked) / float64(len(words))
}
