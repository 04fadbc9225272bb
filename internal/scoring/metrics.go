package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// #region patterns
// Compiled once at init; *regexp.Regexp is safe for concurrent use.
var (
	absoluteWordsPattern = regexp.MustCompile(`(?i)\b(?:always|never|everything|nothing|everyone|nobody|forever|completely|totally|absolutely)\b`)

	twistKeywordPattern = regexp.MustCompile(`(?i)\b(?:twist|twists|reveal|reveals|revealed|betray|betrays|betrayed|betrayal|turns out|all along|double[- ]cross(?:ed|es)?|unmasked|secretly)\b`)

	conspiracyPattern = regexp.MustCompile(`(?i)\b(?:conspiracy|conspiracies|cover[- ]up|cabal|shadow government|secret (?:society|organization|organisation)|puppet ?master|pulling (?:the )?strings)\b`)

	shockPattern = regexp.MustCompile(`(?i)\b(?:explosion|explodes|exploded|murder|murdered|gunshot|gunshots|blood|bloody|scream|screams|screamed|massacre|bomb|bombing|corpse|dies|killed|stabbed)\b`)

	// quoted spans longer than longSpeechChars, straight or curly quotes
	longSpeechPattern = regexp.MustCompile(`"[^"]{151,}"|“[^”]{151,}”`)

	characterIntroPattern = regexp.MustCompile(`(?i)\b(?:meet|introducing|a (?:man|woman|girl|boy|stranger|newcomer) named|(?:his|her|their) name (?:is|was))\b`)

	// screenplay convention: first appearance in caps with an age, e.g. "MARA (30s)"
	slugIntroPattern = regexp.MustCompile(`\b[A-Z]{2,}(?: [A-Z]{2,})? \(\d{1,2}s?\)`)

	legitimacyPattern = regexp.MustCompile(`(?i)\b(?:has a point|not wrong|understandable|justified|legitimate grievance|from (?:his|her|their) (?:side|perspective)|believes? (?:he|she|they) (?:is|are) (?:right|doing the right thing))\b`)

	namedFactionPattern = regexp.MustCompile(`\b(?:[A-Z][a-z]+ )+(?:Guild|Order|Syndicate|Cartel|Council|Alliance|Brotherhood|Clan|Faction|Cabal|Collective|Agency|Front)\b`)

	plotThreadPattern = regexp.MustCompile(`(?i)\b(?:meanwhile|subplot|elsewhere|at the same time|back at the|across town)\b`)

	subtextPattern = regexp.MustCompile(`(?i)\b(?:doesn['’]t say|does not say|didn['’]t say|unspoken|says nothing|said nothing|changes the subject|changed the subject|instead of answering|avoids (?:the question|his eyes|her eyes|their eyes|eye contact)|looks away|looked away)\b`)

	quietBeatPattern = regexp.MustCompile(`(?i)\b(?:silence|silent|stillness|quiet|pause|pauses|paused|alone|breathes|exhales)\b`)

	meaningShiftPattern = regexp.MustCompile(`(?i)\b(?:realizes|realized|understands now|for the first time|sees (?:it|him|her|them) differently|changes (?:his|her|their) mind|no longer)\b`)

	costOfActionPattern = regexp.MustCompile(`(?i)\b(?:at the cost of|costs? (?:him|her|them)|sacrifice|sacrifices|sacrificed|gives up|gave up|loses|lost everything|pays the price)\b`)
)

// #endregion patterns

// #region compute
// ComputeRulesetMetrics approximates craft signals in text with pattern counts.
// Text with no words yields the zero value.
func ComputeRulesetMetrics(text string) RulesetMetrics {
	words := wordCount(text)
	if words == 0 {
		return RulesetMetrics{}
	}

	return RulesetMetrics{
		AbsoluteWordsRate:    perThousand(count(absoluteWordsPattern, text), words),
		TwistKeywordRate:     perThousand(count(twistKeywordPattern, text), words),
		ConspiracyMarkers:    count(conspiracyPattern, text),
		ShockEventsEarly:     count(shockPattern, leadingPortion(text, earlyFraction)),
		SpeechLengthProxy:    count(longSpeechPattern, text),
		NewCharacterDensity:  perThousand(count(characterIntroPattern, text)+count(slugIntroPattern, text), words),
		AntagonistLegitimacy: legitimacyPattern.MatchString(text),
		NamedFactions:        count(namedFactionPattern, text),
		PlotThreadCount:      count(plotThreadPattern, text),
		SubtextSceneCount:    count(subtextPattern, text),
		QuietBeatsCount:      count(quietBeatPattern, text),
		MeaningShiftCount:    count(meaningShiftPattern, text),
		CostOfActionMarkers:  count(costOfActionPattern, text),
	}
}

// #endregion compute

// #region helpers
func wordCount(text string) int {
	return len(strings.Fields(text))
}

func count(re *regexp.Regexp, text string) int {
	return len(re.FindAllStringIndex(text, -1))
}

func perThousand(n, words int) float64 {
	if words == 0 {
		return 0
	}
	return float64(n) / float64(words) * 1000
}

// leadingPortion returns the first fraction of text measured in characters.
func leadingPortion(text string, fraction float64) string {
	cutoff := int(float64(utf8.RuneCountInString(text)) * fraction)
	i := 0
	for pos := range text {
		if i == cutoff {
			return text[:pos]
		}
		i++
	}
	return text
}

// #endregion helpers
