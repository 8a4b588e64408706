package translation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BuildBatch serializes segment texts as SEGMENT_<index> marker lines,
// preserving order.
func BuildBatch(texts []string) string {
	var sb strings.Builder
	for i, text := range texts {
		sb.WriteString(fmt.Sprintf("SEGMENT_%d: %s\n", i, strings.ReplaceAll(text, "\n", " ")))
	}
	return sb.String()
}

// Instructions returns the system prompt for a batch translation call.
func Instructions(sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"You are a professional subtitle translator. Translate each SEGMENT line from %s to %s.\n\n"+
			"Rules:\n"+
			"- Keep every \"SEGMENT_<number>:\" marker exactly as given, one segment per line, same order.\n"+
			"- Translate only the text after the marker; never merge, drop, or renumber segments.\n"+
			"- Adapt pronouns, honorifics, and cultural references naturally for %s-speaking viewers.\n"+
			"- Keep each translation concise enough to read as a subtitle (at most two short lines).\n"+
			"- Return nothing besides the translated SEGMENT lines.",
		langName(sourceLang), langName(targetLang), langName(targetLang),
	)
}

var segmentLineRe = regexp.MustCompile(`^SEGMENT_(\d+):\s*(.+)$`)

// ParseBatch matches response lines against the SEGMENT_<index> marker
// pattern. Lines that do not match are discarded; the second return
// value lists segment indices that stayed untranslated so partial
// results are detectable rather than silently lossy.
func ParseBatch(response string, count int) (map[int]string, []int) {
	parsed := make(map[int]string)
	for _, line := range strings.Split(response, "\n") {
		m := segmentLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= count {
			continue
		}
		if _, seen := parsed[idx]; seen {
			continue
		}
		if text := strings.TrimSpace(m[2]); text != "" {
			parsed[idx] = text
		}
	}

	var missing []int
	for i := 0; i < count; i++ {
		if _, ok := parsed[i]; !ok {
			missing = append(missing, i)
		}
	}
	return parsed, missing
}

func langName(code string) string {
	names := map[string]string{
		"bn":   "Bengali",
		"en":   "English",
		"hi":   "Hindi",
		"ar":   "Arabic",
		"es":   "Spanish",
		"fr":   "French",
		"de":   "German",
		"pt":   "Portuguese",
		"ru":   "Russian",
		"ja":   "Japanese",
		"ko":   "Korean",
		"zh":   "Chinese",
		"auto": "the auto-detected language",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
