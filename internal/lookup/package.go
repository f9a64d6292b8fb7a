package lookup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"mepbid/internal"
	"mepbid/internal/util"
)

// RecoveryReport describes how a package file was read. Strict is false when
// the recovery pass had to pick entries out of malformed text.
type RecoveryReport struct {
	Strict  bool
	Entries int
	Dropped int
}

func (r RecoveryReport) String() string {
	mode := "strict"
	if !r.Strict {
		mode = "recovered"
	}
	return fmt.Sprintf("%s entries=%d dropped=%d", mode, r.Entries, r.Dropped)
}

var (
	reFlatPair    = regexp.MustCompile(`"(\d+)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	reFlatKey     = regexp.MustCompile(`"(\d+)"\s*:`)
	reItemNumber  = regexp.MustCompile(`"item_number"\s*:\s*(?:"((?:[^"\\]|\\.)*)"|(-?\d+(?:\.\d+)?))`)
	reLabelFields = map[internal.Discipline]*regexp.Regexp{
		internal.Mechanical: regexp.MustCompile(`"group"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		internal.Plumbing:   regexp.MustCompile(`"category"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	}
)

// LoadPackages reads a package grouping file for a discipline. It never
// fails on content: malformed JSON goes through the recovery pass and a
// hopeless file yields an empty table. A missing file is reported through
// found=false so callers can decide whether the view still makes sense.
func LoadPackages(path string, discipline internal.Discipline, fallback string) (table Table, report RecoveryReport, found bool, err error) {
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(nil, fallback), RecoveryReport{Strict: true}, false, nil
	}
	if err != nil {
		return NewTable(nil, fallback), RecoveryReport{}, false, err
	}
	entries, report := ParsePackages(blob, discipline)
	return NewTable(entries, fallback), report, true, nil
}

// ParsePackages tries a strict decode first and falls back to one bounded
// pattern-based pass over the raw text.
func ParsePackages(blob []byte, discipline internal.Discipline) (map[string]string, RecoveryReport) {
	content := util.StripCodeFence(string(blob))
	if entries, dropped, err := parsePackagesStrict([]byte(content), discipline); err == nil {
		return entries, RecoveryReport{Strict: true, Entries: len(entries), Dropped: dropped}
	}
	entries, dropped := recoverPackages(content, discipline)
	return entries, RecoveryReport{Strict: false, Entries: len(entries), Dropped: dropped}
}

func parsePackagesStrict(blob []byte, discipline internal.Discipline) (map[string]string, int, error) {
	switch discipline {
	case internal.Electrical:
		var raw map[string]any
		if err := decodeJSON(blob, &raw); err != nil {
			return nil, 0, err
		}
		out := make(map[string]string, len(raw))
		dropped := 0
		for item, value := range raw {
			label, ok := ScalarString(value)
			if !ok || label == "" {
				dropped++
				continue
			}
			out[strings.TrimSpace(item)] = label
		}
		return out, dropped, nil
	case internal.Mechanical, internal.Plumbing:
		var doc struct {
			BidItems []map[string]any `json:"bid_items"`
		}
		if err := decodeJSON(blob, &doc); err != nil {
			return nil, 0, err
		}
		labelKey := packageLabelKey(discipline)
		out := make(map[string]string, len(doc.BidItems))
		dropped := 0
		for _, entry := range doc.BidItems {
			item, okItem := ScalarString(entry["item_number"])
			label, okLabel := ScalarString(entry[labelKey])
			if !okItem || !okLabel || item == "" || label == "" {
				dropped++
				continue
			}
			out[item] = label
		}
		return out, dropped, nil
	default:
		return nil, 0, fmt.Errorf("unsupported discipline: %s", discipline)
	}
}

func packageLabelKey(discipline internal.Discipline) string {
	if discipline == internal.Plumbing {
		return "category"
	}
	return "group"
}

func recoverPackages(content string, discipline internal.Discipline) (map[string]string, int) {
	out := map[string]string{}
	switch discipline {
	case internal.Electrical:
		pairs := reFlatPair.FindAllStringSubmatch(content, -1)
		for _, m := range pairs {
			out[m[1]] = unescapeJSON(m[2])
		}
		dropped := len(reFlatKey.FindAllStringIndex(content, -1)) - len(pairs)
		if dropped < 0 {
			dropped = 0
		}
		return out, dropped
	case internal.Mechanical, internal.Plumbing:
		labelRe := reLabelFields[discipline]
		dropped := 0
		for _, segment := range strings.Split(content, "{") {
			if !strings.Contains(segment, `"item_number"`) {
				continue
			}
			itemMatch := reItemNumber.FindStringSubmatch(segment)
			labelMatch := labelRe.FindStringSubmatch(segment)
			if itemMatch == nil || labelMatch == nil {
				dropped++
				continue
			}
			item := itemMatch[2]
			if itemMatch[1] != "" {
				item = unescapeJSON(itemMatch[1])
			}
			label := strings.TrimSpace(unescapeJSON(labelMatch[1]))
			if strings.TrimSpace(item) == "" || label == "" {
				dropped++
				continue
			}
			out[strings.TrimSpace(item)] = label
		}
		return out, dropped
	default:
		return out, 0
	}
}

func unescapeJSON(s string) string {
	if unquoted, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return unquoted
	}
	return s
}
