package reminders

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// ParseSlot validates a clock time and normalises it to HH:MM.
// "8:5" is rejected, "8:05" becomes "08:05".
func ParseSlot(s string) (string, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidTime, s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidTime, s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidTime, s)
	}
	return fmt.Sprintf("%02d:%02d", hh, mm), nil
}

// DefaultSlots seeds reminder times from a frequency descriptor.
func DefaultSlots(frequency string) []string {
	f := strings.ToLower(strings.TrimSpace(frequency))
	switch {
	case f == "" || f == "1" || f == "daily" || strings.Contains(f, "once"),
		f == "weekly" || f == "monthly" || strings.Contains(f, "as needed"):
		return []string{"08:00"}
	case f == "2" || f == "bid" || strings.Contains(f, "twice") || strings.Contains(f, "12 hours"):
		return []string{"08:00", "20:00"}
	case strings.Contains(f, "8 hours"):
		return []string{"06:00", "14:00", "22:00"}
	case f == "3" || f == "tid" || strings.Contains(f, "three"):
		return []string{"08:00", "14:00", "20:00"}
	case strings.Contains(f, "6 hours"):
		return []string{"06:00", "12:00", "18:00", "00:00"}
	case f == "4" || f == "qid" || strings.Contains(f, "four"):
		return []string{"08:00", "12:00", "16:00", "20:00"}
	default:
		return []string{"08:00"}
	}
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		t, err := ParseSlot(s)
		if err != nil || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
