package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// Time-of-day buckets partition the bookable day into fixed one-hour slots.
const (
	BucketMorning   = "morning"   // 06:00 - 12:00
	BucketAfternoon = "afternoon" // 12:00 - 17:00
	BucketEvening   = "evening"   // 17:00 - 22:00
)

var bucketHours = map[string][2]int{
	BucketMorning:   {6, 12},
	BucketAfternoon: {12, 17},
	BucketEvening:   {17, 22},
}

// BucketTemplate returns the fixed slot labels for a time-of-day bucket.
func BucketTemplate(bucket string) []string {
	hours, ok := bucketHours[bucket]
	if !ok {
		return nil
	}
	var slots []string
	for h := hours[0]; h < hours[1]; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00 - %02d:00", h, h+1))
	}
	return slots
}

var (
	dashReplacer = strings.NewReplacer("–", "-", "—", "-", "−", "-")
	clockRe      = regexp.MustCompile(`([0-9]{1,2}):([0-9]{2})`)
)

// NormalizeSlotLabel canonicalizes a slot label: dash variants become "-",
// whitespace collapses, and an HH:MM pair is reformatted as
// "HH:MM - HH:MM" with zero-padded hours.
func NormalizeSlotLabel(label string) string {
	s := strings.TrimSpace(dashReplacer.Replace(label))
	if start, end, ok := ParseRange(s); ok {
		return fmt.Sprintf("%s - %s", start, end)
	}
	return strings.Join(strings.Fields(s), " ")
}

// ParseRange extracts the (start, end) clock pair out of a slot label,
// zero-padded. ok is false unless the label holds exactly two HH:MM times.
func ParseRange(label string) (start, end string, ok bool) {
	matches := clockRe.FindAllStringSubmatch(dashReplacer.Replace(label), -1)
	if len(matches) != 2 {
		return "", "", false
	}
	pad := func(m []string) string {
		h, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:%s", h, m[2])
	}
	return pad(matches[0]), pad(matches[1]), true
}

// Catalog is the ephemeral id-indexed view of currently offered slots.
type Catalog struct {
	Mapping map[string]string // slot_<i> -> normalized label
	Order   []string          // normalized labels, offer order
	Widened bool              // bucket was empty, full day offered instead
}

// Empty reports whether no slot at all could be offered.
func (c Catalog) Empty() bool { return len(c.Order) == 0 }

// NormalizeReported dedupes and canonicalizes externally-reported slot
// labels, preserving their order.
func NormalizeReported(reported []string) []string {
	seen := make(map[string]bool, len(reported))
	var out []string
	for _, label := range reported {
		n := NormalizeSlotLabel(label)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// BuildCatalog intersects a bucket's template against externally-reported
// availability and assigns short synthetic ids to the result. If the bucket
// yields nothing but the day has other availability, the full day's slots
// are offered instead (Widened). An empty reported list yields an empty
// catalog, which is distinct from widening.
func BuildCatalog(bucket string, reported []string) Catalog {
	available := NormalizeReported(reported)
	if len(available) == 0 {
		return Catalog{}
	}

	template := BucketTemplate(bucket)
	availSet := make(map[string]bool, len(available))
	for _, label := range available {
		availSet[label] = true
	}

	var offered []string
	for _, slot := range template {
		if availSet[slot] {
			offered = append(offered, slot)
		}
	}

	// Structural fallback: same clock times, different label shape.
	if len(offered) == 0 {
		type rng struct{ start, end string }
		availByRange := make(map[rng]string, len(available))
		for _, label := range available {
			if start, end, ok := ParseRange(label); ok {
				availByRange[rng{start, end}] = label
			}
		}
		for _, slot := range template {
			if start, end, ok := ParseRange(slot); ok {
				if label, hit := availByRange[rng{start, end}]; hit {
					offered = append(offered, label)
				}
			}
		}
	}

	widened := false
	if len(offered) == 0 {
		offered = available
		widened = true
	}

	mapping := make(map[string]string, len(offered))
	for i, label := range offered {
		mapping[fmt.Sprintf("slot_%d", i)] = label
	}
	return Catalog{Mapping: mapping, Order: offered, Widened: widened}
}

// ResolveSelection maps a user reply onto a catalog entry. Tried in order:
// exact catalog id, numeric 1-based index, exact label, normalized label.
// Returns "" when nothing matches.
func ResolveSelection(working models.WorkingState, token string) string {
	if len(working.SlotOrder) == 0 {
		return ""
	}
	if label, ok := working.SlotCatalog[token]; ok {
		return label
	}
	if n, err := strconv.Atoi(token); err == nil && n >= 1 && n <= len(working.SlotOrder) {
		return working.SlotOrder[n-1]
	}
	for _, label := range working.SlotOrder {
		if label == token {
			return label
		}
	}
	normalized := NormalizeSlotLabel(token)
	for _, label := range working.SlotOrder {
		if label == normalized {
			return label
		}
	}
	return ""
}
