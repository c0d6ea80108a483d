package availability

import (
	"fmt"
	"time"
)

const (
	labelLayout  = "3:04 PM"
	storedLayout = "15:04"
)

// Ladder is the fixed, ordered list of bookable hourly labels.
var Ladder = []string{
	"8:00 AM", "9:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
	"1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM", "5:00 PM", "6:00 PM",
}

var ladderIndex = func() map[string]int {
	idx := make(map[string]int, len(Ladder))
	for i, l := range Ladder {
		idx[l] = i
	}
	return idx
}()

// OnLadder reports whether label is one of the canonical slots.
func OnLadder(label string) bool {
	_, ok := ladderIndex[label]
	return ok
}

// FormatTimeForSubmission converts a 12-hour label to the zero-padded 24-hour
// "HH:MM" form meetings are stored with: "1:00 PM" -> "13:00",
// "12:00 PM" -> "12:00", "12:00 AM" -> "00:00".
func FormatTimeForSubmission(label string) (string, error) {
	t, err := time.Parse(labelLayout, label)
	if err != nil {
		return "", fmt.Errorf("invalid time label %q: %w", label, err)
	}
	return t.Format(storedLayout), nil
}

// LabelFromStored is the inverse of FormatTimeForSubmission.
func LabelFromStored(stored string) (string, error) {
	t, err := time.Parse(storedLayout, stored)
	if err != nil {
		return "", fmt.Errorf("invalid stored time %q: %w", stored, err)
	}
	return t.Format(labelLayout), nil
}

// Normalize keeps only ladder labels, drops duplicates and returns them in
// ladder order.
func Normalize(labels []string) []string {
	seen := make([]bool, len(Ladder))
	for _, l := range labels {
		if i, ok := ladderIndex[l]; ok {
			seen[i] = true
		}
	}

	out := make([]string, 0, len(labels))
	for i, ok := range seen {
		if ok {
			out = append(out, Ladder[i])
		}
	}
	return out
}
