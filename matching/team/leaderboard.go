package team

import "math"

type entry struct {
	indices []int
	score   float64
}

// leaderboard keeps the best subsets seen so far, highest first. A new
// subset only displaces entries it strictly beats, so earlier subsets win ties.
type leaderboard struct {
	size    int
	entries []entry
}

func newLeaderboard(size int) *leaderboard {
	return &leaderboard{size: size, entries: make([]entry, 0, size)}
}

func (l *leaderboard) offer(idx []int, score float64) {
	pos := len(l.entries)
	for pos > 0 && score > l.entries[pos-1].score {
		pos--
	}
	if pos >= l.size {
		return
	}

	e := entry{indices: append([]int(nil), idx...), score: score}
	if len(l.entries) < l.size {
		l.entries = append(l.entries, entry{})
	}
	copy(l.entries[pos+1:], l.entries[pos:len(l.entries)-1])
	l.entries[pos] = e
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
