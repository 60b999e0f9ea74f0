package engine

// priorityLess implements the deterministic priority rule of §4.6: for
// any conflicting resource, the winner is the entry with the smallest key
// (supertick_id, actor_id) under lexicographic ordering of actor_id.
// supertick_id is constant within a merge but is retained in the tuple so
// the rule stays stable if priority is ever extended across ticks.
func priorityLess(a, b JournalEntry) bool {
	if a.SuperTickID != b.SuperTickID {
		return a.SuperTickID < b.SuperTickID
	}
	return a.ActorID < b.ActorID
}

// pickWinner returns the entry in candidates with the smallest priority
// key. candidates must be non-empty.
func pickWinner(candidates []JournalEntry) JournalEntry {
	winner := candidates[0]
	for _, c := range candidates[1:] {
		if priorityLess(c, winner) {
			winner = c
		}
	}
	return winner
}
