package rwlock

// dump logs a formatted state snapshot on each transition when debug
// mode is enabled. Called from within a section already holding mu,
// which serializes these dumps, so no separate logging mutex is
// introduced.
func (l *Lock) dump(transition string) {
	if !l.debug || l.logger == nil {
		return
	}
	roles := make([]string, len(l.waitlist))
	for i, idx := range l.waitlist {
		roles[i] = l.arena.slots[idx].String()
	}
	l.logger.Debug("rwlock transition",
		"lock", l.name,
		"transition", transition,
		"reading", l.readingCount,
		"writing", l.writingCount,
		"waitlist", roles,
	)
}

func (r role) String() string {
	switch r {
	case roleReader:
		return "READER"
	case roleWriter:
		return "WRITER"
	case roleReading:
		return "READING"
	case roleWriting:
		return "WRITING"
	default:
		return "UNKNOWN"
	}
}
