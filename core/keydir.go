package core

import "github.com/0xRadioAc7iv/go-kvs/internal/logfile"

// KeyDir is the in-memory index mapping every live key to the position of
// its latest Set command in the log.
//
// A key is present if and only if its most recent command is a Set. The
// KeyDir is rebuilt from scratch on open (by replaying the log) and after
// compaction (by remapping every entry into the new file); in between it is
// mutated one key at a time.
type KeyDir map[string]logfile.Pos

func (kd KeyDir) Get(key string) (logfile.Pos, bool) {
	pos, ok := kd[key]
	return pos, ok
}

// Insert points key at pos and returns the position it replaced, if any.
func (kd KeyDir) Insert(key string, pos logfile.Pos) (logfile.Pos, bool) {
	prev, ok := kd[key]
	kd[key] = pos
	return prev, ok
}

// Remove drops key and returns the position it had, if any.
func (kd KeyDir) Remove(key string) (logfile.Pos, bool) {
	prev, ok := kd[key]
	if ok {
		delete(kd, key)
	}
	return prev, ok
}

func (kd KeyDir) Len() int {
	return len(kd)
}
