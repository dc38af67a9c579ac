package core

const (
	OneKilobyte = 1024
	OneMegabyte = 1024 * OneKilobyte // 1024 (1KB) * 1024 => 1MB

	LogFileName       = "kvs.log"  // Name of the command log inside the store directory
	CompactFileSuffix = ".compact" // Suffix of the log being written during compaction

	DefaultCompactionThreshold = OneMegabyte // Stale bytes tolerated before compaction runs
)
