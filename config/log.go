package config

// TraceRefs is a list of previously opened trace files, persisted as part
// of Settings. No command reads or updates it; `datagrind view` and
// `datagrind query` always take the trace path as an argument.
type TraceRefs struct {
	Refs []*TraceRef
}

// TraceRef records one previously opened trace file.
type TraceRef struct {
	Path      string
	LastUsed  int64 // Unix time
	WordSize  uint8
	BigEndian bool
}
