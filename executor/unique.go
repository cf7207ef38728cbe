package executor

// MakeUniqueLatest keeps, for each non-zero data type, only the last
// chunk of that type.  Chunks of data type 0 are all kept.  Order is
// preserved.
func MakeUniqueLatest(chunks []Chunk) []Chunk {
	last := map[int32]int{}
	for i := range chunks {
		if t := chunks[i].DataType; t != 0 {
			last[t] = i
		}
	}
	out := chunks[:0:0]
	for i := range chunks {
		if t := chunks[i].DataType; t == 0 || last[t] == i {
			out = append(out, chunks[i])
		}
	}
	return out
}

// MakeUniqueEarliest is MakeUniqueLatest keeping the first chunk of
// each type.
func MakeUniqueEarliest(chunks []Chunk) []Chunk {
	seen := map[int32]bool{}
	out := chunks[:0:0]
	for i := range chunks {
		t := chunks[i].DataType
		if t != 0 {
			if seen[t] {
				continue
			}
			seen[t] = true
		}
		out = append(out, chunks[i])
	}
	return out
}
