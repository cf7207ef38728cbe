package executor

// Station and product identifiers are packed into data types with
// these helpers.

// Hash4CharsToInt32 packs the first four bytes of id, least
// significant first.  Only the empty string maps to 0.
func Hash4CharsToInt32(id string) int32 {
	if len(id) == 0 {
		return 0
	}
	if len(id) > 4 {
		id = id[:4]
	}
	var v uint32
	for i := 0; i < len(id); i++ {
		v |= uint32(id[i]) << (uint(i) * 8)
	}
	if v == 0 {
		v = 1
	}
	return int32(v)
}

func DehashInt32To4Chars(v int32) string {
	u := uint32(v)
	b := make([]byte, 0, 4)
	for i := 0; i < 4; i++ {
		c := byte(u >> (uint(i) * 8))
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}

// Hash5CharsToInt32 packs up to five characters from [-0-9A-Za-z]
// into 6 bits each and negates the result, so it never collides with
// Hash4CharsToInt32 or positive ids.  Other characters pack as NUL.
// The empty string yields -1.
func Hash5CharsToInt32(id string) int32 {
	if len(id) == 0 {
		return -1
	}
	if len(id) > 5 {
		id = id[:5]
	}
	var v int32
	for i := 0; i < len(id); i++ {
		v |= int32(pack6(id[i])) << (uint(i) * 6)
	}
	return -v
}

func DehashInt32To5Chars(v int32) string {
	u := -v
	b := make([]byte, 0, 5)
	for i := 0; i < 5; i++ {
		c := unpack6(byte((u >> (uint(i) * 6)) & 0x3f))
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}

func pack6(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		return c - 59
	case c >= 'A' && c <= 'Z':
		return c - 53
	case c >= '0' && c <= '9':
		return c - 46
	case c == '-':
		return 1
	}
	return 0
}

func unpack6(p byte) byte {
	switch {
	case p >= 38:
		return p + 59
	case p >= 12:
		return p + 53
	case p >= 2:
		return p + 46
	case p == 1:
		return '-'
	}
	return 0
}
