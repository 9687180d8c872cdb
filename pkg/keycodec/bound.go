package keycodec

// NextGreater returns the most compact byte string that is greater than
// any value prefixed by s, but lower than any other value. The second
// return is false when no such byte string exists -- s consists entirely
// of 0xFF bytes (or is empty) -- in which case callers must treat the
// bound as unbounded (saturating to the end of the key space) rather than
// erroring, per the resolution of the "broken mess" open question in
// Index range scans.
func NextGreater(s []byte) ([]byte, bool) {
	end := len(s)
	for end > 0 && s[end-1] == 0xFF {
		end--
	}
	if end == 0 {
		return nil, false
	}
	out := make([]byte, end)
	copy(out, s[:end])
	out[end-1]++
	return out, true
}

// PrefixBound returns the exclusive upper bound of the byte range occupied
// by all physical keys that have nsPrefix‖k.Pack() as a byte-prefix. ok is
// false when the key codec cannot represent a successor (see NextGreater),
// meaning the caller should treat the range as open-ended.
func PrefixBound(nsPrefix []byte, k Key) (bound []byte, ok bool) {
	packed := append(append([]byte{}, nsPrefix...), k.Pack()...)
	return NextGreater(packed)
}
