package util

// CopyBytes returns a copy of src. A nil src stays nil.
func CopyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
