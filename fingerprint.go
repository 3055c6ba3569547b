package lexcorpus

// ValidFingerprint reports whether s has the shape of a content fingerprint:
// a 64-bit hash rendered as 16 lowercase hexadecimal characters. The corpus
// store treats records with any other versionId shape as corrupted.
func ValidFingerprint(s string) bool {
	if len(s) != 16 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
