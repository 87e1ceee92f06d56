package geometry

// RowLabel returns the letter label of a 0-based row: A..Z, then AA, AB, ...
func RowLabel(row int) string {
	if row < 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// RowIndex is the inverse of RowLabel. It returns -1 for anything that is not
// an upper-case letter label.
func RowIndex(label string) int {
	if label == "" || len(label) > 7 {
		return -1
	}
	n := 0
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c < 'A' || c > 'Z' {
			return -1
		}
		n = n*26 + int(c-'A'+1)
	}
	return n - 1
}
