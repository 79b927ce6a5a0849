package u

import (
	"io"
	"os"
)

// PathExists returns true if path exists
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FileExists returns true if path exists and is a regular file
func FileExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode().IsRegular()
}

// FileSize gets file size, -1 if file doesn't exist
func FileSize(path string) int64 {
	st, err := os.Lstat(path)
	if err == nil {
		return st.Size()
	}
	return -1
}

// CountLines returns number of non-empty lines in d
func CountLines(d []byte) int {
	n := 0
	inLine := false
	for _, c := range d {
		if c == '\n' {
			if inLine {
				n++
			}
			inLine = false
			continue
		}
		if c != '\r' {
			inLine = true
		}
	}
	if inLine {
		n++
	}
	return n
}

// CloseNoError is like io.Closer Close() but ignores an error
// use as: defer CloseNoError(f)
func CloseNoError(f io.Closer) {
	_ = f.Close()
}
