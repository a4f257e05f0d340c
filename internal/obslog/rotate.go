package obslog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// rotatingWriter is an io.Writer that rotates its backing file once it
// exceeds maxSize bytes, renaming the rotated file with a timestamp
// suffix. Adapted from the reference logger's own rotating writer:
// maxSize <= 0 disables rotation outright (checked once, in
// needsRotation, rather than folded into the Write condition), a
// rename collision falls back to a second, second-precision-safe
// suffix instead of silently dropping the file, and a completed
// rotation is reported through onRotate so the surrounding zerolog
// logger can emit a structured event about its own file instead of
// the rotation happening invisibly.
type rotatingWriter struct {
	mu       sync.Mutex
	filename string
	maxSize  int64
	file     *os.File
	size     int64

	// onRotate, if set, is invoked after a successful rotation with the
	// name the retired file was renamed to. It is
	// called with mu released, since it typically logs through the
	// same Logger this writer backs.
	onRotate func(rotatedTo string)
}

func newRotatingWriter(filename string, maxSizeMB int64) (*rotatingWriter, error) {
	w := &rotatingWriter{
		filename: filename,
		maxSize:  maxSizeMB * 1024 * 1024,
	}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingWriter) openFile() error {
	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.size = fi.Size()
	return nil
}

// needsRotation reports whether writing n more bytes would push the
// current file past maxSize. Rotation is never needed when maxSize is
// non-positive (the --log-rotate-size-mb 0 escape hatch) or when the
// file is still empty, since rotating an empty file would just create
// a pointless timestamped twin.
func (w *rotatingWriter) needsRotation(n int) bool {
	return w.maxSize > 0 && w.size > 0 && w.size+int64(n) > w.maxSize
}

// rotate closes the current file, renames it aside, and reopens
// w.filename fresh, returning the name the old file was renamed to.
// If that name is already taken (two rotations within the same
// second), it appends a numeric disambiguator rather than letting the
// rename silently fail and overwrite an earlier rotation.
func (w *rotatingWriter) rotate() (string, error) {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	base := w.filename + "." + time.Now().Format("20060102-150405")
	rotatedTo := base
	for i := 1; ; i++ {
		if _, err := os.Stat(rotatedTo); os.IsNotExist(err) {
			break
		}
		rotatedTo = fmt.Sprintf("%s.%d", base, i)
	}
	if err := os.Rename(w.filename, rotatedTo); err != nil {
		return "", err
	}
	if err := w.openFile(); err != nil {
		return "", err
	}
	return rotatedTo, nil
}

func (w *rotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()

	var rotatedTo string
	if w.needsRotation(len(p)) {
		rotatedTo, err = w.rotate()
		if err != nil {
			w.mu.Unlock()
			return 0, err
		}
	}

	n, err = w.file.Write(p)
	w.size += int64(n)
	w.mu.Unlock()

	// Reported after releasing mu: onRotate normally logs through the
	// same Logger this writer backs, and that log call re-enters Write.
	if rotatedTo != "" && w.onRotate != nil {
		w.onRotate(rotatedTo)
	}
	return n, err
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
