package fileutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// ErrDestinationExists reports that CopyFileNoClobber found a file already at
// the destination path.
var ErrDestinationExists = errors.New("destination file exists")

// CopyFileNoClobber streams src to dst, refusing to touch an existing
// destination. The O_EXCL create makes the existence check and the create a
// single atomic step, so concurrent copies of the same destination cannot
// interleave. A partial copy is removed so re-runs see a clean slate.
func CopyFileNoClobber(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrDestinationExists
		}
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
