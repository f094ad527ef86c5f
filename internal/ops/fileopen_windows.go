//go:build windows

package ops

import (
	"fmt"
	"os"

	"github.com/hpungsan/coursedesk/internal/errors"
)

// openFileNoFollowRead opens a document for reading. O_NOFOLLOW is not
// available on Windows, so symlinks are refused with an Lstat check first.
func openFileNoFollowRead(path string) (*os.File, error) {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("cannot read from symlink")
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("file", path)
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot open %s: %v", path, err))
	}
	return f, nil
}
