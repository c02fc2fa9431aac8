package genericlinux

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// fileOwner is who exported attributes are handed to, and how.
type fileOwner struct {
	uid, gid int
	chown    func(path string, uid, gid int) error
}

// realOwner is the real user of the process, which differs from the effective one when the
// binary is setuid root.
func realOwner() fileOwner {
	return fileOwner{uid: unix.Getuid(), gid: unix.Getgid(), chown: unix.Chown}
}

// changeOwner gives the value and edge attributes of pin to the real user. Failure only warns: the
// pin is exported either way, and kernels that create the files asynchronously may not have them
// yet.
func (s *Sysfs) changeOwner(pin int) {
	for _, name := range []string{"value", "edge"} {
		path := filepath.Join(s.pinDir(pin), name)
		err := s.owner.chown(path, s.owner.uid, s.owner.gid)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		s.logger.Warnw("unable to change ownership", "path", path, "uid", s.owner.uid, "error", err)
	}
}
