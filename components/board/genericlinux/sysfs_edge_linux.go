//go:build linux

package genericlinux

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"go.viam.com/gpio/components/board"
)

// ArmEdge configures edge on pin through sysfs and opens its value file for polling.
func (s *Sysfs) ArmEdge(pin board.CanonicalPin, edge board.Edge) (EdgeWaiter, error) {
	if err := s.SetEdge(int(pin), edge); err != nil {
		return nil, err
	}
	//nolint:gosec
	f, err := os.Open(s.ValuePath(int(pin)))
	if err != nil {
		return nil, board.NewIOError(err, fmt.Sprintf("open value of gpio%d", pin))
	}
	waiter := &sysfsWaiter{pin: pin, file: f}
	// A read clears any edge that happened before we started waiting.
	if _, err := waiter.level(); err != nil {
		return nil, errors.Wrapf(err, "close: %v", f.Close())
	}
	return waiter, nil
}

type sysfsWaiter struct {
	pin  board.CanonicalPin
	file *os.File
}

// WaitForEdge blocks in poll(2) until the kernel flags the value file, then reads the new level.
func (w *sysfsWaiter) WaitForEdge() (EdgeEvent, error) {
	fds := []unix.PollFd{{Fd: int32(w.file.Fd()), Events: unix.POLLPRI | unix.POLLERR}}
	for {
		_, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return EdgeEvent{}, board.NewIOError(err, fmt.Sprintf("poll value of gpio%d", w.pin))
		}
		break
	}
	now := time.Now()
	high, err := w.level()
	if err != nil {
		return EdgeEvent{}, err
	}
	return EdgeEvent{Pin: w.pin, Rising: high, Time: now}, nil
}

func (w *sysfsWaiter) level() (bool, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return false, board.NewIOError(err, fmt.Sprintf("rewind value of gpio%d", w.pin))
	}
	buf := make([]byte, 2)
	n, err := w.file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, board.NewIOError(err, fmt.Sprintf("read value of gpio%d", w.pin))
	}
	return n > 0 && buf[0] == '1', nil
}

func (w *sysfsWaiter) Close() error {
	return w.file.Close()
}
