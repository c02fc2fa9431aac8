//go:build !linux

package bcm283x

import (
	"github.com/pkg/errors"

	picommon "go.viam.com/gpio/components/board/pi/common"
	"go.viam.com/gpio/logging"
)

func mapBlocks(
	desc *picommon.Descriptor,
	conf MapConfig,
	logger logging.Logger,
) (map[Block]Words, func() error, error) {
	return nil, nil, errors.New("register mapping is only supported on linux")
}
