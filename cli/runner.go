package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/gpio/components/board"
	piimpl "go.viam.com/gpio/components/board/pi/impl"
	"go.viam.com/gpio/config"
	"go.viam.com/gpio/logging"
)

// BoardOpener builds the board a command runs against.
type BoardOpener func(conf *config.Config, logger logging.Logger) (*piimpl.Board, error)

// The scheme each numbering flag selects, in the order they are checked.
var schemeFlags = []string{flagGPIO, flagPhys, flagWPi, flagUninit}

var schemeNames = map[string]string{
	flagGPIO:   board.SchemeBCM.String(),
	flagPhys:   board.SchemePhysical.String(),
	flagWPi:    board.SchemeWiringPi.String(),
	flagUninit: board.SchemeUninitialized.String(),
}

// runner holds what one invocation of the tool needs. Each run executes a single command, so the
// board is opened at most once.
type runner struct {
	out    io.Writer
	errOut io.Writer
	open   BoardOpener

	conf    *config.Config
	logger  logging.Logger
	board   *piimpl.Board
	closers []io.Closer
}

func (r *runner) setup(c *cli.Context) error {
	logger := logging.NewBlankLogger("gpio")
	logger.AddAppender(logging.NewWriterAppender(r.errOut))
	logger.SetLevel(config.DefaultLogLevel)
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}

	conf, err := config.Read(c.Path(flagConfig), logger)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	level, err := conf.EffectiveLogLevel(c.Bool(flagDebug))
	if err != nil {
		return errors.Wrap(err, "config")
	}
	logger.SetLevel(level)
	if conf.LogFile != "" {
		appender, closer := logging.NewFileAppender(conf.LogFile)
		logger.AddAppender(appender)
		r.closers = append(r.closers, closer)
	}

	chosen := lo.Filter(schemeFlags, func(name string, _ int) bool {
		return c.Bool(name)
	})
	if len(chosen) > 1 {
		return errors.Wrapf(board.ErrInvalidArgument,
			"only one numbering flag may be given, got --%s", strings.Join(chosen, " --"))
	}
	if len(chosen) == 1 {
		conf.Numbering = schemeNames[chosen[0]]
	}

	r.conf = conf
	r.logger = logger
	return nil
}

func (r *runner) close(c *cli.Context) error {
	var errs []error
	if r.board != nil {
		errs = append(errs, r.board.Close())
		r.board = nil
	}
	for _, closer := range r.closers {
		errs = append(errs, closer.Close())
	}
	r.closers = nil
	if r.logger != nil {
		goutils.UncheckedError(r.logger.Sync())
	}
	return multierr.Combine(errs...)
}

func (r *runner) openBoard(conf *config.Config) (*piimpl.Board, error) {
	if r.board == nil {
		b, err := r.open(conf, r.logger)
		if err != nil {
			return nil, err
		}
		r.board = b
	}
	return r.board, nil
}

type boardAction func(c *cli.Context, b *piimpl.Board) error

// withBoard runs fn against the board addressed under the chosen numbering scheme. Errors are
// prefixed with the command name.
func (r *runner) withBoard(minArgs, maxArgs int, fn boardAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := checkArgs(c, minArgs, maxArgs); err != nil {
			return err
		}
		r.logger.Debugw("running", "command", c.Command.Name, "numbering", r.conf.Scheme().String())
		b, err := r.openBoard(r.conf)
		if err != nil {
			return errors.Wrap(err, c.Command.Name)
		}
		return errors.Wrap(fn(c, b), c.Command.Name)
	}
}

// withSysfs runs fn against a board opened without hardware setup, the way sysfs and kernel
// module commands work on any kernel.
func (r *runner) withSysfs(minArgs, maxArgs int, fn boardAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := checkArgs(c, minArgs, maxArgs); err != nil {
			return err
		}
		conf := *r.conf
		conf.Numbering = board.SchemeUninitialized.String()
		r.logger.Debugw("running", "command", c.Command.Name, "sysfs_root", conf.SysfsRoot)
		b, err := r.openBoard(&conf)
		if err != nil {
			return errors.Wrap(err, c.Command.Name)
		}
		return errors.Wrap(fn(c, b), c.Command.Name)
	}
}

func checkArgs(c *cli.Context, minArgs, maxArgs int) error {
	if n := c.NArg(); n < minArgs || n > maxArgs {
		return errors.Wrapf(board.ErrInvalidArgument, "usage: gpio %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func parseInt(what, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(board.ErrInvalidArgument, "%s %q is not a number", what, s)
	}
	return n, nil
}

func parseUint32(what, s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(board.ErrInvalidArgument, "%s %q is not a number", what, s)
	}
	return uint32(n), nil
}

func parsePin(s string) (int, error) {
	return parseInt("pin", s)
}
