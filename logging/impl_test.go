package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"
)

type pinReport struct {
	Pin       int
	Direction string
	edge      string
}

// assertLogMatches will fuzzy match log lines. Notably, this checks the time format, but ignores
// the exact time. And it expects a match on the filename, but the exact line number can be wrong.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualTrimmed := strings.TrimSuffix(output, "\n")
	actualParts := strings.Split(actualTrimmed, "\t")
	expectedParts := strings.Split(expected, "\t")
	// Use the length of the first string as a weak verification of checking that the result looks like a date.
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	// Log level.
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])

	// Filename:line_number.
	actualFilename, actualLineNumber, found := strings.Cut(actualParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, found := strings.Cut(expectedParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	// Log message.
	test.That(t, actualParts[3], test.ShouldEqual, expectedParts[3])

	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	if len(actualParts) == 4 {
		return
	}

	expectedMap := make(map[string]any)
	err = json.Unmarshal([]byte(expectedParts[4]), &expectedMap)
	test.That(t, err, test.ShouldBeNil)

	actualMap := make(map[string]any)
	err = json.Unmarshal([]byte(actualParts[4]), &actualMap)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	impl := newImpl("", DEBUG, false, NewWriterAppender(notStdout))

	impl.Info("impl Info log")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459-0400	INFO	logging/impl_test.go:67	impl Info log`)

	impl.Infof("exported %d pins", 3)
	assertLogMatches(t, notStdout,
		`2023-10-30T09:45:20.764-0400	INFO	logging/impl_test.go:71	exported 3 pins`)

	impl.Warnw("chown failed", "path", "/sys/class/gpio/gpio17/value")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:19:45.806-0400	WARN	logging/impl_test.go:75	chown failed	{"path":"/sys/class/gpio/gpio17/value"}`)

	// Only public fields of structs are serialized.
	impl.Infow("export", "pin", pinReport{17, "in", "both"})
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	INFO	logging/impl_test.go:80	export	{"pin":{"Pin":17,"Direction":"in"}}`)

	// A key without a value is reported rather than dropped.
	impl.Infow("unpaired", "pin")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	INFO	logging/impl_test.go:85	unpaired	{"pin":"unpaired log key"}`)
}

func TestLevels(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := newImpl("", WARN, false, NewWriterAppender(notStdout))

	logger.Debug("hidden")
	logger.Info("hidden")
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	logger.Warn("shown")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459-0400	WARN	logging/impl_test.go:100	shown`)

	// Subloggers share the parent's level.
	sub := logger.Sublogger("sysfs")
	logger.SetLevel(DEBUG)
	test.That(t, sub.GetLevel(), test.ShouldEqual, DEBUG)
	sub.Debug("now visible")
	line, err := notStdout.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	test.That(t, line, test.ShouldContainSubstring, "\tsysfs\t")
	test.That(t, line, test.ShouldContainSubstring, "now visible")
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Sublogger("interrupts").Infow("armed", "pins", "17,27")

	test.That(t, logs.FilterMessage("armed").Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "interrupts")
	test.That(t, entry.ContextMap()["pins"], test.ShouldEqual, "17,27")
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpio.log")
	appender, closer := NewFileAppender(path)
	logger := NewBlankLogger("gpio")
	logger.AddAppender(appender)

	logger.Error("register map failed")
	test.That(t, closer.Close(), test.ShouldBeNil)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestAppenderAddedAfterSublogger(t *testing.T) {
	logger := NewBlankLogger("gpio")
	sub := logger.Sublogger("registers")

	out := &bytes.Buffer{}
	logger.AddAppender(NewWriterAppender(out))
	sub.Errorw("map failed", "path", "/dev/gpiomem")

	line, err := out.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	test.That(t, line, test.ShouldContainSubstring, "\tgpio.registers\t")
	test.That(t, line, test.ShouldContainSubstring, `{"path":"/dev/gpiomem"}`)
}
