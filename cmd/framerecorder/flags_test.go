package main

import (
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/framerecorder/internal/config"
	"github.com/tauraamui/framerecorder/pkg/configdef"
	"github.com/tauraamui/xerror"
)

type testFlags map[string]interface{}

func (f testFlags) IsSet(name string) bool { _, ok := f[name]; return ok }
func (f testFlags) String(name string) string {
	v, _ := f[name].(string)
	return v
}
func (f testFlags) Int(name string) int {
	v, _ := f[name].(int)
	return v
}
func (f testFlags) Bool(name string) bool {
	v, _ := f[name].(bool)
	return v
}

type testResolver struct {
	values configdef.Values
	err    error
}

func (r testResolver) Resolve() (configdef.Values, error) {
	return r.values, r.err
}

func silenceLogs() func() {
	logging.CurrentLoggingLevel = logging.SilentLevel
	return func() { logging.CurrentLoggingLevel = logging.WarnLevel }
}

func TestFlagResolverFallsBackToDefaultsWithoutConfigFile(t *testing.T) {
	defer silenceLogs()()
	is := is.New(t)

	missing := xerror.Errorf("unable to read config file: %w", os.ErrNotExist)
	values, err := newFlagResolver(testResolver{err: missing}, testFlags{}).Resolve()
	is.NoErr(err)
	is.Equal(values, config.Defaults())
}

func TestFlagResolverOverridesOnlySetFlags(t *testing.T) {
	defer silenceLogs()()
	is := is.New(t)

	base := config.Defaults()
	base.ListenAddr = "127.0.0.1:7000"
	values, err := newFlagResolver(testResolver{values: base}, testFlags{
		rootFlag:      "/mnt/frames",
		numFramesFlag: 25,
		backendFlag:   "mock",
		noIndexFlag:   true,
	}).Resolve()
	is.NoErr(err)

	is.Equal(values.RootDir, "/mnt/frames")
	is.Equal(values.NumFrames, 25)
	is.Equal(values.Backend, "mock")
	is.True(values.DisableIndex)
	is.Equal(values.ListenAddr, "127.0.0.1:7000") // from config file
	is.Equal(values.Video, "/storage/video.mkv")  // default
}

func TestFlagResolverValidatesOverrides(t *testing.T) {
	defer silenceLogs()()
	is := is.New(t)

	_, err := newFlagResolver(testResolver{values: config.Defaults()}, testFlags{numFramesFlag: 0}).Resolve()
	is.Equal(err.Error(), `Validation error in field "NumFrames" of type "int" using validator "gte=1"`)
}

func TestFlagResolverReturnsOtherConfigErrors(t *testing.T) {
	is := is.New(t)

	_, err := newFlagResolver(testResolver{err: errors.New("parsing configuration error: bad")}, testFlags{}).Resolve()
	is.Equal(err.Error(), "parsing configuration error: bad")
}
