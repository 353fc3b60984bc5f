package main

import (
	"errors"
	"os"

	"github.com/tauraamui/framerecorder/internal/config"
	"github.com/tauraamui/framerecorder/pkg/configdef"
	"github.com/tauraamui/framerecorder/pkg/log"
	"github.com/urfave/cli"
)

const (
	rootFlag      = "root"
	videoFlag     = "video"
	numFramesFlag = "num_frames"
	listenFlag    = "listen"
	backendFlag   = "backend"
	indexFlag     = "index"
	noIndexFlag   = "no-index"
	debugFlag     = "debug"
)

var runFlags = []cli.Flag{
	cli.StringFlag{Name: rootFlag, Value: "/storage", Usage: "root directory snapshots are saved under"},
	cli.StringFlag{Name: videoFlag, Value: "/storage/video.mkv", Usage: "video file or stream address to ingest"},
	cli.IntFlag{Name: numFramesFlag, Value: 10, Usage: "number of most recent frames to keep"},
	cli.StringFlag{Name: listenFlag, Value: ":8000", Usage: "HTTP listen address"},
	cli.StringFlag{Name: backendFlag, Value: "opencv", Usage: "video backend, opencv or mock", EnvVar: "FRAME_RECORDER_VIDEO_BACKEND"},
	cli.StringFlag{Name: indexFlag, Usage: "snapshot index database path"},
	cli.BoolFlag{Name: noIndexFlag, Usage: "do not record snapshots in an index"},
	cli.BoolFlag{Name: debugFlag, Usage: "enable debug logging"},
}

// flagValues is the subset of *cli.Context the resolver reads.
type flagValues interface {
	IsSet(string) bool
	String(string) string
	Int(string) int
	Bool(string) bool
}

// flagResolver layers explicitly set command line flags over the config
// file, or over the defaults when there is no config file.
type flagResolver struct {
	base  configdef.Resolver
	flags flagValues
}

func newFlagResolver(base configdef.Resolver, flags flagValues) configdef.Resolver {
	return flagResolver{base: base, flags: flags}
}

func (r flagResolver) Resolve() (configdef.Values, error) {
	values, err := r.base.Resolve()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return configdef.Values{}, err
		}
		log.Warn("No config file found, using defaults and flags")
		values = config.Defaults()
	}

	if r.flags.IsSet(rootFlag) {
		values.RootDir = r.flags.String(rootFlag)
	}
	if r.flags.IsSet(videoFlag) {
		values.Video = r.flags.String(videoFlag)
	}
	if r.flags.IsSet(numFramesFlag) {
		values.NumFrames = r.flags.Int(numFramesFlag)
	}
	if r.flags.IsSet(listenFlag) {
		values.ListenAddr = r.flags.String(listenFlag)
	}
	if r.flags.IsSet(backendFlag) {
		values.Backend = r.flags.String(backendFlag)
	}
	if r.flags.IsSet(indexFlag) {
		values.IndexPath = r.flags.String(indexFlag)
	}
	if r.flags.IsSet(noIndexFlag) {
		values.DisableIndex = r.flags.Bool(noIndexFlag)
	}
	if r.flags.IsSet(debugFlag) {
		values.Debug = r.flags.Bool(debugFlag)
	}

	if err := values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	if values.Debug {
		log.SetLevel("debug")
	}
	return values, nil
}
