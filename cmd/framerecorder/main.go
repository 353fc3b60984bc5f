package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"github.com/tauraamui/framerecorder/internal/config"
	"github.com/tauraamui/framerecorder/pkg/configdef"
	db "github.com/tauraamui/framerecorder/pkg/database"
	"github.com/tauraamui/framerecorder/pkg/log"
	"github.com/tauraamui/framerecorder/pkg/recorder"
	"github.com/urfave/cli"
	"gocv.io/x/gocv"
)

const (
	name        = "frame_recorder"
	description = "Frame recorder daemon which keeps the latest video frames in memory and saves them to disk on demand"
)

type Service struct {
	daemon.Daemon
}

// Setup creates the default config file and the snapshot index.
func (service *Service) Setup() (string, error) {
	log.Info("Setting up framerecorder service...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = db.Setup()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for framerecorder service...")
	if err := config.DefaultDestroyer().Destroy(); err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	if err := db.Destroy(); err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Run(flags flagValues) (string, error) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	log.Info("Starting frame recorder...")

	server := recorder.NewServer(newFlagResolver(config.DefaultResolver(), flags))
	if err := server.LoadConfiguration(); err != nil {
		return "", err
	}

	ctx, cancelStartup := context.WithCancel(context.Background())
	go func() {
		if err := startupServer(ctx, server); err != nil {
			log.Error("Unable to start frame recorder: %v", err)
			interrupt <- syscall.SIGTERM
		}
	}()

	killSignal := <-interrupt
	fmt.Print("\r")
	log.Error("Received signal: %s", killSignal)

	cancelStartup()
	log.Info("Shutting down server...")
	<-server.Shutdown()

	var b bytes.Buffer
	gocv.MatProfile.WriteTo(&b, 1) //nolint
	log.Debug("OpenCV mat profile: %s", b.String())

	return "Shutdown successful... BYE! 👋", nil
}

func startupServer(ctx context.Context, server recorder.Server) error {
	if err := server.ConnectWithCancel(ctx); err != nil {
		return err
	}
	if err := server.SetupProcesses(); err != nil {
		return err
	}
	server.RunProcesses()
	return nil
}

func newApp(service *Service) *cli.App {
	app := cli.NewApp()
	app.Name = "framerecorder"
	app.Usage = description
	app.Flags = runFlags

	report := func(f func() (string, error)) cli.ActionFunc {
		return func(c *cli.Context) error {
			status, err := f()
			if err != nil {
				return err
			}
			logging.Info(status) //nolint
			return nil
		}
	}

	run := func(c *cli.Context) error {
		return report(func() (string, error) { return service.Run(c) })(c)
	}

	app.Action = run
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the recorder in the foreground (default)",
			Flags:  runFlags,
			Action: run,
		},
		{
			Name:   "setup",
			Usage:  "create the default config file and snapshot index",
			Action: report(service.Setup),
		},
		{
			Name:   "remove-setup",
			Usage:  "delete the config file and snapshot index",
			Action: report(service.RemoveSetup),
		},
		{
			Name:  "install",
			Usage: "install as a system service, any further args are passed to run",
			Action: func(c *cli.Context) error {
				return report(func() (string, error) {
					return service.Install(append([]string{"run"}, c.Args()...)...)
				})(c)
			},
		},
		{Name: "remove", Usage: "remove the system service", Action: report(service.Remove)},
		{Name: "start", Usage: "start the system service", Action: report(service.Start)},
		{Name: "stop", Usage: "stop the system service", Action: report(service.Stop)},
		{Name: "status", Usage: "show the system service status", Action: report(service.Status)},
	}
	return app
}

func init() {
	log.SetLevel(os.Getenv("FRAME_RECORDER_LOGGING_LEVEL"))
}

func main() {
	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	if err := newApp(&Service{srv}).Run(os.Args); err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}
}
