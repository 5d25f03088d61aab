package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/vimtools/traceback"
)

func main() {
	app := cli.NewApp()
	app.Name = "traceback"
	app.Usage = "reconstruct a navigable stack trace from a Vim error log"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log",
			Usage: "path to the captured message log (:redir > log | silent messages | redir END)",
		},
		cli.StringFlag{
			Name:  "functions",
			Usage: "path to a :verbose function dump used to resolve frames",
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "location of config file",
		},
		cli.IntFlag{
			Name:  "distance",
			Usage: "maximum line distance between adjacent error blocks",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging",
		},
	}

	app.Action = run

	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "serve the trace over HTTP instead of printing it",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "listen",
					Usage: "bind address (defaults to the configured HTTPListenAddr)",
				},
			},
			Action: serve,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	tracer, _, err := buildTracer(c.String("log"), c.String("functions"),
		c.String("config"), c.Bool("verbose"))
	if err != nil {
		return err
	}

	err = tracer.Trace(c.Int("distance"))
	switch {
	case errors.Is(err, traceback.ErrNoTrace):
		fmt.Println("No stack trace found in the log")
		return nil
	case errors.Is(err, traceback.ErrUnparseable):
		fmt.Fprintln(os.Stderr, "Warning: an error block was found but could not be parsed")
		return nil
	default:
		return err
	}
}

func serve(c *cli.Context) error {
	tracer, logger, err := buildTracer(c.GlobalString("log"), c.GlobalString("functions"),
		c.GlobalString("config"), c.GlobalBool("verbose"))
	if err != nil {
		return err
	}

	server := traceback.NewServer(tracer, c.String("listen"), logger)
	return server.Start()
}

func buildTracer(logPath, functionsPath, configPath string, verbose bool) (*traceback.Tracer, *zap.Logger, error) {
	if logPath == "" {
		return nil, nil, cli.NewExitError("--log is required", 1)
	}

	var cfg traceback.Config
	var err error
	if configPath != "" {
		cfg, err = traceback.ReadConfigAtPath(configPath)
	} else {
		cfg, err = traceback.ReadConfig()
	}
	if err != nil {
		return nil, nil, err
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
	}

	var functions traceback.Introspector = traceback.NopIntrospector{}
	if functionsPath != "" {
		f, err := os.Open(functionsPath)
		if err != nil {
			return nil, nil, err
		}
		functions, err = traceback.ParseFunctionDump(f)
		_ = f.Close()
		if err != nil {
			return nil, nil, err
		}
	}

	tracer := traceback.NewTracer(
		traceback.FileLogSource{Path: logPath},
		functions,
		traceback.OSFileSystem{},
		traceback.WriterSink{W: os.Stdout},
	)
	tracer.Logger = logger
	tracer.Config = cfg
	return tracer, logger, nil
}
