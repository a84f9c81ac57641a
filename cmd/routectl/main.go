// Package main is the entry point for routectl, a command line front end
// for a manifest-driven plugin router.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dshills/pathrouter/internal/logging"
	"github.com/dshills/pathrouter/internal/manifest"
	"github.com/dshills/pathrouter/internal/plugin"
	"github.com/dshills/pathrouter/internal/route"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := run(os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "routectl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	app := cli.NewApp()
	app.Name = "routectl"
	app.Usage = "load router plugins from a manifest and dispatch requests"
	app.Version = fmt.Sprintf("%s (%s)", version, commit)
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "manifest, m",
			Usage:  "path to the router manifest (toml, yaml or hcl)",
			EnvVar: manifest.EnvPrefix + "MANIFEST",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "override the manifest log level",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "call",
			Usage:     "Dispatch a request and print the result as JSON",
			ArgsUsage: "<path> [json-param]",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "max-version",
					Usage: "highest handler version to consider (defaults to the manifest's max_version)",
				},
				cli.StringFlag{
					Name:  "target, t",
					Usage: "dispatch to the handler with this identifier only",
				},
			},
			Action: callCommand,
		},
		{
			Name:      "explain",
			Usage:     "List the handlers a request would try, in order",
			ArgsUsage: "<path>",
			Action:    explainCommand,
		},
		{
			Name:   "check",
			Usage:  "Validate the manifest and load every plugin once",
			Action: checkCommand,
		},
		{
			Name:   "watch",
			Usage:  "Keep plugins in sync with the manifest until interrupted",
			Action: watchCommand,
		},
	}
	return app.Run(args)
}

// session is a loaded manifest with its plugins registered.
type session struct {
	manifest *manifest.Manifest
	logger   *zap.Logger
	manager  *plugin.Manager
}

func openSession(c *cli.Context) (*session, error) {
	mf, err := loadManifest(c.GlobalString("manifest"))
	if err != nil {
		return nil, err
	}

	level := mf.Log.Level
	if l := c.GlobalString("log-level"); l != "" {
		level = l
	}
	logger, err := logging.New("routectl", level, mf.Log.Format)
	if err != nil {
		return nil, err
	}

	router := route.New[string, any, any](route.WithLogger(logger.Named("router")))
	manager := plugin.NewManager(router, plugin.WithLogger(logger.Named("plugin")))
	manager.Apply(mf)
	if err := manager.LoadAll(context.Background(), mf); err != nil {
		logger.Warn("some plugins failed to load", zap.Error(err))
	}

	return &session{manifest: mf, logger: logger, manager: manager}, nil
}

func (s *session) Close() {
	_ = s.manager.Close()
	_ = s.logger.Sync()
}

func loadManifest(path string) (*manifest.Manifest, error) {
	loader := manifest.NewLoader()
	if path == "" {
		return loader.Defaults()
	}
	return loader.Load(path)
}

func callCommand(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("call: expected <path> [json-param], got %d arguments", c.NArg())
	}
	path := c.Args().Get(0)

	var param any
	if raw := c.Args().Get(1); raw != "" {
		if !gjson.Valid(raw) {
			return fmt.Errorf("call: parameter is not valid JSON: %s", raw)
		}
		param = gjson.Parse(raw).Value()
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	router := s.manager.Router()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result any
	switch {
	case c.String("target") != "":
		result, err = router.DispatchTarget(ctx, path, param, c.String("target"))
	case c.IsSet("max-version"):
		if c.Int("max-version") < 0 {
			return fmt.Errorf("call: --max-version must not be negative")
		}
		result, err = router.DispatchVersion(ctx, path, param, uint(c.Int("max-version")))
	default:
		if ceiling, ok := s.manifest.Ceiling(); ok {
			result, err = router.DispatchVersion(ctx, path, param, ceiling)
		} else {
			result, err = router.Dispatch(ctx, path, param)
		}
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}

	out, err := sjson.SetBytes([]byte(`{}`), "path", path)
	if err != nil {
		return err
	}
	if out, err = sjson.SetBytes(out, "result", result); err != nil {
		return fmt.Errorf("call %s: encoding result: %w", path, err)
	}
	return writeJSON(c.App.Writer, out)
}

// writeJSON pretty prints out, with color when w is a terminal.
func writeJSON(w io.Writer, out []byte) error {
	out = pretty.Pretty(out)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

func explainCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("explain: expected <path>, got %d arguments", c.NArg())
	}
	path := c.Args().First()

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	candidates, err := s.manager.Router().Candidates(path)
	if err != nil {
		return fmt.Errorf("explain %s: %w", path, err)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tPATH\tVERSION\tSTATUS")
	for i, cand := range candidates {
		status := "ok"
		if cand.Blocked {
			status = "blocked"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, cand.ID, cand.Path, cand.Version, status)
	}
	return tw.Flush()
}

func checkCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	var failed []error
	for _, p := range s.manifest.Plugins {
		host, ok := s.manager.Host(p.Name)
		if !ok {
			failed = append(failed, fmt.Errorf("plugin %s did not load", p.Name))
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%d handlers\n", p.Name, host.State(), len(host.Handlers()))
	}
	return errors.Join(failed...)
}

func watchCommand(c *cli.Context) error {
	path := c.GlobalString("manifest")
	if path == "" {
		return errors.New("watch: --manifest is required")
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("watching manifest", zap.String("path", path))
	err = s.manager.Watch(ctx, path)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
