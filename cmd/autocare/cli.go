package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/dsautocare/site/internal/backup"
	"github.com/dsautocare/site/internal/captcha"
	"github.com/dsautocare/site/internal/config"
	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/logging"
	"github.com/dsautocare/site/internal/mcp"
	"github.com/dsautocare/site/internal/notify"
	"github.com/dsautocare/site/internal/ops"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
	"github.com/dsautocare/site/internal/web"
)

// cliEnv carries the loaded configuration and the lazily opened store
// between the app's Before hook, its commands and its After hook.
type cliEnv struct {
	cfg   *config.Config
	store store.Store
}

func (e *cliEnv) load(c *cli.Context) error {
	dir := c.String("config-dir")
	if err := config.LoadEnvFiles(c.String("env"), dir, "."); err != nil {
		return cli.Exit(fmt.Sprintf("failed to load env files: %v", err), 1)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), 1)
	}
	logging.Setup(cfg.LogLevel)
	e.cfg = cfg
	return nil
}

// openStore opens the configured backend once per run.
func (e *cliEnv) openStore() (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	st, err := store.Open(store.Options{
		Backend:   e.cfg.StoreBackend,
		CSVPath:   e.cfg.StorePath,
		SQLiteDir: e.cfg.SQLiteDir,
	})
	if err != nil {
		return nil, err
	}
	e.store = st
	return st, nil
}

func (e *cliEnv) close(*cli.Context) error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// withStore adapts a command body that needs the store into a cli.ActionFunc.
func (e *cliEnv) withStore(fn func(*cli.Context, store.Store) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		st, err := e.openStore()
		if err != nil {
			return outputError(err)
		}
		return fn(c, st)
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(out io.Writer) *cli.App {
	env := &cliEnv{}
	app := &cli.App{
		Name:    "autocare",
		Usage:   "DS Auto Care site and submission inbox",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: defaultConfigDir(), EnvVars: []string{"AUTOCARE_CONFIG_DIR"}, Usage: "Directory holding config.json, .env and the store"},
			&cli.StringFlag{Name: "env", EnvVars: []string{"APP_ENV"}, Usage: "Environment name; loads .env.<env> before .env"},
		},
		Before: env.load,
		After:  env.close,
		Commands: []*cli.Command{
			serveCmd(env),
			listCmd(env),
			statusCmd(env),
			clearInboxCmd(env),
			exportCmd(env),
			importCmd(env),
			backupCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autocare"
	}
	return filepath.Join(home, ".autocare")
}

// serveCmd creates the serve command.
func serveCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web site",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", EnvVars: []string{"BIND"}, Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, EnvVars: []string{"PORT"}, Usage: "Port to listen on"},
		},
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			cfg := env.cfg

			var verifier captcha.Verifier = captcha.NopVerifier{}
			if cfg.CaptchaSecret != "" {
				verifier = captcha.NewSiteVerifier(cfg.CaptchaSecret, cfg.CaptchaVerifyURL, cfg.CaptchaMinScore)
			}
			notifier, err := notify.New(cfg)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			srv, err := web.NewServer(web.Deps{
				Store:    st,
				Verifier: verifier,
				Notifier: notifier,
				Config:   cfg,
			}, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv)
		}),
	}
}

// listCmd creates the list command.
func listCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List submissions grouped by status",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Only list this bucket: inbox|accepted|completed|trash"},
		},
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			statuses := submission.Statuses
			if s := c.String("status"); s != "" {
				parsed, ok := submission.ParseStatus(s)
				if !ok {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown status %q", s)))
				}
				statuses = []submission.Status{parsed}
			}

			out, err := ops.Bucket(c.Context, st)
			if err != nil {
				return outputError(err)
			}

			buckets := make(map[submission.Status][]submission.Submission, len(statuses))
			for _, s := range statuses {
				items := out.Buckets.Get(s)
				if items == nil {
					items = []submission.Submission{}
				}
				buckets[s] = items
			}
			return outputJSON(c, map[string]any{
				"counts":         out.Counts,
				"buckets":        buckets,
				"moved_to_trash": out.Moved,
				"warning":        out.Warning,
			})
		}),
	}
}

// statusCmd creates the status command.
func statusCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Move a submission to another bucket",
		ArgsUsage: "<id> <status>",
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: autocare status <id> <status>"))
			}
			output, err := ops.SetStatus(c.Context, st, ops.SetStatusInput{
				ID:     c.Args().Get(0),
				Status: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// clearInboxCmd creates the clear-inbox command.
func clearInboxCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "clear-inbox",
		Usage: "Move empty inbox submissions to trash",
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			output, err := ops.ClearEmptyInbox(c.Context, st)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// exportCmd creates the export command.
func exportCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every submission as canonical CSV to stdout or a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output .csv file (default: stdout)"},
		},
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			path := c.String("out")
			if path == "" {
				if _, err := ops.Export(c.Context, st, c.App.Writer); err != nil {
					return outputError(err)
				}
				return nil
			}
			output, err := ops.ExportFile(c.Context, st, path)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// importCmd creates the import command.
func importCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Append the submissions of a CSV file, in any schema the site has used",
		ArgsUsage: "<path>",
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: autocare import <path>"))
			}
			output, err := ops.Import(c.Context, st, ops.ImportInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// backupCmd creates the backup command.
func backupCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Upload the store file to the configured S3 bucket",
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			b, err := backup.NewFromConfig(c.Context, env.cfg)
			if err != nil {
				return outputError(err)
			}
			output, err := b.Upload(c.Context, st.Path())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve inbox triage tools over MCP stdio",
		Action: env.withStore(func(c *cli.Context, st store.Store) error {
			if err := mcp.Run(st, env.cfg, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats err as "[CODE] message" with exit code 1.
func outputError(err error) error {
	sErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
}
