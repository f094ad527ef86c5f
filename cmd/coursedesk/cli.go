package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/ops"
	"github.com/hpungsan/coursedesk/internal/session"
	"github.com/hpungsan/coursedesk/internal/web"
)

// maxStdinBytes bounds advisor responses read from stdin.
const maxStdinBytes = 4 << 20

// newCLIApp creates the CLI application with all commands. d may be nil
// when only help or version output is needed.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "coursedesk",
		Usage:   "Course catalog client state: history, semester plan, selection",
		Version: Version,
		Commands: []*cli.Command{
			historyCmd(d),
			planCmd(d),
			extractCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newSession starts a throwaway session; the CLI keeps nothing between runs
// except the persisted history.
func newSession(d *deps) (*session.Session, error) {
	if d == nil || d.sessions == nil {
		return nil, errors.NewInternal(fmt.Errorf("storage not initialized"))
	}
	return d.sessions.New()
}

func historyCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Recently viewed courses, labs and programs",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recently viewed items, newest first",
				Action: func(c *cli.Context) error {
					sess, err := newSession(d)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.HistoryList(sess)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "add",
				Usage:     "Record a view",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "course", Usage: "Item type: course|lab|program"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name"},
					&cli.StringFlag{Name: "href", Usage: "Link to the item's page"},
					&cli.Float64Flag{Name: "ects", Usage: "ECTS credits"},
					&cli.StringFlag{Name: "code", Usage: "Catalog code"},
					&cli.StringFlag{Name: "topics", Usage: "Comma-separated topics"},
				},
				Action: func(c *cli.Context) error {
					sess, err := newSession(d)
					if err != nil {
						return outputError(err)
					}
					input := ops.HistoryAddInput{
						ID:     c.Args().First(),
						Type:   c.String("type"),
						Name:   c.String("name"),
						Href:   c.String("href"),
						Code:   c.String("code"),
						Topics: parseList(c.String("topics")),
					}
					if c.IsSet("ects") {
						ects := c.Float64("ects")
						input.ECTS = &ects
					}
					output, err := ops.HistoryAdd(sess, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "remove",
				Usage:     "Drop one item",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "course", Usage: "Item type: course|lab|program"},
				},
				Action: func(c *cli.Context) error {
					sess, err := newSession(d)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.HistoryRemove(sess, c.Args().First(), c.String("type"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "clear",
				Usage: "Forget every recently viewed item",
				Action: func(c *cli.Context) error {
					sess, err := newSession(d)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.HistoryClear(sess)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

func planCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Semester plans embedded in advisor responses",
		Subcommands: []*cli.Command{
			{
				Name:  "parse",
				Usage: "Extract the semester plan from an advisor response (reads stdin)",
				Action: func(c *cli.Context) error {
					content, err := requireStdin()
					if err != nil {
						return outputError(err)
					}
					sess, err := newSession(d)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.PlanParse(sess, ops.PlanParseInput{Content: content})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "render",
				Usage: "Render an advisor response to HTML without its plan markers (reads stdin)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "text", Usage: "Print only the plain text, not JSON"},
				},
				Action: func(c *cli.Context) error {
					content, err := requireStdin()
					if err != nil {
						return outputError(err)
					}
					output, err := ops.RenderResponse(content)
					if err != nil {
						return outputError(err)
					}
					if c.Bool("text") {
						_, err := fmt.Fprintln(os.Stdout, output.Text)
						return err
					}
					return outputJSON(output)
				},
			},
		},
	}
}

func extractCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract text from a document (txt, md, csv, json)",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("file argument is required"))
			}
			if d == nil {
				return outputError(errors.NewInternal(fmt.Errorf("config not loaded")))
			}
			output, err := ops.ExtractFile(d.cfg, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the local JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8765, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			if d == nil || d.sessions == nil {
				return outputError(errors.NewInternal(fmt.Errorf("storage not initialized")))
			}
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("port must be between 1 and 65535, got %d", port)))
			}
			srv := web.NewServer(d.sessions, d.invoker, d.log, Version, c.String("bind"), port)
			return web.Run(srv, d.log)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var dErr *errors.DeskError
	if stderrors.As(err, &dErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// requireStdin reads piped content, rejecting a terminal or an empty pipe.
func requireStdin() (string, error) {
	if !stdinHasData() {
		return "", errors.NewInvalidRequest("content must be piped via stdin")
	}
	content, err := readStdin(maxStdinBytes)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", errors.NewInvalidRequest("content is required")
	}
	return content, nil
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return string(data), nil
}

// parseList splits a comma-separated string, dropping empty entries.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
