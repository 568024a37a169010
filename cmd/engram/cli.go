package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/errors"
	"github.com/engramdev/engram/internal/ops"
	"github.com/engramdev/engram/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "engram",
		Usage:   "Personal context capture",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(env),
			ingestCmd(env),
			clusterCmd(env),
			searchCmd(env),
			sessionsCmd(env),
			decisionCmd(env),
			timelineCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7910, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// ingestCmd creates the ingest command.
func ingestCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Record events (reads a JSON array of events from stdin, or one event from flags)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Event source: git|file|browser|terminal|meeting|manual"},
			&cli.StringFlag{Name: "object", Aliases: []string{"o"}, Usage: "What was touched"},
			&cli.StringFlag{Name: "intent", Usage: "Inferred intent (optional)"},
		},
		Action: func(c *cli.Context) error {
			var events []capsule.RawEvent

			if source := c.String("source"); source != "" {
				events = []capsule.RawEvent{{
					Time:           time.Now().UTC(),
					Source:         capsule.Source(source),
					Object:         c.String("object"),
					InferredIntent: c.String("intent"),
				}}
			} else {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("pipe a JSON array of events via stdin, or pass --source and --object"))
				}
				raw, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if err := json.Unmarshal([]byte(raw), &events); err != nil {
					return outputError(errors.NewInvalidRequest("invalid events JSON: " + err.Error()))
				}
			}

			output, err := ops.Ingest(c.Context, env, ops.IngestInput{Events: events})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// clusterCmd creates the cluster command.
func clusterCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "cluster",
		Usage: "Group recent events into focus sessions",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "hours-back", Value: 24, Usage: "How far back to look for events"},
			&cli.IntFlag{Name: "gap", Usage: "Gap threshold in minutes (default from config)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Cluster(c.Context, env, ops.ClusterInput{
				HoursBack:  c.Int("hours-back"),
				GapMinutes: c.Int("gap"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Ask a question over captured sessions",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Maximum sessions to return"},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			output, err := ops.Search(c.Context, env, ops.SearchInput{
				Query: query,
				TopK:  c.Int("top-k"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// sessionsCmd creates the sessions command.
func sessionsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List recent focus sessions",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum sessions to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListSessions(c.Context, env, ops.ListSessionsInput{
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// decisionCmd creates the decision command with its subcommands.
func decisionCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "decision",
		Usage: "Record, list, or delete decisions on a session",
		Subcommands: []*cli.Command{
			{
				Name:      "record",
				Usage:     "Attach a decision to a session",
				ArgsUsage: "<session-id> <content>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Decision type: made|tradeoff|rejected|assumption"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return outputError(errors.NewInvalidRequest("usage: decision record <session-id> <content>"))
					}
					output, err := ops.RecordDecision(c.Context, env, ops.RecordDecisionInput{
						SessionID: c.Args().Get(0),
						Content:   strings.Join(c.Args().Slice()[1:], " "),
						Kind:      capsule.DecisionKind(c.String("type")),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "list",
				Usage:     "List recent decisions, or the decisions on one session",
				ArgsUsage: "[session-id]",
				Action: func(c *cli.Context) error {
					output, err := ops.ListDecisions(c.Context, env, ops.ListDecisionsInput{
						SessionID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a decision by ID",
				ArgsUsage: "<decision-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteDecision(c.Context, env, ops.DeleteDecisionInput{
						ID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// timelineCmd creates the timeline command.
func timelineCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "timeline",
		Usage: "Show recent sessions with decisions plus the latest events",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "sessions", Usage: "Maximum sessions to show"},
			&cli.IntFlag{Name: "events", Usage: "Maximum events to show"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Timeline(c.Context, env, ops.TimelineInput{
				SessionLimit: c.Int("sessions"),
				EventLimit:   c.Int("events"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// outputJSON prints pretty JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if domErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", domErr.Code, domErr.Message), 1)
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

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
