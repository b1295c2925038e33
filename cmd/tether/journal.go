package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/tether/bridge"
	"github.com/chazu/tether/config"
	"github.com/chazu/tether/journal"
	"github.com/chazu/tether/wire"
)

var crossingKinds = map[string]bridge.CrossingKind{
	"function":    bridge.CrossFunction,
	"constructor": bridge.CrossConstructor,
	"destructor":  bridge.CrossDestructor,
	"script":      bridge.CrossScript,
}

func newJournalCommand(cfg func() *config.Config) *cobra.Command {
	var (
		q        journal.Query
		kind     string
		sessions bool
	)
	cmd := &cobra.Command{
		Use:   "journal [path]",
		Short: "List recorded boundary crossings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg().JournalPath()
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no journal path given and none configured")
			}
			if kind != "" {
				k, ok := crossingKinds[strings.ToLower(kind)]
				if !ok {
					return fmt.Errorf("unknown crossing kind %q", kind)
				}
				q.Kind = k
			}

			j, err := journal.Open(path, "")
			if err != nil {
				return err
			}
			defer j.Close()

			if sessions {
				return listSessions(cmd.OutOrStdout(), j)
			}
			return listCrossings(cmd.OutOrStdout(), j, q)
		},
	}
	cmd.Flags().StringVar(&q.Session, "session", "", "only this session")
	cmd.Flags().StringVar(&kind, "kind", "", "only crossings of this kind (function, constructor, destructor, script)")
	cmd.Flags().BoolVar(&q.ErrorsOnly, "errors", false, "only crossings that raised")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum number of entries")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "list recorded sessions instead")
	return cmd
}

func listSessions(out io.Writer, j *journal.Journal) error {
	sessions, err := j.Sessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		n, err := j.Count(journal.Query{Session: s})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d crossings\n", bold(s), n)
	}
	return nil
}

func listCrossings(out io.Writer, j *journal.Journal, q journal.Query) error {
	records, err := j.Entries(q)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintln(out, formatRecord(r))
	}
	return nil
}

func formatRecord(r *wire.CrossingRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-11s", r.At.Format("15:04:05.000000"), r.Kind)
	switch r.Kind {
	case bridge.CrossScript:
		fmt.Fprintf(&b, " callable=%d", r.Callable)
	default:
		fmt.Fprintf(&b, " fn=%d", r.Function)
	}
	if r.Self != 0 {
		fmt.Fprintf(&b, " self=%d", r.Self)
	}
	if r.Kind != bridge.CrossDestructor {
		types := make([]string, len(r.Args))
		for i, t := range r.Args {
			types[i] = t.String()
		}
		fmt.Fprintf(&b, " args=(%s)", strings.Join(types, ", "))
	}
	fmt.Fprintf(&b, " %s", r.Elapsed)
	if r.Error != "" {
		fmt.Fprintf(&b, " %s", red(r.Error))
	}
	return b.String()
}
