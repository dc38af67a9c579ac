package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvs/core"
)

const shellHelp = `
Available Commands:

SET <key> <value>
  Store a value for the given key.
  Overwrites the value if the key already exists.
  Quote values containing spaces: SET city "new york"
  Response: ok

GET <key>
  Retrieve the value associated with the key.
  Response: value | nil

DELETE <key>  (alias: RM)
  Delete the key and its value.
  Response: ok | Key not found

EXISTS <key>
  Check if a key exists.
  Response: true | false

COUNT
  Return the total number of keys stored.

LIST
  List all stored keys.

COMPACT
  Rewrite the log keeping only live values.

STATS
  Show index and log statistics.

HELP
  Show this help message.

EXIT
  Close the store and quit.
`

var errQuit = errors.New("quit")

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive session on the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *core.Store) error {
				return runShell(s, cmd.OutOrStdout())
			})
		},
	}
}

func runShell(s *core.Store, out io.Writer) error {
	r, err := newReader()
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintln(out, "Type commands. 'help' for information or 'exit' to quit.")

	for {
		line, err := r.Readline()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return err
		}

		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintln(out, "parse error:", err)
			continue
		}

		err = handleCommand(s, args, out)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func newReader() (*readline.Instance, error) {
	var history string
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".kvs_history")
	}

	autoComplete := readline.NewPrefixCompleter(
		readline.PcItem("set"),
		readline.PcItem("get"),
		readline.PcItem("delete"),
		readline.PcItem("exists"),
		readline.PcItem("count"),
		readline.PcItem("list"),
		readline.PcItem("compact"),
		readline.PcItem("stats"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	return readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     history,
		AutoComplete:    autoComplete,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
}

// handleCommand runs one shell command against s. It returns errQuit when
// the session should end; every other error is reported to the user and the
// session continues.
func handleCommand(s *core.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return nil
	}

	cmd := strings.ToLower(args[0])
	args = args[1:]

	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "set":
		if err := want(2); err != nil {
			return err
		}
		if err := s.Set(args[0], []byte(args[1])); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")

	case "get":
		if err := want(1); err != nil {
			return err
		}
		value, found, err := s.Get(args[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, "nil")
			return nil
		}
		fmt.Fprintln(out, string(value))

	case "delete", "rm":
		if err := want(1); err != nil {
			return err
		}
		err := s.Remove(args[0])
		if errors.Is(err, core.ErrKeyNotFound) {
			fmt.Fprintln(out, "Key not found")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")

	case "exists":
		if err := want(1); err != nil {
			return err
		}
		fmt.Fprintln(out, strconv.FormatBool(s.Contains(args[0])))

	case "count":
		fmt.Fprintln(out, strconv.Itoa(s.Len()))

	case "list":
		keys := s.Keys()
		if len(keys) == 0 {
			fmt.Fprintln(out, "nil")
			return nil
		}
		fmt.Fprintln(out, strings.Join(keys, "\n"))

	case "compact":
		if err := s.Compact(); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")

	case "stats":
		printStats(out, s.Stats())

	case "help":
		fmt.Fprintln(out, strings.TrimSpace(shellHelp))

	case "exit", "quit":
		return errQuit

	default:
		fmt.Fprintln(out, "Invalid Command")
	}

	return nil
}

func printStats(out io.Writer, st core.Stats) {
	fmt.Fprintf(out, "keys:                 %d\n", st.Keys)
	fmt.Fprintf(out, "log size:             %s\n", bytefmt.ByteSize(st.LogSize))
	fmt.Fprintf(out, "stale bytes:          %s\n", bytefmt.ByteSize(st.StaleBytes))
	fmt.Fprintf(out, "compaction threshold: %s\n", bytefmt.ByteSize(st.CompactionThreshold))
	fmt.Fprintf(out, "compactions:          %d\n", st.Compactions)
}
