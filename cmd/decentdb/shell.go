package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/decentdb/decentdb"
)

var (
	promptColor  = color.New(color.FgCyan)
	errorColor   = color.New(color.FgRed)
	successColor = color.New(color.FgGreen)
	headingColor = color.New(color.FgCyan, color.Bold)
)

const historyLimit = 1000

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive SQL shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(rootOpts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// Shell holds the interactive session state.
type Shell struct {
	db          *decentdb.DB
	out         io.Writer
	format      string
	history     []string
	historyFile string
	done        bool
}

func runShell(opts *RootOptions, in io.Reader, out io.Writer) error {
	database, err := openDB(opts)
	if err != nil {
		return err
	}
	defer database.Close()

	sh := &Shell{db: database, out: out, format: opts.Format, historyFile: historyPath()}
	sh.loadHistory()
	defer sh.saveHistory()

	sh.printBanner()
	sh.run(in)
	return nil
}

func (sh *Shell) printBanner() {
	headingColor.Fprintf(sh.out, "DecentDB %s\n", Version)
	fmt.Fprintf(sh.out, "Connected to %s. Type .help for commands, .quit to exit\n\n", sh.db.Location())
}

func (sh *Shell) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLine strings.Builder

	for !sh.done {
		sh.prompt(multiLine.Len() > 0)

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			successColor.Fprintln(sh.out, "\nGoodbye!")
			return
		}
		input = strings.TrimRight(input, "\r\n")

		if strings.TrimSpace(input) == "" {
			continue
		}

		if multiLine.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			sh.handleCommand(input)
			continue
		}

		// accumulate until the statement ends with a semicolon
		multiLine.WriteString(input)
		trimmed := strings.TrimSpace(multiLine.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLine.WriteString("\n")
			continue
		}
		multiLine.Reset()

		sh.addToHistory(trimmed)
		sh.execute(trimmed)
	}
}

func (sh *Shell) prompt(continuation bool) {
	label := "decentdb"
	if sh.db.InTransaction() {
		label += "*"
	}
	if continuation {
		label = strings.Repeat(" ", len(label)-3) + "..."
	}
	promptColor.Fprintf(sh.out, "%s> ", label)
}

func (sh *Shell) execute(text string) {
	for _, stmt := range splitStatements(text) {
		result, err := runStatement(sh.db, stmt)
		if err != nil {
			errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
			continue
		}
		if err := render(sh.out, result, sh.format); err != nil {
			errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
		}
	}
}

func (sh *Shell) handleCommand(input string) {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		successColor.Fprintln(sh.out, "Goodbye!")
		sh.done = true

	case ".help", ".h", ".?":
		sh.printHelp()

	case ".tables":
		sh.printSnapshot(sh.db.ListTablesJSON())

	case ".columns", ".describe":
		if len(parts) < 2 {
			errorColor.Fprintln(sh.out, "✗ Usage: .columns <table>")
			return
		}
		sh.printSnapshot(sh.db.TableColumnsJSON(parts[1]))

	case ".indexes":
		sh.printSnapshot(sh.db.ListIndexesJSON())

	case ".checkpoint":
		if err := sh.db.Checkpoint(); err != nil {
			errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
			return
		}
		successColor.Fprintln(sh.out, "✓ Checkpoint complete")

	case ".log":
		history, err := sh.db.History(10)
		if err != nil {
			errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
			return
		}
		for _, tx := range history {
			fmt.Fprintf(sh.out, "  %.8s  %s  %s\n", tx.Id, tx.When.Format("2006-01-02 15:04:05"), tx.Author)
		}

	case ".import":
		if len(parts) < 2 {
			errorColor.Fprintln(sh.out, "✗ Usage: .import <file.sql>")
			return
		}
		data, err := os.ReadFile(parts[1])
		if err != nil {
			errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
			return
		}
		if err := execScript(sh.db, string(data), sh.format, true, sh.out); err != nil {
			errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
			return
		}
		successColor.Fprintln(sh.out, "✓ Import complete")

	case ".history":
		sh.printHistory()

	case ".version":
		fmt.Fprintf(sh.out, "DecentDB version %s\n", Version)

	default:
		errorColor.Fprintf(sh.out, "✗ Unknown command: %s (type .help for commands)\n", parts[0])
	}
}

func (sh *Shell) printSnapshot(buf *decentdb.Buffer, err error) {
	if err != nil {
		errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
		return
	}
	defer buf.Release()
	data, err := buf.Bytes()
	if err != nil {
		errorColor.Fprintf(sh.out, "✗ Error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "%s\n", data)
}

func (sh *Shell) printHelp() {
	headingColor.Fprintln(sh.out, "Special Commands:")
	fmt.Fprintln(sh.out, "  .help, .h          Show this help message")
	fmt.Fprintln(sh.out, "  .quit, .exit       Exit the shell")
	fmt.Fprintln(sh.out, "  .tables            List tables")
	fmt.Fprintln(sh.out, "  .columns <table>   Describe the columns of a table")
	fmt.Fprintln(sh.out, "  .indexes           List indexes")
	fmt.Fprintln(sh.out, "  .checkpoint        Fold the write-ahead log into the store")
	fmt.Fprintln(sh.out, "  .log               Show recent checkpoints")
	fmt.Fprintln(sh.out, "  .import <file>     Execute SQL statements from a file")
	fmt.Fprintln(sh.out, "  .history           Show command history")
	fmt.Fprintln(sh.out, "  .version           Show version info")
	fmt.Fprintln(sh.out)
	headingColor.Fprintln(sh.out, "SQL:")
	fmt.Fprintln(sh.out, "  CREATE TABLE t (id INT PRIMARY KEY, name TEXT NOT NULL, price DECIMAL(10,2));")
	fmt.Fprintln(sh.out, "  CREATE [UNIQUE] INDEX i ON t (col, ...);  DROP TABLE t;  DROP INDEX i;")
	fmt.Fprintln(sh.out, "  INSERT INTO t (cols) VALUES (...);  UPDATE t SET c = v WHERE ...;  DELETE FROM t WHERE ...;")
	fmt.Fprintln(sh.out, "  SELECT [DISTINCT] cols|COUNT(*)|SUM(c)|... FROM t [WHERE ...] [ORDER BY ...] [LIMIT n] [OFFSET n];")
	fmt.Fprintln(sh.out, "  BEGIN;  COMMIT;  ROLLBACK;")
	fmt.Fprintln(sh.out)
}

func (sh *Shell) addToHistory(cmd string) {
	if len(sh.history) > 0 && sh.history[len(sh.history)-1] == cmd {
		return
	}
	sh.history = append(sh.history, cmd)
	if len(sh.history) > historyLimit {
		sh.history = sh.history[len(sh.history)-historyLimit:]
	}
}

func (sh *Shell) printHistory() {
	if len(sh.history) == 0 {
		fmt.Fprintln(sh.out, "No command history")
		return
	}
	start := max(0, len(sh.history)-20)
	for i := start; i < len(sh.history); i++ {
		fmt.Fprintf(sh.out, "  %3d  %s\n", i+1, sh.history[i])
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".decentdb_history")
}

func (sh *Shell) loadHistory() {
	if sh.historyFile == "" {
		return
	}
	file, err := os.Open(sh.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		sh.history = append(sh.history, scanner.Text())
	}
}

func (sh *Shell) saveHistory() {
	if sh.historyFile == "" {
		return
	}
	file, err := os.Create(sh.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := max(0, len(sh.history)-historyLimit)
	for _, line := range sh.history[start:] {
		_, _ = file.WriteString(strings.ReplaceAll(line, "\n", " ") + "\n")
	}
}
