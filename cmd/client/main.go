package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/tuannm99/pggateway"
	"github.com/tuannm99/pggateway/sqlclient"
)

const prompt = "pggw> "

func main() {
	var (
		addr       = pflag.String("addr", "127.0.0.1:8866", "gateway server address")
		timeout    = pflag.Duration("timeout", 3*time.Second, "dial timeout")
		reqTimeout = pflag.Duration("request-timeout", 30*time.Second, "per statement timeout (0 = none)")
		histPath   = pflag.String("history", defaultHistoryPath(), "history file path")
		histMax    = pflag.Int("history-max", 2000, "max history lines loaded into memory")
		oneShotSQL = pflag.StringP("command", "c", "", "run one statement and exit")
	)
	pflag.Parse()

	cli, err := sqlclient.Dial(*addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cli.Close() }()
	cli.SetRWTimeout(*reqTimeout)

	if strings.TrimSpace(*oneShotSQL) != "" {
		if err := run(cli, os.Stdout, *oneShotSQL); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	h := NewHistory(*histPath)
	if err := h.Load(*histMax); err != nil {
		fmt.Fprintf(os.Stderr, "history: %v\n", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	// so the up arrow works immediately
	for _, line := range h.Lines() {
		_ = rl.SaveHistory(line)
	}

	fmt.Printf("connected to %s\n", *addr)
	fmt.Println(`type \help for help`)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C clears the pending statement
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(prompt)
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && isMetaCommand(line) {
			switch line {
			case `\q`, "quit", "exit":
				return
			case `\help`:
				fmt.Println(helpText)
			case `\history`:
				h.Print(os.Stdout, 50)
			default:
				fmt.Printf("unknown command: %s\n", line)
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt("...> ")
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt(prompt)

		_ = h.Append(stmt)
		_ = rl.SaveHistory(compactOneLine(stmt))

		if err := run(cli, os.Stdout, stmt); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

type gateway interface {
	Execute(ctx context.Context, sql string, params ...any) (int64, error)
	FetchRow(ctx context.Context, sql string, params ...any) (*pggateway.Row, error)
}

func run(g gateway, w io.Writer, stmt string) error {
	ctx := context.Background()

	if returnsRow(stmt) {
		row, err := g.FetchRow(ctx, stmt)
		if err != nil {
			return err
		}
		return printRow(w, row)
	}

	n, err := g.Execute(ctx, stmt)
	if err != nil {
		return err
	}
	printAffected(w, n)
	return nil
}
