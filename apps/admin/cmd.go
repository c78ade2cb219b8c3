package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var (
	// isTerminalFunc reports whether w is an interactive terminal. mockable
	isTerminalFunc = func(w io.Writer) bool {
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  sgpa -entry NAME:CREDITS:GRADE [-entry ...] [-format table|json|auto] - compute the credit-weighted average of the entries")
	fmt.Fprintln(cli.out, "  grades - print the grade point table")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	sgpaCmd := flag.NewFlagSet("sgpa", flag.ContinueOnError)
	sgpaCmd.SetOutput(cli.out)
	var sgpaEntries entryList
	sgpaCmd.Var(&sgpaEntries, "entry", "A subject as NAME:CREDITS:GRADE, e.g. Maths:4:A. CREDITS and GRADE may be left empty. Repeatable.")
	sgpaFormat := sgpaCmd.String("format", formatAuto, "Output format: table, json, or auto (table on a terminal, json otherwise).")

	gradesCmd := flag.NewFlagSet("grades", flag.ContinueOnError)
	gradesCmd.SetOutput(cli.out)

	switch args[1] {
	case "sgpa":
		if err := sgpaCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		if len(sgpaEntries) == 0 {
			sgpaCmd.Usage()
			return errHelp
		}
		format, err := cli.resolveFormat(*sgpaFormat)
		if err != nil {
			return err
		}
		return cli.sgpa(sgpaEntries, format)
	case "grades":
		if err := gradesCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		return cli.grades()
	default:
		cli.printUsage()
		return errHelp
	}
}

func helpOr(err error) error {
	if err == flag.ErrHelp {
		return errHelp
	}
	return err
}
