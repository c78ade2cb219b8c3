package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/campusdesk/portal/core"
	"github.com/campusdesk/portal/core/grade"
)

const (
	maxCredits = 6

	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
)

// entryArg is a parsed `-entry NAME:CREDITS:GRADE` flag.
type entryArg struct {
	name    string
	credits int
	grade   grade.Symbol
}

// entryList collects repeated -entry flags, rejecting bad credits and grades while parsing.
type entryList []entryArg

func (l *entryList) String() string {
	parts := make([]string, 0, len(*l))
	for _, e := range *l {
		parts = append(parts, fmt.Sprintf("%s:%d:%s", e.name, e.credits, e.grade))
	}
	return strings.Join(parts, ",")
}

func (l *entryList) Set(val string) error {
	e, err := parseEntry(val)
	if err != nil {
		return err
	}
	*l = append(*l, e)
	return nil
}

// parseEntry splits on the last two colons so names may contain colons themselves.
func parseEntry(val string) (entryArg, error) {
	gIdx := strings.LastIndex(val, ":")
	if gIdx < 0 {
		return entryArg{}, errors.Errorf("%q: expected NAME:CREDITS:GRADE", val)
	}
	cIdx := strings.LastIndex(val[:gIdx], ":")
	if cIdx < 0 {
		return entryArg{}, errors.Errorf("%q: expected NAME:CREDITS:GRADE", val)
	}

	e := entryArg{
		name:  core.CleanString(val[:cIdx]),
		grade: grade.NormalizeSymbol(val[gIdx+1:]),
	}
	if credits := strings.TrimSpace(val[cIdx+1 : gIdx]); credits != "" {
		n, err := strconv.Atoi(credits)
		if err != nil || n < 0 || n > maxCredits {
			return entryArg{}, errors.Errorf("%q: credits must be a whole number between 0 and %d", val, maxCredits)
		}
		e.credits = n
	}
	if e.grade != "" && !e.grade.Valid() {
		return entryArg{}, errors.Errorf("%q: unknown grade %q", val, e.grade)
	}
	return e, nil
}

// resolveFormat turns auto into table when printing to a terminal and json otherwise.
func (cli *commandLine) resolveFormat(format string) (string, error) {
	switch format {
	case formatTable, formatJSON:
		return format, nil
	case formatAuto:
		if isTerminalFunc(cli.out) {
			return formatTable, nil
		}
		return formatJSON, nil
	}
	return "", errors.Errorf("unknown format %q: expected table, json or auto", format)
}

// sgpa fills a fresh table with the entries and prints it along with its average.
func (cli *commandLine) sgpa(entries []entryArg, format string) error {
	table := grade.NewTable()
	for i, e := range entries {
		var id string
		if i == 0 {
			id = table.Entries()[0].ID
		} else {
			id = table.AddEntry().ID
		}
		_, err := table.UpdateEntry(id, grade.SetName{Name: e.name}, grade.SetCredits{Credits: e.credits}, grade.SetGrade{Grade: e.grade})
		if err != nil {
			return errors.Wrap(err, "updating entry")
		}
	}

	if format == formatJSON {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Entries []grade.SubjectEntry `json:"entries"`
			Result  grade.Result         `json:"result"`
		}{table.Entries(), table.ComputeAverage()})
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSUBJECT\tCREDITS\tGRADE\tPOINTS\t")
	for i, e := range table.Entries() {
		points := "-"
		if pts, ok := grade.Points(e.Grade); ok {
			points = strconv.Itoa(pts)
		}
		credits := "-"
		if e.Credits > 0 {
			credits = strconv.Itoa(e.Credits)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", i+1, e.Name, credits, e.Grade, points)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	res := table.ComputeAverage()
	if !res.Available {
		fmt.Fprintln(cli.out, "SGPA: unavailable (no entry has both credits and a grade)")
		return nil
	}
	fmt.Fprintf(cli.out, "SGPA: %.2f (%s) over %d credits\n", res.Average, res.Band, res.TotalCredits)
	return nil
}

func (cli *commandLine) grades() error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GRADE\tPOINTS\t")
	for _, p := range grade.Scale() {
		fmt.Fprintf(w, "%s\t%d\t\n", p.Grade, p.Points)
	}
	return w.Flush()
}
