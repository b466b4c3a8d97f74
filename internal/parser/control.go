package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"DiffDrive/internal/model"
)

// argCounts lists the accepted argument counts per command kind.
var argCounts = map[model.CommandKind][]int{
	model.CmdCreate:  {3},
	model.CmdReverse: {3},
	model.CmdFollow:  {0},
	model.CmdFetch:   {0},
	model.CmdReset:   {0},
	model.CmdManual:  {2},
	model.CmdTurn:    {1, 2}, // angle [offset]
	model.CmdStop:    {0},
	model.CmdVoltage: {1},
}

// ParseCommand parses a console command such as "create 2 0 90".
// Fields are separated by spaces.
func ParseCommand(line string) (model.Command, error) {
	return parseCommandFields(strings.Fields(line))
}

// FormatCommand renders c in the console form accepted by ParseCommand.
func FormatCommand(c model.Command) string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(a, 'f', -1, 64))
	}
	return b.String()
}

// ValidateCommand checks the kind, the argument count and that every argument
// is finite.
func ValidateCommand(c model.Command) error {
	counts, ok := argCounts[c.Kind]
	if !ok {
		return fmt.Errorf("unknown command %q", c.Kind)
	}
	for i, a := range c.Args {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("command %s: argument %d is not finite", c.Kind, i+1)
		}
	}
	for _, n := range counts {
		if len(c.Args) == n {
			return nil
		}
	}
	return fmt.Errorf("command %s: expected %v args, got %d", c.Kind, counts, len(c.Args))
}

func parseCommandFields(fields []string) (model.Command, error) {
	if len(fields) == 0 || fields[0] == "" {
		return model.Command{}, fmt.Errorf("empty command")
	}
	c := model.Command{Kind: model.CommandKind(strings.ToLower(strings.TrimSpace(fields[0])))}
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return model.Command{}, fmt.Errorf("command %s: invalid argument %q", c.Kind, f)
		}
		c.Args = append(c.Args, v)
	}
	if err := ValidateCommand(c); err != nil {
		return model.Command{}, err
	}
	return c, nil
}
