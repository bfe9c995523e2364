package viscor

import (
	"fmt"
	"strconv"
	"strings"
)

// EventKind enumerates the inputs a frame can receive.
type EventKind int

const (
	EventRedraw EventKind = iota
	EventCursor
	EventExp
	EventAlpha
	EventVolume
	EventSave
	EventQuit
)

// Event is one line of user input. Each event drives one frame.
type Event struct {
	Kind EventKind
	// U and V are the cursor position for EventCursor.
	U, V float64
	// Toggle flips the exponential flag; otherwise On sets it.
	Toggle bool
	On     bool
	Alpha  float64
	Volume int
	Path   string
}

// ParseEvent parses an input line:
//
//	<u> <v>            move the query to the normalized position
//	move <u> <v>       same
//	exp [on|off]       toggle or set the exponential transform
//	alpha <a>          set the overlay transparency
//	volume <n>         select a volume
//	save <path.png>    write the next frame as PNG
//	quit               end the session
//
// An empty line redraws.
func ParseEvent(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{Kind: EventRedraw}, nil
	}

	if u, err := strconv.ParseFloat(fields[0], 64); err == nil {
		if len(fields) != 2 {
			return Event{}, fmt.Errorf("expected \"<u> <v>\", got %q", line)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Event{}, fmt.Errorf("bad v coordinate %q", fields[1])
		}
		return Event{Kind: EventCursor, U: u, V: v}, nil
	}

	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "move", "m":
		if len(args) != 2 {
			return Event{}, fmt.Errorf("usage: move <u> <v>")
		}
		return ParseEvent(strings.Join(args, " "))
	case "exp", "e":
		switch {
		case len(args) == 0:
			return Event{Kind: EventExp, Toggle: true}, nil
		case len(args) == 1:
			on, err := parseSwitch(args[0])
			if err != nil {
				return Event{}, err
			}
			return Event{Kind: EventExp, On: on}, nil
		}
		return Event{}, fmt.Errorf("usage: exp [on|off]")
	case "alpha", "a":
		if len(args) != 1 {
			return Event{}, fmt.Errorf("usage: alpha <a>")
		}
		a, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return Event{}, fmt.Errorf("bad alpha %q", args[0])
		}
		return Event{Kind: EventAlpha, Alpha: a}, nil
	case "volume", "vol", "v":
		if len(args) != 1 {
			return Event{}, fmt.Errorf("usage: volume <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Event{}, fmt.Errorf("bad volume %q", args[0])
		}
		return Event{Kind: EventVolume, Volume: n}, nil
	case "save", "s":
		if len(args) != 1 {
			return Event{}, fmt.Errorf("usage: save <path.png>")
		}
		return Event{Kind: EventSave, Path: args[0]}, nil
	case "quit", "q", "exit":
		return Event{Kind: EventQuit}, nil
	}
	return Event{}, fmt.Errorf("unknown command %q", fields[0])
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
