package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/monument-sim/monument/pkg/world"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// maxSpeakLength bounds SPEAK message length (§4.5: "bounded length").
const maxSpeakLength = 500

// ParseAction parses the action string grammar from §6:
//
//	action := "MOVE " dir | "PAINT " color [" " int " " int] | "SPEAK " text | "WAIT" | "SKIP"
//	dir     := "N" | "S" | "E" | "W"
//	color   := "#" HEX{6}
func ParseAction(s string) (Intent, Params, error) {
	intent, rest, err := parseIntent(s)
	if err != nil {
		return "", Params{}, err
	}
	params, err := parseParams(intent, rest)
	if err != nil {
		return "", Params{}, err
	}
	return intent, params, nil
}

// parseIntent identifies the verb only, so intake can check scope (§4.4
// step 8) before validating intent-specific parameters (step 9) — an
// actor without a scope must see ScopeDenied even when its params are
// malformed.
func parseIntent(s string) (Intent, string, error) {
	switch {
	case s == "WAIT":
		return IntentWait, "", nil
	case s == "SKIP":
		return IntentSkip, "", nil
	case strings.HasPrefix(s, "MOVE "):
		return IntentMove, strings.TrimPrefix(s, "MOVE "), nil
	case strings.HasPrefix(s, "PAINT "):
		return IntentPaint, strings.TrimPrefix(s, "PAINT "), nil
	case strings.HasPrefix(s, "SPEAK "):
		return IntentSpeak, strings.TrimPrefix(s, "SPEAK "), nil
	default:
		return "", "", fmt.Errorf("%w: unrecognized action %q", ErrMalformedAction, s)
	}
}

// parseParams validates and extracts intent-specific parameters from the
// verb's remainder (§4.5).
func parseParams(intent Intent, rest string) (Params, error) {
	switch intent {
	case IntentWait, IntentSkip:
		return Params{}, nil
	case IntentMove:
		_, params, err := parseMove(rest)
		return params, err
	case IntentPaint:
		_, params, err := parsePaint(rest)
		return params, err
	case IntentSpeak:
		_, params, err := parseSpeak(rest)
		return params, err
	default:
		return Params{}, fmt.Errorf("%w: unrecognized intent %q", ErrMalformedAction, intent)
	}
}

func parseMove(rest string) (Intent, Params, error) {
	switch world.Facing(rest) {
	case world.FacingNorth, world.FacingSouth, world.FacingEast, world.FacingWest:
		return IntentMove, Params{Direction: world.Facing(rest)}, nil
	default:
		return "", Params{}, fmt.Errorf("%w: invalid MOVE direction %q", ErrMalformedAction, rest)
	}
}

func parsePaint(rest string) (Intent, Params, error) {
	fields := strings.Fields(rest)
	if len(fields) != 1 && len(fields) != 3 {
		return "", Params{}, fmt.Errorf("%w: invalid PAINT arguments %q", ErrMalformedAction, rest)
	}
	color := fields[0]
	if !colorPattern.MatchString(color) {
		return "", Params{}, fmt.Errorf("%w: invalid PAINT color %q", ErrMalformedAction, color)
	}
	params := Params{Color: color}
	if len(fields) == 3 {
		x, errX := strconv.Atoi(fields[1])
		y, errY := strconv.Atoi(fields[2])
		if errX != nil || errY != nil {
			return "", Params{}, fmt.Errorf("%w: invalid PAINT target %q %q", ErrMalformedAction, fields[1], fields[2])
		}
		params.TargetX = &x
		params.TargetY = &y
	}
	return IntentPaint, params, nil
}

func parseSpeak(rest string) (Intent, Params, error) {
	if rest == "" {
		return "", Params{}, fmt.Errorf("%w: SPEAK message must be non-empty", ErrMalformedAction)
	}
	if len(rest) > maxSpeakLength {
		return "", Params{}, fmt.Errorf("%w: SPEAK message exceeds %d characters", ErrMalformedAction, maxSpeakLength)
	}
	return IntentSpeak, Params{Message: rest}, nil
}
