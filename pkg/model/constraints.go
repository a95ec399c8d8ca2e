package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type Kind string

const (
	KindCA1 Kind = "CA1"
	KindCA2 Kind = "CA2"
	KindCA3 Kind = "CA3"
	KindCA4 Kind = "CA4"
	KindGA1 Kind = "GA1"
	KindBR1 Kind = "BR1"
	KindBR2 Kind = "BR2"
	KindFA2 Kind = "FA2"
	KindSE1 Kind = "SE1"
)

type Severity string

const (
	Hard Severity = "HARD"
	Soft Severity = "SOFT"
)

// Mode selects which appearances a record counts: home games, away games or both
type Mode string

const (
	Home     Mode = "H"
	Away     Mode = "A"
	HomeAway Mode = "HA"
)

// Scope tells CA4 whether its bound applies to the slot set as a whole or to every slot of it
type Scope string

const (
	Global Scope = "GLOBAL"
	Every  Scope = "EVERY"
)

// Header holds the attributes shared by every constraint record
type Header struct {
	Index    int      `mapstructure:"-"`
	Severity Severity `mapstructure:"type"`
	Penalty  int      `mapstructure:"penalty"`
}

func (header Header) Meta() Header {
	return header
}

func (header Header) Hard() bool {
	return header.Severity == Hard
}

func (header Header) constraint() {}

// Constraint is one of CA1, CA2, CA3, CA4, GA1, BR1, BR2, FA2 or SE1
type Constraint interface {
	Kind() Kind
	Meta() Header
	constraint()
}

type CA1 struct {
	Header `mapstructure:",squash"`
	Teams  []int `mapstructure:"teams"`
	Slots  []int `mapstructure:"slots"`
	Min    int   `mapstructure:"min"`
	Max    int   `mapstructure:"max"`
	Mode   Mode  `mapstructure:"mode"`
}

type CA2 struct {
	Header `mapstructure:",squash"`
	Teams1 []int `mapstructure:"teams1"`
	Teams2 []int `mapstructure:"teams2"`
	Slots  []int `mapstructure:"slots"`
	Min    int   `mapstructure:"min"`
	Max    int   `mapstructure:"max"`
	Mode   Mode  `mapstructure:"mode1"`
}

type CA3 struct {
	Header `mapstructure:",squash"`
	Teams1 []int `mapstructure:"teams1"`
	Teams2 []int `mapstructure:"teams2"`
	Intp   int   `mapstructure:"intp"`
	Min    int   `mapstructure:"min"`
	Max    int   `mapstructure:"max"`
	Mode   Mode  `mapstructure:"mode1"`
}

type CA4 struct {
	Header `mapstructure:",squash"`
	Teams1 []int `mapstructure:"teams1"`
	Teams2 []int `mapstructure:"teams2"`
	Slots  []int `mapstructure:"slots"`
	Min    int   `mapstructure:"min"`
	Max    int   `mapstructure:"max"`
	Mode   Mode  `mapstructure:"mode1"`
	Scope  Scope `mapstructure:"mode2"`
}

type Meeting struct {
	Home int
	Away int
}

type GA1 struct {
	Header   `mapstructure:",squash"`
	Meetings []Meeting `mapstructure:"meetings"`
	Slots    []int     `mapstructure:"slots"`
	Min      int       `mapstructure:"min"`
	Max      int       `mapstructure:"max"`
}

type BR1 struct {
	Header `mapstructure:",squash"`
	Teams  []int `mapstructure:"teams"`
	Slots  []int `mapstructure:"slots"`
	Intp   int   `mapstructure:"intp"`
	Mode   Mode  `mapstructure:"mode2"`
}

type BR2 struct {
	Header `mapstructure:",squash"`
	Teams  []int `mapstructure:"teams"`
	Slots  []int `mapstructure:"slots"`
	Intp   int   `mapstructure:"intp"`
}

type FA2 struct {
	Header `mapstructure:",squash"`
	Teams  []int `mapstructure:"teams"`
	Slots  []int `mapstructure:"slots"`
	Intp   int   `mapstructure:"intp"`
}

type SE1 struct {
	Header `mapstructure:",squash"`
	Teams  []int `mapstructure:"teams"`
	Min    int   `mapstructure:"min"`
}

func (CA1) Kind() Kind { return KindCA1 }
func (CA2) Kind() Kind { return KindCA2 }
func (CA3) Kind() Kind { return KindCA3 }
func (CA4) Kind() Kind { return KindCA4 }
func (GA1) Kind() Kind { return KindGA1 }
func (BR1) Kind() Kind { return KindBR1 }
func (BR2) Kind() Kind { return KindBR2 }
func (FA2) Kind() Kind { return KindFA2 }
func (SE1) Kind() Kind { return KindSE1 }

var (
	intsType     = reflect.TypeOf([]int{})
	meetingsType = reflect.TypeOf([]Meeting{})
)

// ParseConstraint turns the raw attributes of a record into its typed form
func ParseConstraint(kind string, index int, attributes map[string]string) (Constraint, error) {
	var constraint Constraint
	var err error
	switch Kind(kind) {
	case KindCA1:
		constraint, err = decodeRecord[CA1](attributes)
	case KindCA2:
		constraint, err = decodeRecord[CA2](attributes)
	case KindCA3:
		constraint, err = decodeRecord[CA3](attributes)
	case KindCA4:
		constraint, err = decodeRecord[CA4](attributes)
	case KindGA1:
		constraint, err = decodeRecord[GA1](attributes)
	case KindBR1:
		constraint, err = decodeRecord[BR1](attributes)
	case KindBR2:
		constraint, err = decodeRecord[BR2](attributes)
	case KindFA2:
		constraint, err = decodeRecord[FA2](attributes)
	case KindSE1:
		constraint, err = decodeRecord[SE1](attributes)
	default:
		return nil, fmt.Errorf("unknown constraint kind \"%v\"", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot decode constraint %v #%d: %w", kind, index, err)
	}

	constraint = withIndex(constraint, index)
	if err := checkEnums(constraint); err != nil {
		return nil, fmt.Errorf("constraint %v #%d: %w", kind, index, err)
	}
	return constraint, nil
}

func decodeRecord[T Constraint](attributes map[string]string) (T, error) {
	var record T
	input := make(map[string]any, len(attributes))
	for key, value := range attributes {
		input[key] = strings.TrimSpace(value)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(intListHook, meetingListHook),
		WeaklyTypedInput: true,
		Result:           &record,
	})
	if err != nil {
		return record, err
	}
	err = decoder.Decode(input)
	return record, err
}

func withIndex(constraint Constraint, index int) Constraint {
	switch c := constraint.(type) {
	case CA1:
		c.Index = index
		return c
	case CA2:
		c.Index = index
		return c
	case CA3:
		c.Index = index
		return c
	case CA4:
		c.Index = index
		return c
	case GA1:
		c.Index = index
		return c
	case BR1:
		c.Index = index
		return c
	case BR2:
		c.Index = index
		return c
	case FA2:
		c.Index = index
		return c
	case SE1:
		c.Index = index
		return c
	}
	return constraint
}

func checkEnums(constraint Constraint) error {
	header := constraint.Meta()
	if header.Severity != Hard && header.Severity != Soft {
		return fmt.Errorf("unknown type \"%v\"", header.Severity)
	}
	if header.Penalty < 0 {
		return fmt.Errorf("negative penalty %d", header.Penalty)
	}

	validMode := func(mode Mode) bool { return mode == Home || mode == Away || mode == HomeAway }
	switch c := constraint.(type) {
	case CA1:
		if !validMode(c.Mode) {
			return fmt.Errorf("unknown mode \"%v\"", c.Mode)
		}
	case CA2:
		if !validMode(c.Mode) {
			return fmt.Errorf("unknown mode1 \"%v\"", c.Mode)
		}
	case CA3:
		if !validMode(c.Mode) {
			return fmt.Errorf("unknown mode1 \"%v\"", c.Mode)
		}
		if c.Intp <= 0 {
			return fmt.Errorf("intp must be positive, found %d", c.Intp)
		}
	case CA4:
		if !validMode(c.Mode) {
			return fmt.Errorf("unknown mode1 \"%v\"", c.Mode)
		}
		if c.Scope != Global && c.Scope != Every {
			return fmt.Errorf("unknown mode2 \"%v\"", c.Scope)
		}
	case BR1:
		if !validMode(c.Mode) {
			return fmt.Errorf("unknown mode2 \"%v\"", c.Mode)
		}
	}
	return nil
}

// intListHook decodes "0;3;5" into []int{0, 3, 5}
func intListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != intsType {
		return data, nil
	}
	return parseIntList(data.(string))
}

// meetingListHook decodes "0,1;2,3;" into meetings 0-1 and 2-3
func meetingListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != meetingsType {
		return data, nil
	}

	fields := lo.Filter(strings.Split(data.(string), ";"), func(field string, _ int) bool {
		return strings.TrimSpace(field) != ""
	})
	meetings := make([]Meeting, 0, len(fields))
	for _, field := range fields {
		teams, err := parseIntList(strings.ReplaceAll(field, ",", ";"))
		if err != nil {
			return nil, err
		}
		if len(teams) != 2 {
			return nil, fmt.Errorf("meeting \"%v\" must name exactly two teams", field)
		}
		meetings = append(meetings, Meeting{Home: teams[0], Away: teams[1]})
	}
	return meetings, nil
}

func parseIntList(text string) ([]int, error) {
	values := make([]int, 0)
	for _, field := range strings.Split(text, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		value, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid integer \"%v\" in list \"%v\"", field, text)
		}
		values = append(values, value)
	}
	return values, nil
}
