package target

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind says what a Target refers to.
type Kind string

const (
	KindProject Kind = "project"
	KindAgent   Kind = "agent"
	KindAll     Kind = "all"
	KindCurrent Kind = "current"
)

// Target is a reference extracted from a command. At most one of Name and
// Number is used: Number takes precedence when both are set. An empty
// Name and a nil Number mean "not given".
type Target struct {
	Kind   Kind   `json:"kind"`
	Name   string `json:"name,omitempty"`
	Number *int   `json:"number,omitempty"`
}

func ByName(kind Kind, name string) *Target {
	return &Target{Kind: kind, Name: name}
}

// ByNumber refers to the n-th entity of kind, counting from 1.
func ByNumber(kind Kind, n int) *Target {
	return &Target{Kind: kind, Number: &n}
}

func Current() *Target {
	return &Target{Kind: KindCurrent}
}

func All() *Target {
	return &Target{Kind: KindAll}
}

// String renders t in the syntax accepted by Parse.
func (t *Target) String() string {
	if t == nil {
		return string(KindCurrent)
	}
	switch {
	case t.Number != nil:
		return fmt.Sprintf("%s:%d", t.Kind, *t.Number)
	case t.Name != "":
		return fmt.Sprintf("%s:%s", t.Kind, t.Name)
	default:
		return string(t.Kind)
	}
}

// Parse reads the structured target syntax used by the CLI, chat commands
// and saved tasks:
//
//	all | current | project | agent
//	project:2     project:#2     project:Backend
//	agent:3       agent:#3       agent:login bug
//
// A qualifier made only of digits (optionally prefixed with '#') is a
// number, anything else is a name. The kind is case-insensitive.
func Parse(expr string) (*Target, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Current(), nil
	}

	head, qualifier, hasQualifier := strings.Cut(expr, ":")
	kind := Kind(strings.ToLower(strings.TrimSpace(head)))
	qualifier = strings.TrimSpace(qualifier)

	switch kind {
	case KindAll, KindCurrent:
		if hasQualifier && qualifier != "" {
			return nil, fmt.Errorf("target %q takes no qualifier", kind)
		}
		return &Target{Kind: kind}, nil
	case KindProject, KindAgent:
	default:
		return nil, fmt.Errorf("unknown target kind: %s", head)
	}

	t := &Target{Kind: kind}
	if qualifier == "" {
		return t, nil
	}
	n, ok, err := parseOrdinal(qualifier)
	if err != nil {
		return nil, fmt.Errorf("%s number out of range: %s", kind, qualifier)
	}
	if ok {
		t.Number = &n
		return t, nil
	}
	t.Name = qualifier
	return t, nil
}

// parseOrdinal reports whether s is a number qualifier. All-digit input
// that does not fit an int is an error, not a name.
func parseOrdinal(s string) (int, bool, error) {
	digits := strings.TrimPrefix(s, "#")
	if digits == "" {
		return 0, false, nil
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false, nil
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
