// Package condition evaluates researcher-authored conditions against
// recorded answers.
package condition

import (
	"strconv"
	"strings"
	"time"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/domain/studies"
)

type ValueType int

const (
	String ValueType = iota
	Numeric
	Date
)

func (v ValueType) String() string {
	switch v {
	case Numeric:
		return "numeric"
	case Date:
		return "date"
	default:
		return "string"
	}
}

// ValueTypeFor maps an answer_type_id to the comparison domain. Unknown ids
// compare as strings.
func ValueTypeFor(answerTypeID int) ValueType {
	switch answerTypeID {
	case studies.AnswerTypeNumber:
		return Numeric
	case studies.AnswerTypeDate:
		return Date
	default:
		return String
	}
}

const valueSeparator = ";"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 02 2006",
	"Mon Jan 2 2006",
}

type value struct {
	typ ValueType
	s   string
	n   float64
	t   time.Time
	ok  bool
}

func parseValues(raw string, typ ValueType) []value {
	parts := strings.Split(raw, valueSeparator)
	out := make([]value, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, parseValue(p, typ))
	}
	return out
}

func parseValue(raw string, typ ValueType) value {
	v := value{typ: typ, s: raw}
	switch typ {
	case Numeric:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		v.n, v.ok = n, err == nil
	case Date:
		v.t, v.ok = parseDate(strings.TrimSpace(raw))
	default:
		v.ok = true
	}
	return v
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compare orders a against b. ok is false when either side failed to cast.
func compare(a, b value) (int, bool) {
	if !a.ok || !b.ok {
		return 0, false
	}
	switch a.typ {
	case Numeric:
		switch {
		case a.n < b.n:
			return -1, true
		case a.n > b.n:
			return 1, true
		default:
			return 0, true
		}
	case Date:
		return a.t.Compare(b.t), true
	default:
		return strings.Compare(a.s, b.s), true
	}
}

type operand func(cmp int) bool

var operands = map[string]operand{
	"<":  func(c int) bool { return c < 0 },
	">":  func(c int) bool { return c > 0 },
	"<=": func(c int) bool { return c <= 0 },
	">=": func(c int) bool { return c >= 0 },
	"==": func(c int) bool { return c == 0 },
	"!=": func(c int) bool { return c != 0 },
	// legacy spelling of !=
	`\=`: func(c int) bool { return c != 0 },
}

// IsMet reports whether answer satisfies cond when both are read as typ.
// A missing answer, an unknown operand or an unknown link never match.
func IsMet(answer *types.Answer, cond *types.Condition, typ ValueType) bool {
	if answer == nil || cond == nil {
		return false
	}
	op, ok := operands[strings.TrimSpace(cond.ConditionOperand)]
	if !ok {
		return false
	}
	answerValues := parseValues(answer.Value, typ)
	conditionValues := parseValues(cond.ConditionValue, typ)

	matched := 0
	for _, cv := range conditionValues {
		if anyMatches(answerValues, cv, op) {
			matched++
		}
	}

	switch strings.ToUpper(cond.Link()) {
	case studies.LinkAnd:
		return matched == len(conditionValues)
	case studies.LinkOr:
		return matched > 0
	case studies.LinkXor:
		return matched == 1
	default:
		return false
	}
}

func anyMatches(answerValues []value, conditionValue value, op operand) bool {
	for _, av := range answerValues {
		c, ok := compare(av, conditionValue)
		if ok && op(c) {
			return true
		}
	}
	return false
}
