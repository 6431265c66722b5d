package lint

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOutcome is returned for an outcome name outside the closed set.
var ErrInvalidOutcome = errors.New("invalid lint outcome")

// Outcome is the result of evaluating one lint rule against a certificate.
type Outcome int

const (
	Reserved Outcome = iota // should never happen
	NA                      // not applicable
	NE                      // not effective at issuance time
	Pass
	Info
	Warn
	Fail
	Fatal // the lint could not complete because the certificate is broken
	Unknown
)

var outcomeNames = [...]string{
	Reserved: "RESERVED",
	NA:       "NA",
	NE:       "NE",
	Pass:     "PASS",
	Info:     "INFO",
	Warn:     "WARN",
	Fail:     "FAIL",
	Fatal:    "FATAL",
	Unknown:  "UNKNOWN",
}

// Outcomes returns all outcomes in declaration order.
func Outcomes() []Outcome {
	return []Outcome{Reserved, NA, NE, Pass, Info, Warn, Fail, Fatal, Unknown}
}

// ParseOutcome accepts an outcome name in any case. NOTICE and ERROR are
// accepted as aliases of INFO and FAIL.
func ParseOutcome(s string) (Outcome, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "NOTICE":
		return Info, nil
	case "ERROR":
		return Fail, nil
	}
	for o, n := range outcomeNames {
		if n == name {
			return Outcome(o), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Failing reports whether the certificate failed the rule.
func (o Outcome) Failing() bool {
	switch o {
	case Info, Warn, Fail, Fatal:
		return true
	}
	return false
}

// Compact is the search-index encoding: true for failing outcomes, nil for
// everything else.
func (o Outcome) Compact() any {
	if o.Failing() {
		return true
	}
	return nil
}

func (o Outcome) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(outcomeNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return []byte(outcomeNames[o]), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
