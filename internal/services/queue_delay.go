package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// QueueDelayRule delays queueing of instances whose questionnaire name is
// listed.
type QueueDelayRule struct {
	Names []string      `yaml:"names"`
	Delay time.Duration `yaml:"delay"`
}

// QueueDelayPolicy decides when a newly unlocked instance is surfaced to the
// participant.
type QueueDelayPolicy struct {
	Delays []QueueDelayRule `yaml:"delays"`

	byName map[string]time.Duration
}

const defaultQueueDelays = `
delays:
  - names:
      - Nasenabstrich
      - "Nach Spontanmeldung: Nasenabstrich"
    delay: 1m
`

func DefaultQueueDelayPolicy() *QueueDelayPolicy {
	p, err := ParseQueueDelayPolicy([]byte(defaultQueueDelays))
	if err != nil {
		panic(err)
	}
	return p
}

func ParseQueueDelayPolicy(raw []byte) (*QueueDelayPolicy, error) {
	var p QueueDelayPolicy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse queue delays: %w", err)
	}
	p.byName = map[string]time.Duration{}
	for i, rule := range p.Delays {
		if rule.Delay < 0 {
			return nil, fmt.Errorf("queue delay rule %d: negative delay %s", i, rule.Delay)
		}
		for _, name := range rule.Names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			p.byName[name] = rule.Delay
		}
	}
	return &p, nil
}

// LoadQueueDelayPolicy reads a policy file. An empty path gives the built-in
// default.
func LoadQueueDelayPolicy(path string) (*QueueDelayPolicy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultQueueDelayPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queue delays %s: %w", path, err)
	}
	return ParseQueueDelayPolicy(raw)
}

// DelayFor returns how long after unlocking an instance of the named
// questionnaire is queued. Names match exactly.
func (p *QueueDelayPolicy) DelayFor(questionnaireName string) time.Duration {
	if p == nil {
		return 0
	}
	return p.byName[questionnaireName]
}
