package codegen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sflowg/workflow-compiler/internal/graph"
)

var msDuration = regexp.MustCompile(`^\d+(ms|s|m|h|d)$`)

// tsDuration renders a duration for Temporal options: short forms pass
// through as strings, anything else becomes a millisecond count.
func tsDuration(s string) (string, error) {
	s = strings.TrimSpace(s)
	if msDuration.MatchString(s) {
		return tsString(s), nil
	}
	d, err := graph.ParseDuration(s)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(d.Milliseconds(), 10), nil
}

// retryObject renders a Temporal RetryPolicy literal.
func retryObject(p *graph.RetryPolicy) (string, error) {
	var fields []string
	switch p.Strategy {
	case graph.RetryNone:
		fields = append(fields, "maximumAttempts: 1")
	case graph.RetryFailAfterX:
		fields = append(fields, fmt.Sprintf("maximumAttempts: %d", p.Attempts()))
		if p.BackoffCoefficient == nil {
			fields = append(fields, "backoffCoefficient: 1")
		}
	case graph.RetryExponentialBackoff:
		fields = append(fields, fmt.Sprintf("maximumAttempts: %d", p.Attempts()))
	case graph.RetryKeepTrying:
		if p.Attempts() > 0 {
			fields = append(fields, fmt.Sprintf("maximumAttempts: %d", p.Attempts()))
		}
	}
	if p.Strategy == graph.RetryExponentialBackoff || p.BackoffCoefficient != nil {
		fields = append(fields, "backoffCoefficient: "+strconv.FormatFloat(p.Coefficient(), 'f', -1, 64))
	}
	for _, iv := range []struct{ key, value string }{
		{"initialInterval", p.InitialInterval},
		{"maximumInterval", p.MaxInterval},
	} {
		if iv.value == "" {
			continue
		}
		d, err := tsDuration(iv.value)
		if err != nil {
			return "", err
		}
		fields = append(fields, iv.key+": "+d)
	}
	return "{ " + strings.Join(fields, ", ") + " }", nil
}

// proxy is one proxyActivities declaration. Calls sharing a timeout and retry
// policy share a proxy.
type proxy struct {
	Name    string
	Timeout string
	Retry   string
}

type proxySet struct {
	byKey map[string]*proxy
	list  []*proxy
}

func newProxySet() *proxySet {
	return &proxySet{byKey: make(map[string]*proxy)}
}

func (s *proxySet) get(timeout string, policy *graph.RetryPolicy) (*proxy, error) {
	key := timeout + "|" + policy.String()
	if p, ok := s.byKey[key]; ok {
		return p, nil
	}

	t, err := tsDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	p := &proxy{Timeout: t}
	if policy != nil {
		if p.Retry, err = retryObject(policy); err != nil {
			return nil, fmt.Errorf("retry policy: %w", err)
		}
	}

	p.Name = "acts"
	if len(s.list) > 0 {
		p.Name = fmt.Sprintf("acts%d", len(s.list)+1)
	}
	s.byKey[key] = p
	s.list = append(s.list, p)
	return p, nil
}
