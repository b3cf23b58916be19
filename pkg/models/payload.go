package models

import "time"

// Payload is the dynamic request body routed to an agent. Intent selects the
// operation; Data carries intent-specific inputs validated by the receiving
// specialist. Workflow and Message are only meaningful to the orchestrator.
type Payload struct {
	Intent   Intent         `json:"intent,omitempty"`
	Workflow string         `json:"workflow,omitempty"`
	Message  string         `json:"message,omitempty"`
	Timeout  time.Duration  `json:"-"`
	Data     map[string]any `json:"data,omitempty"`
}

// Clone returns a shallow copy with its own Data map. Workflow steps derive
// their payloads from the incoming one without aliasing it.
func (p *Payload) Clone() *Payload {
	out := *p
	out.Data = make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		out.Data[k] = v
	}
	return &out
}

// String returns the string value under key, or "" when absent or not a string.
func (p *Payload) String(key string) string {
	s, _ := p.Data[key].(string)
	return s
}

// Float returns the numeric value under key. JSON decoding yields float64 for
// all numbers; int is accepted for values set in code.
func (p *Payload) Float(key string) (float64, bool) {
	switch v := p.Data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Int returns the integer value under key, truncating JSON floats.
func (p *Payload) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	return int(f), ok
}

// Bool returns the boolean value under key, false when absent or not a bool.
func (p *Payload) Bool(key string) bool {
	b, _ := p.Data[key].(bool)
	return b
}

// StringSlice returns the string-slice value under key. A []any of strings
// (the JSON decoding of an array) is converted element-wise.
func (p *Payload) StringSlice(key string) []string {
	switch v := p.Data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Map returns the nested mapping under key, or nil.
func (p *Payload) Map(key string) map[string]any {
	m, _ := p.Data[key].(map[string]any)
	return m
}

// Set assigns a data field, allocating the map on first use.
func (p *Payload) Set(key string, value any) {
	if p.Data == nil {
		p.Data = make(map[string]any)
	}
	p.Data[key] = value
}
