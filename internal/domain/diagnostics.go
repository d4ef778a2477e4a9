package domain

import "fmt"

// Diagnostic records one best-effort operation that failed without aborting
// the invocation (images, structural metadata, non-critical writes).
type Diagnostic struct {
	Stage   string
	Subject string
	Err     error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s(%s): %v", d.Stage, d.Subject, d.Err)
}

// Diagnostics collects best-effort failures over one invocation. Only
// critical-operation failures propagate as errors; everything else lands
// here. Not safe for concurrent use; each invocation owns its own collector.
type Diagnostics struct {
	entries []Diagnostic
}

func (d *Diagnostics) Add(stage, subject string, err error) {
	if err == nil {
		return
	}
	d.entries = append(d.entries, Diagnostic{Stage: stage, Subject: subject, Err: err})
}

func (d *Diagnostics) Entries() []Diagnostic {
	return d.entries
}

func (d *Diagnostics) Empty() bool {
	return len(d.entries) == 0
}

// Strings renders the collected diagnostics for logging and audit records.
func (d *Diagnostics) Strings() []string {
	out := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.String())
	}
	return out
}
