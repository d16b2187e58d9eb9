package flow

// StepResult records one executed (or skipped) write step.
type StepResult struct {
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
	Message string `json:"message,omitempty"`
}

// Result combines the plan, the realized mutations, and per-step
// changed flags. A dry run carries the plan with Executed false and no
// steps.
type Result struct {
	Plan     *Plan        `json:"plan"`
	Executed bool         `json:"executed"`
	PRAction PRAction     `json:"pr_action,omitempty"`
	PRNumber int          `json:"pr_number,omitempty"`
	PRURL    string       `json:"pr_url,omitempty"`
	Steps    []StepResult `json:"steps,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// step appends a step result.
func (r *Result) step(name string, changed bool, message string) {
	r.Steps = append(r.Steps, StepResult{Name: name, Changed: changed, Message: message})
}

// warn records a soft failure without failing the run.
func (r *Result) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Changed reports whether any step mutated anything.
func (r *Result) Changed() bool {
	for _, s := range r.Steps {
		if s.Changed {
			return true
		}
	}
	return false
}
