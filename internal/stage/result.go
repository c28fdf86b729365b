package stage

import "fmt"

// Tally counts per-unit outcomes for one stage run.
type Tally struct {
	Succeeded   int
	Failed      int
	Placeholder int
	Unresolved  int
}

// Total returns the number of units counted.
func (t Tally) Total() int {
	return t.Succeeded + t.Failed + t.Placeholder + t.Unresolved
}

// String renders the tally for terminal output.
func (t Tally) String() string {
	return fmt.Sprintf("%d succeeded, %d failed, %d placeholder, %d unresolved",
		t.Succeeded, t.Failed, t.Placeholder, t.Unresolved)
}

// Result is what a stage reports once its artifact is written.
type Result struct {
	Stage  string
	Output string
	Rows   int
	Tally  Tally
}
