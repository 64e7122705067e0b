// Package validate checks that formula-bound positions and sizes stay whole
// numbers across an entire timeline.
//
// Resolution floors every value, so a formula like "i/2" silently renders
// in the wrong cell at odd steps. The validator evaluates each formula field
// at every step and rejects the edit at the first fraction or evaluation
// failure, naming the 1-indexed step:
//
//	row formula "i/2" evaluates to 0.5 at step 2, not an integer
//
// Editors call [Validator.Proposed] before committing a binding. The resolver
// calls [Validator.Report] once per store to annotate committed entities.
package validate
