// Package domain holds the core data contracts of the experiment engine:
// block designs and orders, trial references and results, phase and outcome
// tags, and the lifecycle events exposed to observers. It has no behavior
// and no dependencies beyond the standard library.
package domain
