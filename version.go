package cadence

// Version is the library version, overridable at build time via
// -ldflags "-X github.com/seqlab/cadence.Version=...".
var Version = "0.3.0"
