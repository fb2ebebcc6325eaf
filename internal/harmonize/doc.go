// Package harmonize implements the POS harmonization engine.
//
// It transforms raw per-device transaction CSVs into per-device harmonized
// JSON artifacts: one mutable "latest" snapshot and one immutable
// "by-timestamp" history entry per device per run. The engine performs no
// I/O; callers feed it raw bytes and write the returned artifacts through
// the storage layer.
package harmonize
