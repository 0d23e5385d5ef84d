// Package snapshot persists validated systems in SQLite.
//
// Each accepted bundle stores the raw system object next to a few derived
// columns (outdoor temperature, water pressure, mode, collection sizes) so
// listings never have to rebuild the graph. Latest rebuilds the full
// *climate.System from the stored payload through climate.NewSystem, which
// means a stored snapshot is validated again on every read.
package snapshot
