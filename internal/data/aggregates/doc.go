// Package aggregates is the GORM side of the growth aggregate. Each write takes an
// in-process key lock, runs its reads and writes in one transaction and reports the
// outcome to Hooks; plant rows advance through VersionGuard.
package aggregates
