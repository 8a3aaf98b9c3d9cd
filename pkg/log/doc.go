/*
Package log wraps zerolog behind a package-level Logger plus a handful of
child-logger helpers (WithComponent, WithObjectID, WithEntryID) so callers
correlate log lines to a COB object or entry without repeating field
names at every call site.

Init configures the global Logger's level and output format; callers that
need a differently-scoped logger should build one with zerolog directly
rather than mutating the global.
*/
package log
