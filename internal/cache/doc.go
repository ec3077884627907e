// Package cache holds the in-process render cache and the freshness oracle
// used to decide whether a cached artifact can be served. The Store maps a
// cache key (the resolved source path) to the last compiled artifact together
// with the time it was stored; the Oracle reports the source file's
// modification time through an afero filesystem so production code reads the
// OS while tests use an in-memory tree. Neither component carries policy: the
// render pipeline compares the two timestamps and decides when to recompile.
package cache
