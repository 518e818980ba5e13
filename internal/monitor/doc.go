// Package monitor runs the refresh loop.
//
// Each cycle polls keys, applies their commands, drains the scan source,
// updates and evicts registry records, re-sorts the roster, reconciles the
// viewport, draws a frame when due and appends an audit block when due. One
// mutex covers the whole cycle, so Export always sees a consistent registry.
package monitor
