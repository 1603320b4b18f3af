// Package signals routes the process signals a daemon reacts to (terminate
// and the two user signals) to plain callbacks run on a single dispatcher
// goroutine.
package signals
