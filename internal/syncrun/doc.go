// Package syncrun orchestrates one complete sync pass: acquire the run lock,
// prepare camera destinations, sync each camera in turn, sweep retention,
// and summarize. The lock is released on every exit path.
package syncrun
