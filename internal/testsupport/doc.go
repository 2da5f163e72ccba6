// Package testsupport provides shared fixtures for package tests: a
// temp-directory config builder, a scriptable fake segment source, and file
// helpers.
package testsupport
