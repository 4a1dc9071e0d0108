// Package testsupport provides shared fixtures for package tests: isolated
// configs with shortened queue timings, a managed SQLite store, and seeded
// guest records.
package testsupport
