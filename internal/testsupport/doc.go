// Package testsupport builds throwaway configurations and databases for
// package tests.
package testsupport
