// Package flows holds flow runners executed by the root engine. Runners
// receive all collaborators as function fields on a deps struct, so they can
// be exercised in tests without an engine, a store, or real crypto.
package flows
