// Package testutil provides testing utilities for lexgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source, a deterministic document corpus
// generator, and a typo injector for exercising tolerant matching.
//
// # Deterministic Corpora
//
//	rng := testutil.NewRNG(seed)
//	docs := testutil.Products(rng, 1000)
//
// # Typo Injection
//
//	corrupted := testutil.Typo(rng, "running")  // one random edit
package testutil
