// Package schedule computes the visit order of a batch of tape requests.
//
// A run has three stages:
//
//  1. [Evaluate] prices a [Schedule] by simulating the head: it seeks from
//     the current position to each request's start, paying the seek oracle,
//     and then jumps for free to the request's end.
//  2. [Greedy] builds an initial schedule by always visiting the unvisited
//     request whose start is cheapest to reach from where the head is.
//  3. One [Refiner] improves the greedy schedule with pairwise swaps.
//     [Annealing] accepts worse swaps with a cooling probability measured
//     against the best schedule seen; [Tabu] walks the best swap
//     neighbourhood while forbidding recently credited requests.
//
// [Scheduler] wires the stages together, validates the input and reports a
// [Result].
//
// # Determinism
//
// Greedy and Tabu are deterministic. Annealing draws all randomness from its
// *rand.Rand, so two runs with the same seed, head and batch return the same
// schedule. Use [NewRand] to build a seeded generator.
//
// # Cancellation
//
// Refiners check their context and optional TimeLimit while running. On
// expiry of the time limit they return the best schedule found so far. On
// context cancellation they return the best schedule together with the
// context's error.
package schedule
