// Package arc implements the retain/release sequence dataflow of a function.
//
// The Evaluator walks the loop-region tree of a function innermost first,
// summarising every loop as a single node of its parent region. In each
// region, a bottom-up pass seeded at every decrement looks backwards for a
// matching increment, and a top-down pass seeded at every increment looks
// forwards for a matching decrement. Confirmed matches are published in two
// caller-owned maps: IncToDecMap (increment → bottom-up state of the
// decrement matched to it) and DecToIncMap (decrement → top-down state of
// the increment matched to it). A pair on which both maps agree is safe for
// a rewrite pass to remove.
//
// Releases which discharge the ownership of a consumed argument at the
// exits of the function are grouped, see ConsumedArgToEpilogueReleaseMap.
package arc
