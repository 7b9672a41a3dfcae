// Package loop finds the natural loops of an ir.Function.
//
// Loops are found from the back edges of the dominator tree, and nested by
// block containment into a Forest. A retreating edge whose target does not
// dominate its source makes the function irreducible.
package loop
