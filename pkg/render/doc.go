// Package render draws the path of the tape head through a schedule.
//
// [ToDOT] produces a Graphviz graph: a start node for the initial head
// position, one node per request in visit order, grouped into one cluster
// per wrap, and edges labelled with the seek cost between consecutive
// requests. [RenderSVG] lays the graph out with the embedded Graphviz
// engine.
//
//	dot := render.ToDOT(ds, res, oracle, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
package render
