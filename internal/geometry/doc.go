// Package geometry is the 2D kernel shared by the timeline builder, the
// collision detector and the optimizer.
//
// Coordinates are field inches and headings are degrees measured
// anti-clockwise from the +X axis. Vectors are gonum r2.Vec values so that
// callers can use the r2 package functions directly.
//
// Curves are Bezier curves defined by a start point, an ordered list of
// control points and an end point:
//   - 0 control points: straight line
//   - 1 control point: quadratic Bezier
//   - 2 control points: cubic Bezier
//   - more: generic Bezier, pre-sampled at CurveTableSamples points and
//     evaluated piecewise-linearly (no arc-length reparametrisation)
package geometry
