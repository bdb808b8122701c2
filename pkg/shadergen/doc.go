// Package shadergen turns MaterialX elements into shading language source.
//
// [Compile] does the language independent work. It walks the nodes upstream
// of an element, schedules them with dependencies first and binds each node
// to a definition and an implementation for the requested target. It also
// publishes shader parameters and converts colors and units. Backends in the
// osl and glsl subpackages supply a [Syntax] and write the result with
// [Writer] and [WriteNode].
//
// Implementations come in three kinds. Inline implementations carry a
// sourcecode template whose {{input}} placeholders are replaced by the input
// expressions. Function implementations name a function in a source file
// next to the implementation document. Constant and dot nodes are written by
// the generators directly.
//
// Parameters are published for the unconnected inputs of the root node, for
// every filename input and for node graph interface inputs.
package shadergen
