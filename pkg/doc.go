// Package pkg provides the core libraries of mtlxgen, a generator of OSL and
// GLSL shaders from MaterialX documents.
//
// # Overview
//
// The pkg directory is organized into these areas:
//
//  1. [mtlx] - Document model, XML reading and writing, library loading
//     and validation
//  2. [shadergen] - Shader generation, with the [shadergen/osl] and
//     [shadergen/glsl] targets
//  3. [color] and [udim] - Color management transforms and UDIM expansion
//  4. [pipeline] - Orchestration (load → validate → generate) with caching
//  5. [cache], [observability], [server] - Infrastructure shared by the CLI
//     and the HTTP API
//  6. [dag] and [render/nodelink] - Node graph structure and diagrams
//
// # Architecture
//
// The typical data flow through mtlxgen:
//
//	MaterialX document + node libraries
//	         ↓
//	    [mtlx] package (read, import libraries, validate)
//	         ↓
//	    [mtlx.FindRenderableElements] (pick what to generate)
//	         ↓
//	    [shadergen] package (compile the node graph for a target)
//	         ↓
//	    OSL/GLSL source
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:             "wood.mtlx",
//	    LibrarySearchPath: "builtin",
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("wood.osl", []byte(result.Shaders[0].Source), 0o644)
//
// The embedded standard library in [stdlib] is found under the search path
// entry "builtin".
package pkg
