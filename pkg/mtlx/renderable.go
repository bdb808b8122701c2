package mtlx

// FindRenderableElements returns the elements of the document a shader can
// be generated for, in document order. Material nodes are preferred; when
// there are none, top-level outputs are used, then the outputs of local node
// graphs that nothing else reads, then top-level shader nodes. Library
// content is never returned.
func FindRenderableElements(d *Document) []*Element {
	local := d.LocalElements()

	var materials, outputs, shaders []*Element
	for _, e := range local {
		switch {
		case e.Category == CategoryOutput:
			outputs = append(outputs, e)
		case IsNode(e) && e.Type() == TypeMaterial:
			materials = append(materials, e)
		case IsNode(e) && IsShaderType(e.Type()):
			shaders = append(shaders, e)
		}
	}
	if len(materials) > 0 {
		return materials
	}
	if len(outputs) > 0 {
		return outputs
	}

	read := graphOutputsRead(local)
	var graphOutputs []*Element
	for _, e := range local {
		if e.Category != CategoryNodeGraph || e.HasAttr(AttrNodeDef) {
			continue
		}
		for _, out := range e.Outputs() {
			if !read[e.name+"/"+out.name] {
				graphOutputs = append(graphOutputs, out)
			}
		}
	}
	if len(graphOutputs) > 0 {
		return graphOutputs
	}
	return shaders
}

// graphOutputsRead collects "graph/output" keys for every nodegraph output
// connected to an input of a top-level node.
func graphOutputsRead(local []*Element) map[string]bool {
	read := make(map[string]bool)
	for _, e := range local {
		if !IsNode(e) {
			continue
		}
		for _, in := range e.Inputs() {
			g := in.Attr(AttrNodeGraph)
			if g == "" {
				continue
			}
			if out := in.Attr(AttrOutput); out != "" {
				read[g+"/"+out] = true
			} else {
				read[g+"/out"] = true
			}
		}
	}
	return read
}
