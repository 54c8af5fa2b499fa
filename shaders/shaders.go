package shaders

import (
	_ "embed"
)

//go:embed mesh.wgsl
var MeshWGSL string

//go:embed line.wgsl
var LineWGSL string

//go:embed grid.wgsl
var GridWGSL string

//go:embed billboard.wgsl
var BillboardWGSL string
