package placement

type Axis string

const (
	AxisWidth  Axis = "width"
	AxisHeight Axis = "height"
)

// Expansion is the next strip the floor can grow by.
type Expansion struct {
	Axis       Axis `json:"axis"`
	Chunk      int  `json:"chunk"`
	CellsAdded int  `json:"cells_added"`
}

// NextExpansion walks the doubling schedule from (chunk, target): once both
// sides reach the target square, chunk and target double. Width grows first,
// then height, so 8x8 with chunk 8 and target 16 goes 16x8, 16x16, 32x16, 32x32.
func (g Grid) NextExpansion(chunk, target int) Expansion {
	if chunk <= 0 {
		chunk = 1
	}
	if target <= 0 {
		target = 1
	}
	for g.Width >= target && g.Height >= target {
		chunk *= 2
		target *= 2
	}
	if g.Width < target {
		return Expansion{Axis: AxisWidth, Chunk: chunk, CellsAdded: chunk * g.Height}
	}
	return Expansion{Axis: AxisHeight, Chunk: chunk, CellsAdded: chunk * g.Width}
}

func (e Expansion) Cost(perCell int) int {
	return e.CellsAdded * perCell
}

// Expand grows exactly one dimension. Existing footprints keep their anchors.
func (g Grid) Expand(e Expansion) Grid {
	out := g.Clone()
	switch e.Axis {
	case AxisWidth:
		out.Width += e.Chunk
	case AxisHeight:
		out.Height += e.Chunk
	}
	return out
}
