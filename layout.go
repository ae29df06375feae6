package bpmn

// Layout holds the default sizes and spacing used when a node or flow has
// no diagram entry.
type Layout struct {
	TaskWidth   float64 `toml:"task_width"`
	TaskHeight  float64 `toml:"task_height"`
	EventSize   float64 `toml:"event_size"`
	GatewaySize float64 `toml:"gateway_size"`
	OriginX     float64 `toml:"origin_x"`
	OriginY     float64 `toml:"origin_y"`
	ColumnGap   float64 `toml:"column_gap"`
	RowGap      float64 `toml:"row_gap"`
}

// DefaultLayout returns the sizes the common modelers use.
func DefaultLayout() Layout {
	return Layout{
		TaskWidth:   100,
		TaskHeight:  80,
		EventSize:   36,
		GatewaySize: 50,
		OriginX:     180,
		OriginY:     100,
		ColumnGap:   150,
		RowGap:      120,
	}
}

// orDefault fills zero fields from DefaultLayout.
func (l Layout) orDefault() Layout {
	def := DefaultLayout()
	fill := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&l.TaskWidth, def.TaskWidth)
	fill(&l.TaskHeight, def.TaskHeight)
	fill(&l.EventSize, def.EventSize)
	fill(&l.GatewaySize, def.GatewaySize)
	fill(&l.ColumnGap, def.ColumnGap)
	fill(&l.RowGap, def.RowGap)
	if l.OriginX == 0 && l.OriginY == 0 {
		l.OriginX, l.OriginY = def.OriginX, def.OriginY
	}
	return l
}

// Size returns the default width and height of a node of variant v.
func (l Layout) Size(v Variant) (w, h float64) {
	l = l.orDefault()
	switch {
	case v.IsEvent():
		return l.EventSize, l.EventSize
	case v.IsGateway():
		return l.GatewaySize, l.GatewaySize
	default:
		return l.TaskWidth, l.TaskHeight
	}
}

// CenteredAt returns bounds of the default size for v centered on p.
func (l Layout) CenteredAt(v Variant, p Point) Bounds {
	w, h := l.Size(v)
	return Bounds{X: p.X - w/2, Y: p.Y - h/2, Width: w, Height: h}
}

// Connect returns the two waypoints from the right middle of src to the
// left middle of tgt.
func Connect(src, tgt Bounds) []Point {
	return []Point{
		{X: src.X + src.Width, Y: src.Y + src.Height/2},
		{X: tgt.X, Y: tgt.Y + tgt.Height/2},
	}
}

// Complete returns the diagram of d with an entry for every node and flow.
// Existing entries are kept as they are; missing shapes are placed on a
// grid by longest-path layer. d is not modified.
func (l Layout) Complete(d *Document) (map[string]Shape, map[string]DiagramEdge) {
	l = l.orDefault()
	shapes := make(map[string]Shape, len(d.nodeOrder))
	for id, s := range d.shapes {
		shapes[id] = s
	}
	layer := layers(d)
	rows := map[int]int{}
	for _, id := range d.nodeOrder {
		col := layer[id]
		row := rows[col]
		rows[col]++
		if _, ok := shapes[id]; ok {
			continue
		}
		w, h := l.Size(d.nodes[id].Variant)
		shapes[id] = Shape{Bounds: Bounds{
			X:      l.OriginX + float64(col)*l.ColumnGap,
			Y:      l.OriginY + float64(row)*l.RowGap,
			Width:  w,
			Height: h,
		}}
	}

	edges := make(map[string]DiagramEdge, len(d.edgeOrder))
	for _, id := range d.edgeOrder {
		if de, ok := d.diagramEdges[id]; ok && len(de.Waypoints) >= 2 {
			edges[id] = de
			continue
		}
		e := d.edges[id]
		de := d.diagramEdges[id]
		de.Waypoints = Connect(shapes[e.source].Bounds, shapes[e.target].Bounds)
		edges[id] = de
	}
	return shapes, edges
}

// layers assigns each node its longest-path distance from a root, ignoring
// the flows that close a cycle.
func layers(d *Document) map[string]int {
	back := map[string]bool{}
	state := map[string]int{}
	var visit func(id string)
	visit = func(id string) {
		state[id] = 1
		for _, eid := range d.nodes[id].outgoing {
			t := d.edges[eid].target
			switch state[t] {
			case 0:
				visit(t)
			case 1:
				back[eid] = true
			}
		}
		state[id] = 2
	}
	for _, id := range d.nodeOrder {
		if len(d.nodes[id].incoming) == 0 && state[id] == 0 {
			visit(id)
		}
	}
	for _, id := range d.nodeOrder {
		if state[id] == 0 {
			visit(id)
		}
	}

	indeg := map[string]int{}
	for _, eid := range d.edgeOrder {
		if !back[eid] {
			indeg[d.edges[eid].target]++
		}
	}
	layer := make(map[string]int, len(d.nodeOrder))
	var queue []string
	for _, id := range d.nodeOrder {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, eid := range d.nodes[id].outgoing {
			if back[eid] {
				continue
			}
			t := d.edges[eid].target
			if layer[id]+1 > layer[t] {
				layer[t] = layer[id] + 1
			}
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}
	return layer
}
