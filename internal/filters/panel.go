package filters

// NoDropdown means every dropdown is closed.
const NoDropdown Facet = ""

// Panel is the browse page's filter bar: the current selections plus the
// one dropdown that may be open.
type Panel struct {
	State State
	Open  Facet
}

func NewPanel(state State) Panel {
	return Panel{State: state, Open: NoDropdown}
}

// Toggle opens f, closing any other dropdown, or closes f if it is already open.
func (p Panel) Toggle(f Facet) Panel {
	if p.Open == f {
		p.Open = NoDropdown
		return p
	}
	p.Open = f
	return p
}

// Choose applies a selection and closes the open dropdown.
func (p Panel) Choose(f Facet, value string) Panel {
	p.State = p.State.Change(f, value)
	p.Open = NoDropdown
	return p
}

func (p Panel) Close() Panel {
	p.Open = NoDropdown
	return p
}

// ClearAll resets every facet and closes the open dropdown.
func (p Panel) ClearAll() Panel {
	return NewPanel(p.State.Clear())
}

func (p Panel) IsOpen(f Facet) bool {
	return f != NoDropdown && p.Open == f
}
