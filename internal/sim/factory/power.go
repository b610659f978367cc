package factory

// measureEnergy sums generator output and the draw of running machines.
func measureEnergy(st *State) Energy {
	var e Energy
	for _, g := range st.Generators {
		e.Produced += g.Output
	}
	for _, m := range st.Machines {
		if m.Running() {
			e.Consumed += m.EnergyDraw
		}
	}
	return e
}

// allocatePower blocks running machines, newest first, until demand fits
// supply. It returns the ids it blocked in the order they were shed.
func allocatePower(st *State) []string {
	st.Energy = measureEnergy(st)
	deficit := st.Energy.Consumed - st.Energy.Produced
	if deficit <= 0 {
		return nil
	}
	var shed []string
	for i := len(st.Machines) - 1; i >= 0 && deficit > 0; i-- {
		m := &st.Machines[i]
		if !m.Running() {
			continue
		}
		m.Status = StatusBlocked
		deficit -= m.EnergyDraw
		shed = append(shed, m.ID)
	}
	st.Energy = measureEnergy(st)
	return shed
}
