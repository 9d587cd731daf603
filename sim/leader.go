package sim

// Leader returns the slot of the live bird with the highest fitness.
// Ties go to the lower slot.
func (s *Sim) Leader() (int, bool) {
	best, found := -1, false
	var bestFit float64
	for _, b := range s.Birds() {
		if !b.Alive {
			continue
		}
		if !found || b.Fitness > bestFit {
			best, bestFit, found = b.Slot, b.Fitness, true
		}
	}
	return best, found
}
