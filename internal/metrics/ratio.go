package metrics

import "github.com/reactorwatch/reactorwatch/internal/detect"

// Molar masses and stoichiometry for carbon bookkeeping.
const (
	glucoseMolarMass = 180.156 // g/mol
	carbonsInGlucose = 6
	carbonMolarMass  = 12.01 // g/mol
)

// CarbonOxygenRatio returns the molar C:O ratio for a feed event given
// the total oxygen consumed (mol). Control feeds carry their carbon as
// glucose; every other type reports carbon as TOC (g/L). Returns 0 when
// the event's composition lacks the relevant component or no oxygen was
// consumed.
func CarbonOxygenRatio(ev detect.Event, doConsumptionMol float64) float64 {
	if doConsumptionMol <= 0 {
		return 0
	}

	var carbonMol float64
	if ev.FeedType == detect.FeedControl {
		glucose, ok := ev.Composition["glucose"]
		if !ok {
			return 0
		}
		carbonMol = ev.VolumeLiters * glucose / glucoseMolarMass * carbonsInGlucose
	} else {
		toc, ok := ev.Composition["toc"]
		if !ok {
			return 0
		}
		carbonMol = ev.VolumeLiters * toc / carbonMolarMass
	}
	return carbonMol / doConsumptionMol
}
