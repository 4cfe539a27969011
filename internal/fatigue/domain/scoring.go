package fatigue

// Additive score contributions per signal. The sum is clamped to 1.0.
const (
	scoreEyesClosed  = 0.6
	scoreEyesPartial = 0.3
	scoreYawn        = 0.4
	scoreNoSeatbelt  = 0.2
	scoreLowEAR      = 0.3
	marOpenThreshold = 0.6
	marPenaltyFactor = 0.5
	lowEARThreshold  = 0.25
)

// Score derives a fatigue score in [0,1] from a reading. Pure and
// deterministic.
func Score(r Reading) float64 {
	score := 0.0

	switch r.EyeStatus {
	case EyeClosed:
		score += scoreEyesClosed
	case EyePartial:
		score += scoreEyesPartial
	}

	if r.YawnDetected {
		score += scoreYawn
	}

	if r.MAR > marOpenThreshold {
		score += (r.MAR - marOpenThreshold) * marPenaltyFactor
	}

	if !r.SeatbeltOn {
		score += scoreNoSeatbelt
	}

	// Eyes trending shut even when the classifier has not flipped to closed.
	if r.EAR < lowEARThreshold {
		score += scoreLowEAR
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

// EffectiveScore returns the caller-supplied override when present, the
// computed score otherwise. Overrides are used verbatim.
func EffectiveScore(r Reading) float64 {
	if r.FatigueLevel != nil {
		return *r.FatigueLevel
	}
	return Score(r)
}
