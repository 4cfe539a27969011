package fatigue

// Recommendation selects driver guidance for a scored reading. Predicates
// are checked in order; the first match wins.
func Recommendation(score float64, r Reading) string {
	if score > 0.8 {
		return "Immediate rest recommended. Pull over safely."
	}
	if score > 0.6 {
		return "Take a break soon. Consider stopping at next rest area."
	}
	if r.EyeStatus == EyeClosed {
		return "Eyes closed detected. Ensure driver is alert."
	}
	if !r.SeatbeltOn {
		return "Please wear your seatbelt for safety."
	}
	return "Drive safely. Stay alert."
}
