package iptu

import "github.com/lucasmbraga/taxflow/pkg/domain"

// Backtrack lets a turn payload re-answer an earlier question. When the
// payload carries a field that was already committed in a previous turn,
// the committed value and everything downstream of it are discarded so the
// regular step sequence re-consumes the new answer.
//
// The cascade follows the step order: property, year, guide, installments.
// Only the earliest re-answered field triggers a reset; the steps rebuild
// the rest from the same payload where possible.
func Backtrack(st *domain.State) {
	if raw, ok := st.Payload[KeyPropertyID]; ok && st.Data.PropertyID != "" {
		var p propertyPayload
		if err := decode(map[string]any{KeyPropertyID: raw}, &p); err == nil {
			if id, err := parsePropertyID(p.PropertyID); err == nil && id != st.Data.PropertyID {
				ResetFull(st, false)
				return
			}
		}
	}

	if raw, ok := st.Payload[KeyYear]; ok && st.Data.Year != 0 {
		var p yearPayload
		if err := decode(map[string]any{KeyYear: raw}, &p); err == nil {
			if parseYear(p.Year) == nil && p.Year != st.Data.Year {
				resetToYearChoice(st)
				return
			}
		}
	}

	if raw, ok := st.Payload[KeyGuide]; ok && st.Data.ChosenGuide != "" {
		var p guidePayload
		if err := decode(map[string]any{KeyGuide: raw}, &p); err == nil {
			if normalizeNumber(p.Guide) != st.Data.ChosenGuide {
				resetToGuideChoice(st)
				return
			}
		}
	}

	if _, ok := st.Payload[KeyInstallments]; ok && len(st.Data.ChosenInstallments) > 0 {
		resetToInstallmentChoice(st)
	}
}
