package iptu

import "github.com/lucasmbraga/taxflow/pkg/domain"

// ResetFull wipes the session back to the start of the workflow. When
// keepProperty is set, only the property id survives so the user does not
// have to retype the inscription; registry metadata is fetched again.
func ResetFull(st *domain.State, keepProperty bool) {
	id := st.Data.PropertyID
	st.Data = domain.Data{}
	st.Internal = domain.Internal{}
	st.Prompt = nil
	if keepProperty {
		st.Data.PropertyID = id
	}
}

// resetToInstallmentChoice discards everything that depends on the current
// installment selection, keeping the fetched installment list and any slips
// already emitted.
func resetToInstallmentChoice(st *domain.State) {
	st.Data.ChosenInstallments = nil
	st.Internal.SeparateSlips = nil
	st.Internal.DataConfirmed = false
	st.Internal.NextQuestion = ""
	clearContinueFlags(st)
}

// resetToGuideChoice discards the chosen guide and everything downstream of
// it, keeping the guide list and any slips already emitted.
func resetToGuideChoice(st *domain.State) {
	st.Data.ChosenGuide = ""
	st.Data.Installments = nil
	resetToInstallmentChoice(st)
}

// resetToYearChoice discards the fiscal year and everything downstream of
// it, keeping the property.
func resetToYearChoice(st *domain.State) {
	st.Data.Year = 0
	st.Data.Guides = nil
	st.Data.Debt = nil
	st.Internal.GuidesConsulted = false
	resetToGuideChoice(st)
}

func clearContinueFlags(st *domain.State) {
	st.Internal.WantsMoreInstallments = false
	st.Internal.WantsOtherGuide = false
	st.Internal.WantsOtherProperty = false
}
