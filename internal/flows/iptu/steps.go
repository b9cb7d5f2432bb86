package iptu

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasmbraga/taxflow/internal/intercept"
	"github.com/lucasmbraga/taxflow/pkg/domain"
)

// stepCollectProperty records the property inscription. A best-effort
// registry lookup enriches the session with address and owner; its failures
// never block the flow.
func (f *Flow) stepCollectProperty(ctx context.Context, st *domain.State) error {
	if st.Data.PropertyID != "" {
		return nil
	}

	var p propertyPayload
	if err := decode(st.Payload, &p); err == nil && p.PropertyID != "" {
		id, err := parsePropertyID(p.PropertyID)
		if err != nil {
			st.AskWithError(msgAskProperty(), err.Error(), SchemaProperty)
			return nil
		}
		st.Data.PropertyID = id
		f.enrichProperty(ctx, st)
		return nil
	}

	st.Ask(msgAskProperty(), SchemaProperty)
	return nil
}

func (f *Flow) enrichProperty(ctx context.Context, st *domain.State) {
	info, err := f.gateway.LookupProperty(ctx, st.Data.PropertyID)
	if err != nil {
		f.logger.Debug("property lookup skipped", "err", err, "property_id", st.Data.PropertyID)
		return
	}
	st.Data.Property = info
}

// stepChooseYear records the fiscal year to consult.
func (f *Flow) stepChooseYear(_ context.Context, st *domain.State) error {
	if st.Data.Year != 0 {
		return nil
	}

	var p yearPayload
	if err := decode(st.Payload, &p); err != nil {
		st.AskWithError(msgAskYear(st), err.Error(), SchemaYear)
		return nil
	}
	if p.Year == 0 {
		st.Ask(msgAskYear(st), SchemaYear)
		return nil
	}
	if err := parseYear(p.Year); err != nil {
		st.AskWithError(msgAskYear(st), err.Error(), SchemaYear)
		return nil
	}

	st.Data.Year = p.Year
	return nil
}

// stepFetchGuides lists the payment guides for the chosen property and
// year. An empty listing bumps the per-property counter; after
// maxEmptyYearAttempts consecutive empty years the flow gives up on the
// inscription and starts over. A service outage re-asks the year without
// touching any session data.
func (f *Flow) stepFetchGuides(ctx context.Context, st *domain.State) error {
	if st.Internal.GuidesConsulted && st.Data.Guides != nil {
		return nil
	}

	year := st.Data.Year
	set, err := intercept.Do(ctx, f.observer, st.SessionID, "list_guides", func(ctx context.Context) (*domain.GuideSet, error) {
		return f.gateway.ListGuides(ctx, st.Data.PropertyID, year)
	})
	switch {
	case errors.Is(err, domain.ErrServiceUnavailable):
		st.AskWithError(msgAskYear(st), msgServiceUnavailable(err), SchemaYear)
		return nil
	case errors.Is(err, domain.ErrAuthentication):
		st.AskWithError(msgAuthFailure(), err.Error(), SchemaYear)
		return nil
	case err != nil:
		return fmt.Errorf("list guides: %w", err)
	}

	if set == nil || len(set.Guides) == 0 {
		attempts := st.BumpFailedAttempts(st.Data.PropertyID)
		f.fetchDebt(ctx, st)

		if attempts >= maxEmptyYearAttempts {
			msg := msgPropertyGaveUp(st.Data.Debt)
			ResetFull(st, false)
			st.Ask(msg, SchemaProperty)
			return nil
		}

		msg := msgNoGuides(st, year)
		st.Data.Year = 0
		st.Internal.GuidesConsulted = false
		st.Ask(msg, SchemaYear)
		return nil
	}

	st.Data.Guides = set
	st.Internal.GuidesConsulted = true
	st.ClearFailedAttempts(st.Data.PropertyID)
	return nil
}

// fetchDebt looks up active debt for the current property. Failures are
// swallowed: debt information is advisory and never blocks the flow.
func (f *Flow) fetchDebt(ctx context.Context, st *domain.State) {
	debt, err := intercept.Do(ctx, f.observer, st.SessionID, "lookup_active_debt", func(ctx context.Context) (*domain.DebtInfo, error) {
		return f.gateway.LookupActiveDebt(ctx, st.Data.PropertyID)
	})
	if err != nil {
		f.logger.Warn("active debt lookup failed", "err", err, "property_id", st.Data.PropertyID)
		return
	}
	st.Data.Debt = debt
}

// stepChooseGuide records which guide the user wants to pay.
func (f *Flow) stepChooseGuide(_ context.Context, st *domain.State) error {
	if st.Data.ChosenGuide != "" {
		return nil
	}
	if st.Data.Guides == nil {
		return errors.New("choose guide: guide list missing")
	}

	var p guidePayload
	if err := decode(st.Payload, &p); err != nil || p.Guide == "" {
		st.Ask(msgChooseGuide(st), SchemaGuide)
		return nil
	}

	number := normalizeNumber(p.Guide)
	if st.Data.Guides.Find(number) == nil {
		st.AskWithError(msgChooseGuide(st), fmt.Sprintf("guia %q não encontrada para este exercício", p.Guide), SchemaGuide)
		return nil
	}

	st.Data.ChosenGuide = number
	return nil
}

// stepFetchInstallments lists the installments of the chosen guide. A
// guide with nothing payable is deselected so the user can pick another.
func (f *Flow) stepFetchInstallments(ctx context.Context, st *domain.State) error {
	if st.Data.Installments != nil {
		return nil
	}

	guide := st.Data.ChosenGuide
	set, err := intercept.Do(ctx, f.observer, st.SessionID, "list_installments", func(ctx context.Context) (*domain.InstallmentSet, error) {
		return f.gateway.ListInstallments(ctx, st.Data.PropertyID, st.Data.Year, guide)
	})
	switch {
	case errors.Is(err, domain.ErrServiceUnavailable):
		st.AskWithError(msgChooseGuide(st), msgServiceUnavailable(err), SchemaGuide)
		return nil
	case errors.Is(err, domain.ErrAuthentication):
		st.AskWithError(msgAuthFailure(), err.Error(), SchemaGuide)
		return nil
	case err != nil:
		return fmt.Errorf("list installments: %w", err)
	}

	if set == nil || len(set.Installments) == 0 {
		st.Data.ChosenGuide = ""
		st.AskWithError(msgChooseGuide(st), msgInstallmentsUnavailableForGuide(guide), SchemaGuide)
		return nil
	}
	if len(set.Open()) == 0 {
		st.Data.ChosenGuide = ""
		st.AskWithError(msgChooseGuide(st), msgNoOpenInstallments(guide), SchemaGuide)
		return nil
	}

	st.Data.Installments = set
	return nil
}

// stepChooseInstallments records which installments to pay. Selecting a
// single installment settles the slip format question implicitly.
func (f *Flow) stepChooseInstallments(_ context.Context, st *domain.State) error {
	if len(st.Data.ChosenInstallments) > 0 {
		return nil
	}

	var p installmentsPayload
	if err := decode(st.Payload, &p); err != nil || len(p.Installments) == 0 {
		st.Ask(msgChooseInstallments(st), SchemaInstallments)
		return nil
	}

	var chosen, unknown, paid []string
	for _, raw := range p.Installments {
		number := normalizeNumber(raw)
		it := findInstallment(st.Data.Installments, number)
		switch {
		case it == nil:
			unknown = append(unknown, raw)
		case !it.Payable():
			paid = append(paid, number)
		default:
			chosen = append(chosen, number)
		}
	}
	if len(unknown) > 0 {
		st.AskWithError(msgChooseInstallments(st), fmt.Sprintf("as cotas %s não existem nesta guia", strings.Join(unknown, ", ")), SchemaInstallments)
		return nil
	}
	if len(paid) > 0 {
		st.AskWithError(msgChooseInstallments(st), msgPaidInstallmentsSelected(paid), SchemaInstallments)
		return nil
	}

	st.Data.ChosenInstallments = chosen
	if len(chosen) == 1 {
		single := false
		st.Internal.SeparateSlips = &single
	}
	return nil
}

func findInstallment(set *domain.InstallmentSet, number string) *domain.Installment {
	if set == nil {
		return nil
	}
	for i := range set.Installments {
		if set.Installments[i].Number == number {
			return &set.Installments[i]
		}
	}
	return nil
}

// stepChooseSlipFormat asks whether to emit one slip per installment or a
// single combined slip.
func (f *Flow) stepChooseSlipFormat(_ context.Context, st *domain.State) error {
	if st.Internal.SeparateSlips != nil {
		return nil
	}

	if _, ok := st.Payload[KeySeparate]; !ok {
		st.Ask(msgChooseSlipFormat(), SchemaSlipFormat)
		return nil
	}
	var p slipFormatPayload
	if err := decode(st.Payload, &p); err != nil {
		st.AskWithError(msgChooseSlipFormat(), err.Error(), SchemaSlipFormat)
		return nil
	}

	st.Internal.SeparateSlips = &p.Separate
	return nil
}

// stepConfirm shows the collected data and waits for an explicit go-ahead.
// A rejection restarts the flow keeping only the property.
func (f *Flow) stepConfirm(_ context.Context, st *domain.State) error {
	if st.Internal.DataConfirmed {
		return nil
	}

	if missing := missingForGeneration(st); missing != "" {
		ResetFull(st, false)
		st.AskWithError(msgAskProperty(), msgInternalError(missing), SchemaProperty)
		return nil
	}

	if _, ok := st.Payload[KeyConfirmed]; !ok {
		st.Ask(msgConfirm(st), SchemaConfirm)
		return nil
	}
	var p confirmPayload
	if err := decode(st.Payload, &p); err != nil {
		st.AskWithError(msgConfirm(st), err.Error(), SchemaConfirm)
		return nil
	}
	if !p.Confirmed {
		ResetFull(st, true)
		st.Ask(msgNotConfirmed(), SchemaYear)
		return nil
	}

	st.Internal.DataConfirmed = true
	return nil
}

func missingForGeneration(st *domain.State) string {
	switch {
	case st.Data.PropertyID == "":
		return "inscrição imobiliária"
	case st.Data.Year == 0:
		return "ano de exercício"
	case st.Data.ChosenGuide == "":
		return "guia"
	case len(st.Data.ChosenInstallments) == 0:
		return "cotas"
	case st.Internal.SeparateSlips == nil:
		return "formato do boleto"
	}
	return ""
}

// stepGenerateSlips emits the payment slips, one remote call per
// installment when separate slips were requested. A failed call discards
// only the installment selection; slips already emitted in this turn stay.
func (f *Flow) stepGenerateSlips(ctx context.Context, st *domain.State) error {
	if st.Internal.NextQuestion != "" {
		return nil
	}

	groups := [][]string{st.Data.ChosenInstallments}
	if st.Internal.SeparateSlips != nil && *st.Internal.SeparateSlips {
		groups = nil
		for _, number := range st.Data.ChosenInstallments {
			groups = append(groups, []string{number})
		}
	}

	for _, group := range groups {
		req := domain.SlipRequest{
			PropertyID:   st.Data.PropertyID,
			Year:         st.Data.Year,
			GuideNumber:  st.Data.ChosenGuide,
			Installments: group,
		}
		batch, err := intercept.Do(ctx, f.observer, st.SessionID, "generate_slip", func(ctx context.Context) (*domain.SlipBatch, error) {
			return f.gateway.GenerateSlip(ctx, req)
		})
		if err != nil || batch == nil || len(batch.Slips) == 0 {
			errMsg := msgSlipFailure(group)
			if errors.Is(err, domain.ErrAuthentication) {
				errMsg = msgAuthFailure()
			}
			resetToInstallmentChoice(st)
			st.AskWithError(msgChooseInstallments(st), errMsg, SchemaInstallments)
			return nil
		}
		for _, slip := range batch.Slips {
			f.attachDocument(ctx, &slip)
			st.Data.Slips = append(st.Data.Slips, slip)
		}
	}
	return nil
}

// attachDocument downloads the printable slip. Download failures degrade to
// a placeholder; the slip itself is already emitted and must not be lost.
func (f *Flow) attachDocument(ctx context.Context, slip *domain.Slip) {
	doc, err := f.gateway.DownloadSlipDocument(ctx, slip.ID)
	if err != nil || len(doc) == 0 {
		f.logger.Warn("slip document download failed", "err", err, "slip_id", slip.ID)
		slip.Document = documentUnavailable
		return
	}
	slip.Document = base64.StdEncoding.EncodeToString(doc)
}

// stepAskContinue classifies what can still be paid, records the
// classification, asks the follow-up question and later consumes its
// answer, resetting the session back to the matching step.
func (f *Flow) stepAskContinue(_ context.Context, st *domain.State) error {
	if st.Internal.NextQuestion == "" {
		clearContinueFlags(st)
		switch {
		case hasMoreInstallments(st):
			st.Internal.NextQuestion = ContinueMoreInstallments
		case hasOtherGuides(st):
			st.Internal.NextQuestion = ContinueOtherGuides
		default:
			st.Internal.NextQuestion = nextQuestionNeither
		}
		st.Prompt = &domain.Prompt{
			Description:   msgSlipsGenerated(st),
			PayloadSchema: SchemaContinue,
			Data:          st.Data.Slips,
		}
		return nil
	}

	var p continuePayload
	if err := decode(st.Payload, &p); err != nil || p.Choice == "" {
		st.Ask(msgSlipsGenerated(st), SchemaContinue)
		return nil
	}
	choice, err := parseContinueChoice(p.Choice)
	if err != nil {
		st.AskWithError(msgSlipsGenerated(st), err.Error(), SchemaContinue)
		return nil
	}

	switch choice {
	case ContinueMoreInstallments:
		resetToInstallmentChoice(st)
		st.Internal.WantsMoreInstallments = true
	case ContinueOtherGuides:
		resetToGuideChoice(st)
		st.Internal.WantsOtherGuide = true
	case ContinueOtherProperty:
		ResetFull(st, false)
		st.Internal.WantsOtherProperty = true
	case ContinueDone:
		// Keep the emitted slips as the session's final record.
		st.Internal = domain.Internal{}
	}
	return nil
}

// hasMoreInstallments reports whether the chosen guide still has payable
// installments beyond the ones just selected.
func hasMoreInstallments(st *domain.State) bool {
	if st.Data.Installments == nil {
		return false
	}
	return len(st.Data.ChosenInstallments) < len(st.Data.Installments.Open())
}

// hasOtherGuides reports whether the year listing had more than one guide.
func hasOtherGuides(st *domain.State) bool {
	return st.Data.Guides != nil && len(st.Data.Guides.Guides) > 1
}
