package iptu

import (
	"fmt"
	"strings"

	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/money"
)

// User-facing message templates. The workflow speaks Portuguese, matching
// the municipal service it fronts.

// documentUnavailable replaces the printable slip when the download failed.
const documentUnavailable = "documento indisponível no momento"

func msgAskProperty() string {
	return "Para consultar o IPTU, informe a inscrição imobiliária do imóvel (8 a 15 dígitos, somente números)."
}

func msgAskYear(st *domain.State) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Inscrição imobiliária: %s\n", st.Data.PropertyID))
	if p := st.Data.Property; p != nil {
		if p.Address != "" {
			b.WriteString(fmt.Sprintf("Endereço: %s\n", p.Address))
		}
		if p.Owner != "" {
			b.WriteString(fmt.Sprintf("Proprietário: %s\n", p.Owner))
		}
	}
	b.WriteString("\nQual ano de exercício você deseja consultar? (ex: 2025)")
	return b.String()
}

func describeGuideKind(kind string) string {
	if kind == domain.GuideExtraordinary {
		return "EXTRAORDINÁRIA"
	}
	return "ORDINÁRIA"
}

func msgChooseGuide(st *domain.State) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Guias de IPTU em aberto para a inscrição %s, exercício %d:\n\n", st.Data.PropertyID, st.Data.Year))
	if st.Data.Guides != nil {
		for _, g := range st.Data.Guides.Guides {
			total := g.Total
			if v, err := money.ParseBRL(g.Total); err == nil {
				total = money.FormatBRLPrefix(v)
			}
			b.WriteString(fmt.Sprintf("• Guia %s (%s) — valor original %s\n", g.Number, describeGuideKind(g.Kind), total))
		}
	}
	if summary := debtSummary(st.Data.Debt); summary != "" {
		b.WriteString("\n" + summary + "\n")
	}
	b.WriteString("\nInforme o número da guia que deseja pagar.")
	return b.String()
}

// debtSummary renders active-debt records for embedding in prompts.
// Returns "" when there is nothing to show.
func debtSummary(debt *domain.DebtInfo) string {
	if debt.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("Atenção: este imóvel possui débitos na dívida ativa.")
	for _, p := range debt.Plans {
		b.WriteString(fmt.Sprintf("\n• Parcelamento %s: %d parcelas no total, %d pagas", p.Number, p.TotalInstallments, p.PaidInstallments))
		if p.Amount != "" {
			if v, err := money.ParseBRL(p.Amount); err == nil {
				b.WriteString(fmt.Sprintf(" (valor total %s)", money.FormatBRLPrefix(v)))
			}
		}
	}
	for _, c := range debt.CDAs {
		b.WriteString(fmt.Sprintf("\n• CDA %s", c.Number))
		if c.Amount != "" {
			if v, err := money.ParseBRL(c.Amount); err == nil {
				b.WriteString(fmt.Sprintf(" no valor de %s", money.FormatBRLPrefix(v)))
			}
		}
	}
	for _, l := range debt.Lawsuits {
		b.WriteString(fmt.Sprintf("\n• Execução fiscal %s (processo %s)", l.Number, l.Court))
	}
	return b.String()
}

func msgNoGuides(st *domain.State, year int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Nenhuma guia de IPTU em aberto foi encontrada para a inscrição %s no exercício %d.\n", st.Data.PropertyID, year))
	if summary := debtSummary(st.Data.Debt); summary != "" {
		b.WriteString("\n" + summary + "\n")
	}
	b.WriteString("\nDeseja consultar outro ano de exercício?")
	return b.String()
}

func msgPropertyGaveUp(debt *domain.DebtInfo) string {
	var b strings.Builder
	b.WriteString("Não encontramos guias de IPTU para esta inscrição após várias tentativas. Verifique se a inscrição imobiliária está correta.\n")
	if summary := debtSummary(debt); summary != "" {
		b.WriteString("\n" + summary + "\n")
	}
	b.WriteString("\nInforme uma nova inscrição imobiliária para continuar.")
	return b.String()
}

func msgServiceUnavailable(err error) string {
	return fmt.Sprintf("⚠️ O serviço da prefeitura está temporariamente indisponível. Por favor, tente novamente em instantes.\n\nDetalhe: %v", err)
}

func msgAuthFailure() string {
	return "❌ Ocorreu um erro interno de autenticação com o serviço da prefeitura. Nossa equipe já foi notificada; por favor, tente novamente mais tarde."
}

func msgChooseInstallments(st *domain.State) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cotas da guia %s:\n\n", st.Data.ChosenGuide))
	var total float64
	if st.Data.Installments != nil {
		for _, it := range st.Data.Installments.Open() {
			amount := it.Amount
			if v, err := money.ParseBRL(it.Amount); err == nil {
				amount = money.FormatBRLPrefix(v)
				total += v
			}
			b.WriteString(fmt.Sprintf("• Cota %s — %s (vencimento %s, situação %s)\n", it.Number, amount, it.DueDate, it.Status))
		}
	}
	b.WriteString(fmt.Sprintf("\nValor total em aberto: %s\n", money.FormatBRLPrefix(total)))
	b.WriteString("\nInforme os números das cotas que deseja pagar (ex: [\"04\", \"05\"]).")
	return b.String()
}

func msgNoOpenInstallments(guide string) string {
	return fmt.Sprintf("Todas as cotas da guia %s já foram quitadas. Escolha outra guia para continuar.", guide)
}

func msgInstallmentsUnavailableForGuide(guide string) string {
	return fmt.Sprintf("Não encontramos cotas para a guia %s. Escolha outra guia para continuar.", guide)
}

func msgPaidInstallmentsSelected(nums []string) string {
	return fmt.Sprintf("As cotas %s já estão pagas e não podem ser selecionadas. Informe apenas cotas em aberto ou vencidas.", strings.Join(nums, ", "))
}

func msgChooseSlipFormat() string {
	return "Você deseja gerar um DARM único com todas as cotas selecionadas, ou um DARM separado para cada cota?\n\nResponda com separate_slips=true para boletos separados ou separate_slips=false para boleto único."
}

func msgConfirm(st *domain.State) string {
	separate := st.Internal.SeparateSlips != nil && *st.Internal.SeparateSlips
	slipCount := 1
	if separate {
		slipCount = len(st.Data.ChosenInstallments)
	}

	var b strings.Builder
	b.WriteString("Confirme os dados do pagamento:\n\n")
	b.WriteString(fmt.Sprintf("• Inscrição imobiliária: %s\n", st.Data.PropertyID))
	if p := st.Data.Property; p != nil && p.Address != "" {
		b.WriteString(fmt.Sprintf("• Endereço: %s\n", p.Address))
	}
	b.WriteString(fmt.Sprintf("• Exercício: %d\n", st.Data.Year))
	b.WriteString(fmt.Sprintf("• Guia: %s\n", st.Data.ChosenGuide))
	b.WriteString(fmt.Sprintf("• Cotas: %s\n", strings.Join(st.Data.ChosenInstallments, ", ")))
	b.WriteString(fmt.Sprintf("• Boletos a gerar: %d\n", slipCount))
	b.WriteString("\nOs dados estão corretos?")
	return b.String()
}

func msgNotConfirmed() string {
	return "Sem problemas, vamos recomeçar. Qual ano de exercício você deseja consultar?"
}

func msgSlipFailure(installments []string) string {
	return fmt.Sprintf("❌ Não foi possível gerar o DARM para as cotas %s. Sua seleção de cotas foi descartada; por favor, selecione novamente quais cotas deseja pagar.", strings.Join(installments, ", "))
}

func msgSlipsGenerated(st *domain.State) string {
	var b strings.Builder
	b.WriteString("✅ DARM(s) gerado(s) com sucesso!\n\n")
	for _, s := range st.Data.Slips {
		amount := s.Amount
		if v, err := money.ParseBRL(s.Amount); err == nil {
			amount = money.FormatBRLPrefix(v)
		}
		b.WriteString(fmt.Sprintf("• Guia %s, cotas %s — %s (vencimento %s)\n  Código de barras: %s\n", s.GuideNumber, strings.Join(s.Installments, ", "), amount, s.DueDate, s.Barcode))
	}

	switch st.Internal.NextQuestion {
	case ContinueMoreInstallments:
		b.WriteString("\nAinda há cotas em aberto nesta guia. Deseja pagar mais cotas (more_installments), outra guia (other_guides), outro imóvel (other_property) ou encerrar (done)?")
	case ContinueOtherGuides:
		b.WriteString("\nEste imóvel possui outras guias em aberto. Deseja pagar outra guia (other_guides), outro imóvel (other_property) ou encerrar (done)?")
	default:
		b.WriteString("\nDeseja consultar outro imóvel (other_property) ou encerrar (done)?")
	}
	return b.String()
}

func msgInternalError(missing string) string {
	return fmt.Sprintf("❌ Erro interno: dados obrigatórios ausentes (%s). Vamos recomeçar a consulta.", missing)
}
