// Package fake implements the municipal tax gateway with deterministic mock
// data. It mirrors the live service's interface and error taxonomy so every
// workflow scenario can be exercised without network access.
//
// Error simulation is driven by sentinel property ids:
//
//	77777777777777  unavailable on every operation's first touchpoint (guides)
//	88888888888888  authentication failure
//	99999999990000  unavailable (timeout) on ListGuides
//	99999999990001  unavailable (HTTP 500) on ListInstallments
//	99999999990002  unavailable (HTTP 503) on GenerateSlip
package fake

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/money"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Gateway is the deterministic ports.TaxGateway implementation.
type Gateway struct {
	logger *slog.Logger
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a fake gateway.
func New(opts ...Option) *Gateway {
	g := &Gateway{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func clean(propertyID string) string {
	return nonDigits.ReplaceAllString(propertyID, "")
}

// LookupProperty returns registry metadata for any property.
func (g *Gateway) LookupProperty(ctx context.Context, propertyID string) (*domain.PropertyInfo, error) {
	id := clean(propertyID)
	switch id {
	case "77777777777777":
		return nil, fmt.Errorf("serviço de cadastro temporariamente indisponível (erro simulado): %w", domain.ErrServiceUnavailable)
	case "88888888888888":
		return nil, fmt.Errorf("falha na autenticação do serviço IPTU (erro simulado): %w", domain.ErrAuthentication)
	}
	return &domain.PropertyInfo{
		ID:      id,
		Address: "RUA EXEMPLO, 123 - CENTRO",
		Owner:   "PROPRIETARIO TESTE",
	}, nil
}

// guideTable returns the raw guides for a property/year, or nil when the
// upstream has nothing for it. Settled guides are filtered out afterwards.
func guideTable(id string, year int) []domain.Guide {
	if year < 2020 || year > 2025 {
		return nil
	}

	switch id {
	case "12345678":
		if year == 2024 {
			return []domain.Guide{}
		}
		return []domain.Guide{
			{Number: "00", Kind: domain.GuideOrdinary, Total: "1.200,00"},
		}
	case "01234567890123":
		return []domain.Guide{
			{Number: "00", Kind: domain.GuideOrdinary, Total: "2.878,00"},
			{Number: "01", Kind: domain.GuideExtraordinary, Total: "520,00"},
		}
	case "11111111111111":
		return []domain.Guide{
			{Number: "00", Kind: domain.GuideOrdinary, Total: "1.500,00"},
		}
	case "22222222222222":
		return []domain.Guide{
			{Number: "01", Kind: domain.GuideExtraordinary, Total: "320,00"},
		}
	case "33333333333333":
		// All settled upstream; settled guides never reach the caller.
		return []domain.Guide{}
	case "44444444444444":
		return []domain.Guide{
			{Number: "00", Kind: domain.GuideOrdinary, Total: "8.500,00"},
		}
	case "55555555555555":
		return []domain.Guide{
			{Number: "00", Kind: domain.GuideOrdinary, Total: "180,00"},
		}
	case "66666666666666":
		return []domain.Guide{
			{Number: "01", Kind: domain.GuideExtraordinary, Total: "450,00"},
			{Number: "02", Kind: domain.GuideExtraordinary, Total: "380,00"},
		}
	case "10000000", "20000000", "30000000":
		// Migrated to active debt; no regular guides.
		return []domain.Guide{}
	}
	return nil
}

// ListGuides lists open payment guides for a property/year.
func (g *Gateway) ListGuides(ctx context.Context, propertyID string, year int) (*domain.GuideSet, error) {
	id := clean(propertyID)
	g.logger.Info("fake gateway: listing guides", "property_id", id, "year", year)

	switch id {
	case "77777777777777":
		return nil, fmt.Errorf("serviço IPTU temporariamente indisponível (erro simulado): %w", domain.ErrServiceUnavailable)
	case "88888888888888":
		return nil, fmt.Errorf("falha na autenticação do serviço IPTU (erro simulado): %w", domain.ErrAuthentication)
	case "99999999990000":
		return nil, fmt.Errorf("serviço IPTU não respondeu no tempo esperado (erro simulado): %w", domain.ErrServiceUnavailable)
	}

	guides := guideTable(id, year)
	if len(guides) == 0 {
		return nil, nil
	}

	return &domain.GuideSet{
		PropertyID: id,
		Year:       year,
		Guides:     guides,
	}, nil
}

// installmentAmount picks the per-quota value for a property/guide pair.
func installmentAmount(id, guideNumber string) string {
	if guideNumber == "00" {
		if id == "01234567890123" {
			return "89,44"
		}
		return "46,88"
	}
	switch {
	case id == "01234567890123":
		return "86,67"
	case id == "66666666666666" && guideNumber == "01":
		return "75,00"
	case id == "66666666666666" && guideNumber == "02":
		return "63,33"
	}
	return "53,33"
}

// ListInstallments lists the installments of one guide.
func (g *Gateway) ListInstallments(ctx context.Context, propertyID string, year int, guideNumber string) (*domain.InstallmentSet, error) {
	id := clean(propertyID)
	g.logger.Info("fake gateway: listing installments", "property_id", id, "guide", guideNumber)

	if id == "99999999990001" {
		return nil, fmt.Errorf("serviço IPTU temporariamente indisponível (HTTP 500) (erro simulado): %w", domain.ErrServiceUnavailable)
	}

	guides := guideTable(id, year)
	if len(guides) == 0 {
		return nil, nil
	}
	found := false
	for _, gd := range guides {
		if gd.Number == guideNumber {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}

	amount := installmentAmount(id, guideNumber)
	var installments []domain.Installment

	if guideNumber == "00" {
		// Ordinary guides carry 32 quotas: 1-3 paid, 4-25 open, 26-32 overdue.
		for i := 1; i <= 32; i++ {
			status := domain.InstallmentOpen
			if i <= 3 {
				status = domain.InstallmentPaid
			} else if i > 25 {
				status = domain.InstallmentOverdue
			}
			month := i
			if month > 12 {
				month -= 12
			}
			installments = append(installments, domain.Installment{
				Number:  fmt.Sprintf("%02d", i),
				Status:  status,
				Amount:  amount,
				DueDate: fmt.Sprintf("07/%02d/%d", month, year),
			})
		}
	} else {
		// Extraordinary guides carry 6 open quotas.
		for i := 1; i <= 6; i++ {
			installments = append(installments, domain.Installment{
				Number:  fmt.Sprintf("%02d", i),
				Status:  domain.InstallmentOpen,
				Amount:  amount,
				DueDate: fmt.Sprintf("07/%02d/%d", i*2, year),
			})
		}
	}

	return &domain.InstallmentSet{
		GuideNumber:  guideNumber,
		Installments: installments,
	}, nil
}

// GenerateSlip emits one payment slip covering the requested installments.
func (g *Gateway) GenerateSlip(ctx context.Context, req domain.SlipRequest) (*domain.SlipBatch, error) {
	id := clean(req.PropertyID)
	g.logger.Info("fake gateway: generating slip",
		"property_id", id, "guide", req.GuideNumber, "installments", strings.Join(req.Installments, ","))

	if id == "99999999990002" {
		return nil, fmt.Errorf("serviço IPTU temporariamente indisponível (HTTP 503) (erro simulado): %w", domain.ErrServiceUnavailable)
	}

	set, err := g.ListInstallments(ctx, id, req.Year, req.GuideNumber)
	if err != nil || set == nil {
		return nil, err
	}

	available := make(map[string]domain.Installment, len(set.Installments))
	for _, it := range set.Installments {
		available[it.Number] = it
	}

	var total float64
	for _, num := range req.Installments {
		it, ok := available[num]
		if !ok {
			return nil, nil
		}
		v, err := money.ParseBRL(it.Amount)
		if err != nil {
			return nil, fmt.Errorf("bad installment amount %q: %w", it.Amount, err)
		}
		total += v
	}

	slipID := fmt.Sprintf("310-7.%s.%d.%s.%02d", prefix8(id), req.Year, req.GuideNumber, len(req.Installments))
	barcode := strings.ReplaceAll(fmt.Sprintf("%s.%08d", slipID, int(total*100)), ".", "")

	return &domain.SlipBatch{
		Slips: []domain.Slip{{
			ID:           slipID,
			GuideNumber:  req.GuideNumber,
			Installments: append([]string(nil), req.Installments...),
			Amount:       money.FormatBRL(total),
			Barcode:      barcode,
			DueDate:      fmt.Sprintf("29/11/%d", req.Year),
		}},
	}, nil
}

func prefix8(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// DownloadSlipDocument returns a placeholder document for any emitted slip.
func (g *Gateway) DownloadSlipDocument(ctx context.Context, slipID string) ([]byte, error) {
	if slipID == "" {
		return nil, nil
	}
	return []byte("%PDF-1.4 fake darm " + slipID), nil
}

// LookupActiveDebt returns active-debt info for the debt-scenario sentinels.
func (g *Gateway) LookupActiveDebt(ctx context.Context, propertyID string) (*domain.DebtInfo, error) {
	id := clean(propertyID)
	g.logger.Info("fake gateway: consulting active debt", "property_id", id)

	switch id {
	case "77777777777777":
		return nil, fmt.Errorf("serviço de dívida ativa temporariamente indisponível (erro simulado): %w", domain.ErrServiceUnavailable)
	case "10000000":
		return &domain.DebtInfo{
			PropertyID: id,
			Plans: []domain.InstallmentPlan{{
				Number:            "2024/0256907",
				TotalInstallments: 84,
				PaidInstallments:  9,
				Amount:            "15.000,00",
			}},
		}, nil
	case "20000000":
		return &domain.DebtInfo{
			PropertyID: id,
			CDAs: []domain.CDA{
				{Number: "2024/123456", Year: 2024, Amount: "3.000,00"},
				{Number: "2023/654321", Year: 2023, Amount: "2.000,00"},
			},
		}, nil
	case "30000000":
		return &domain.DebtInfo{
			PropertyID: id,
			Lawsuits: []domain.Lawsuit{
				{Number: "2024/789012", Court: "0123456-78.2024.8.19.0001"},
			},
		}, nil
	}
	return nil, nil
}
