package ports

import (
	"context"

	"github.com/lucasmbraga/taxflow/pkg/domain"
)

// TaxGateway is the facade over the municipal tax service. All operations
// follow one error taxonomy:
//
//   - domain.ErrAuthentication (wrapped): credentials rejected, fatal.
//   - domain.ErrServiceUnavailable (wrapped): transient upstream failure.
//   - "not found" upstream answers collapse to a nil result with a nil
//     error; callers never see a not-found error type.
type TaxGateway interface {
	// LookupProperty fetches registry metadata for a property.
	LookupProperty(ctx context.Context, propertyID string) (*domain.PropertyInfo, error)

	// ListGuides lists the payment guides for a property and fiscal year.
	ListGuides(ctx context.Context, propertyID string, year int) (*domain.GuideSet, error)

	// ListInstallments lists the installments of one guide.
	ListInstallments(ctx context.Context, propertyID string, year int, guideNumber string) (*domain.InstallmentSet, error)

	// GenerateSlip emits payment slips covering the requested installments.
	GenerateSlip(ctx context.Context, req domain.SlipRequest) (*domain.SlipBatch, error)

	// DownloadSlipDocument fetches the printable document for a slip.
	DownloadSlipDocument(ctx context.Context, slipID string) ([]byte, error)

	// LookupActiveDebt fetches active-debt information for a property.
	LookupActiveDebt(ctx context.Context, propertyID string) (*domain.DebtInfo, error)
}
