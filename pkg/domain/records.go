package domain

// Guide kinds as reported by the municipal service.
const (
	GuideOrdinary      = "ordinaria"
	GuideExtraordinary = "extraordinaria"
)

// Guide is one payment guide for a property/year.
type Guide struct {
	Number      string `json:"number"`
	Kind        string `json:"kind"`
	Total       string `json:"total"` // BRL formatted, e.g. "1.234,56"
	Description string `json:"description,omitempty"`
}

// GuideSet is the result of a guide listing.
type GuideSet struct {
	PropertyID string  `json:"property_id"`
	Year       int     `json:"year"`
	Guides     []Guide `json:"guides"`
}

// Find returns the guide with the given number, if present.
func (g *GuideSet) Find(number string) *Guide {
	for i := range g.Guides {
		if g.Guides[i].Number == number {
			return &g.Guides[i]
		}
	}
	return nil
}

// Installment statuses as reported by the municipal service.
const (
	InstallmentPaid    = "PAGA"
	InstallmentOpen    = "EM ABERTO"
	InstallmentOverdue = "VENCIDA"
)

// Installment is one quota of a guide.
type Installment struct {
	Number  string `json:"number"`
	Status  string `json:"status"`
	Amount  string `json:"amount"` // BRL formatted
	DueDate string `json:"due_date,omitempty"`
}

// Payable reports whether the installment can still be paid.
func (i Installment) Payable() bool {
	return i.Status == InstallmentOpen || i.Status == InstallmentOverdue
}

// InstallmentSet is the result of an installment listing for one guide.
type InstallmentSet struct {
	GuideNumber  string        `json:"guide_number"`
	Installments []Installment `json:"installments"`
}

// Open returns the installments that are still payable.
func (s *InstallmentSet) Open() []Installment {
	var out []Installment
	for _, it := range s.Installments {
		if it.Payable() {
			out = append(out, it)
		}
	}
	return out
}

// SlipRequest asks the upstream service to emit a payment slip covering the
// given installments of a guide.
type SlipRequest struct {
	PropertyID   string   `json:"property_id"`
	Year         int      `json:"year"`
	GuideNumber  string   `json:"guide_number"`
	Installments []string `json:"installments"`
}

// Slip is an emitted payment document (DARM).
type Slip struct {
	ID           string   `json:"id"`
	GuideNumber  string   `json:"guide_number"`
	Installments []string `json:"installments"`
	Amount       string   `json:"amount"` // BRL formatted
	Barcode      string   `json:"barcode,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`

	// Document is the printable slip, base64 encoded, or a placeholder
	// note when the download failed.
	Document string `json:"document,omitempty"`
}

// SlipBatch is the result of one slip generation call.
type SlipBatch struct {
	Slips []Slip `json:"slips"`
}

// InstallmentPlan is an active-debt payment plan (parcelamento).
type InstallmentPlan struct {
	Number            string `json:"number"`
	TotalInstallments int    `json:"total_installments"`
	PaidInstallments  int    `json:"paid_installments"`
	Amount            string `json:"amount,omitempty"`
}

// CDA is a certified debt entry (certidão de dívida ativa).
type CDA struct {
	Number string `json:"number"`
	Year   int    `json:"year,omitempty"`
	Amount string `json:"amount,omitempty"`
	Status string `json:"status,omitempty"`
}

// Lawsuit is a fiscal execution proceeding tied to the debt.
type Lawsuit struct {
	Number string `json:"number"`
	Court  string `json:"court,omitempty"`
}

// DebtInfo summarizes active debt for a property. Any of the slices may be
// empty; a nil DebtInfo means no active debt was found.
type DebtInfo struct {
	PropertyID string            `json:"property_id"`
	Plans      []InstallmentPlan `json:"plans,omitempty"`
	CDAs       []CDA             `json:"cdas,omitempty"`
	Lawsuits   []Lawsuit         `json:"lawsuits,omitempty"`
}

// Empty reports whether the debt record carries nothing actionable.
func (d *DebtInfo) Empty() bool {
	return d == nil || (len(d.Plans) == 0 && len(d.CDAs) == 0 && len(d.Lawsuits) == 0)
}

// PropertyInfo is registry metadata for a property, used to confirm the
// user picked the right one.
type PropertyInfo struct {
	ID      string `json:"id"`
	Address string `json:"address,omitempty"`
	Owner   string `json:"owner,omitempty"`
}
