package iptu

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Payload schema names announced in prompts so the caller knows what shape
// the next turn must carry.
const (
	SchemaProperty     = "property"
	SchemaYear         = "year"
	SchemaGuide        = "guide_choice"
	SchemaInstallments = "installment_choice"
	SchemaSlipFormat   = "slip_format"
	SchemaConfirm      = "confirmation"
	SchemaContinue     = "continue_choice"
)

// Payload field keys.
const (
	KeyPropertyID   = "property_id"
	KeyYear         = "year"
	KeyGuide        = "guide"
	KeyInstallments = "installments"
	KeySeparate     = "separate_slips"
	KeyConfirmed    = "confirmed"
	KeyContinue     = "continue_choice"
)

// Property id bounds from the municipal registry format.
const (
	propertyMinDigits = 8
	propertyMaxDigits = 15
	yearMin           = 2020
)

// Continue-question answers.
const (
	ContinueMoreInstallments = "more_installments"
	ContinueOtherGuides      = "other_guides"
	ContinueOtherProperty    = "other_property"
	ContinueDone             = "done"
)

// nextQuestionNeither marks a cycle where nothing else is payable and the
// follow-up question only offers another property or finishing.
const nextQuestionNeither = "neither"

var digitsOnly = regexp.MustCompile(`[^0-9]`)

type propertyPayload struct {
	PropertyID string `mapstructure:"property_id"`
}

type yearPayload struct {
	Year int `mapstructure:"year"`
}

type guidePayload struct {
	Guide string `mapstructure:"guide"`
}

type installmentsPayload struct {
	Installments []string `mapstructure:"installments"`
}

type slipFormatPayload struct {
	Separate bool `mapstructure:"separate_slips"`
}

type confirmPayload struct {
	Confirmed bool `mapstructure:"confirmed"`
}

type continuePayload struct {
	Choice string `mapstructure:"continue_choice"`
}

// decode maps a raw turn payload onto a typed contract. Weak typing is
// intentional: chat front-ends deliver numbers and booleans as strings.
func decode(payload map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build payload decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}
	return nil
}

// parsePropertyID validates and normalizes a property id: digits only,
// left-padded to the registry minimum.
func parsePropertyID(raw string) (string, error) {
	id := digitsOnly.ReplaceAllString(raw, "")
	if id == "" {
		return "", fmt.Errorf("inscrição imobiliária deve conter dígitos")
	}
	if len(id) > propertyMaxDigits {
		return "", fmt.Errorf("inscrição imobiliária deve ter no máximo %d dígitos", propertyMaxDigits)
	}
	if len(id) < propertyMinDigits {
		id = strings.Repeat("0", propertyMinDigits-len(id)) + id
	}
	return id, nil
}

// normalizeNumber left-pads single-digit guide and installment numbers to
// the two-digit form the municipal service uses.
func normalizeNumber(n string) string {
	n = strings.TrimSpace(n)
	if len(n) == 1 {
		return "0" + n
	}
	return n
}

// parseYear validates a fiscal year.
func parseYear(year int) error {
	max := time.Now().Year()
	if year < yearMin || year > max {
		return fmt.Errorf("ano de exercício deve estar entre %d e %d", yearMin, max)
	}
	return nil
}

// parseContinueChoice validates a continue-question answer.
func parseContinueChoice(choice string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(choice))
	switch c {
	case ContinueMoreInstallments, ContinueOtherGuides, ContinueOtherProperty, ContinueDone:
		return c, nil
	}
	return "", fmt.Errorf("opção %q não reconhecida", choice)
}
