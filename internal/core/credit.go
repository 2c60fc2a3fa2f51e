package core

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and form format of fecha_otorgamiento.
const DateLayout = "2006-01-02"

// FormValidationMessage is shown when the credit form cannot be submitted.
const FormValidationMessage = "Por favor, complete todos los campos correctamente."

type (
	// CreditFields are the five user-editable fields of a credit.
	CreditFields struct {
		Cliente           string  `json:"cliente"`
		Monto             float64 `json:"monto"`
		TasaInteres       float64 `json:"tasa_interes"`
		Plazo             int     `json:"plazo"`
		FechaOtorgamiento string  `json:"fecha_otorgamiento"`
	}

	// Credit is a loan record as stored by the backend.
	Credit struct {
		ID CreditID `json:"id"`
		CreditFields
	}
)

var (
	ErrIncompleteForm = errors.New(FormValidationMessage)
	ErrEmptyCliente   = errors.New("empty cliente")
	ErrInvalidMonto   = errors.New("invalid monto")
	ErrInvalidTasa    = errors.New("invalid tasa_interes")
	ErrInvalidPlazo   = errors.New("invalid plazo")
	ErrInvalidFecha   = errors.New("invalid fecha_otorgamiento")
)

// Form input names used by the credit form.
const (
	FormCliente = "cliente"
	FormMonto   = "monto"
	FormTasa    = "interes"
	FormPlazo   = "plazo"
	FormFecha   = "fecha"
)

// ParseCreditForm is the gate run before any create or update request.
// Any missing or unparseable field yields ErrIncompleteForm. plazo must be a plain
// integer and fecha a real YYYY-MM-DD date, the same checks the backend applies.
func ParseCreditForm(form url.Values) (CreditFields, error) {
	cliente := strings.TrimSpace(form.Get(FormCliente))
	monto, montoOK := parseDecimal(form.Get(FormMonto))
	tasa, tasaOK := parseDecimal(form.Get(FormTasa))
	plazo, plazoErr := strconv.Atoi(strings.TrimSpace(form.Get(FormPlazo)))
	fecha := strings.TrimSpace(form.Get(FormFecha))

	if cliente == "" || !montoOK || !tasaOK || plazoErr != nil || fecha == "" {
		return CreditFields{}, ErrIncompleteForm
	}
	if _, err := time.Parse(DateLayout, fecha); err != nil {
		return CreditFields{}, ErrIncompleteForm
	}

	return CreditFields{
		Cliente:           cliente,
		Monto:             monto,
		TasaInteres:       tasa,
		Plazo:             plazo,
		FechaOtorgamiento: fecha,
	}, nil
}

// parseDecimal accepts both dot and comma separators.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Validate applies the backend rules to a create or update payload.
func (f CreditFields) Validate() error {
	if strings.TrimSpace(f.Cliente) == "" {
		return ErrEmptyCliente
	}
	if len(f.Cliente) > 200 {
		return errors.New("cliente too long (max 200 characters)")
	}
	if f.Monto <= 0 || math.IsNaN(f.Monto) || math.IsInf(f.Monto, 0) {
		return ErrInvalidMonto
	}
	if f.TasaInteres < 0 || math.IsNaN(f.TasaInteres) || math.IsInf(f.TasaInteres, 0) {
		return ErrInvalidTasa
	}
	if f.Plazo <= 0 {
		return ErrInvalidPlazo
	}
	if _, err := time.Parse(DateLayout, f.FechaOtorgamiento); err != nil {
		return ErrInvalidFecha
	}
	return nil
}

// FormValues renders the fields back into form inputs for edit mode.
func (f CreditFields) FormValues() url.Values {
	v := url.Values{}
	v.Set(FormCliente, f.Cliente)
	v.Set(FormMonto, strconv.FormatFloat(f.Monto, 'f', -1, 64))
	v.Set(FormTasa, strconv.FormatFloat(f.TasaInteres, 'f', -1, 64))
	v.Set(FormPlazo, strconv.Itoa(f.Plazo))
	v.Set(FormFecha, f.FechaOtorgamiento)
	return v
}

// FindCredit returns the credit with the given id from a full list.
func FindCredit(credits []Credit, id CreditID) (Credit, bool) {
	for _, c := range credits {
		if c.ID == id {
			return c, true
		}
	}
	return Credit{}, false
}
