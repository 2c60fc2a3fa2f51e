package core

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() url.Values {
	v := url.Values{}
	v.Set(FormCliente, " Ana ")
	v.Set(FormMonto, "1500,50")
	v.Set(FormTasa, "12.5")
	v.Set(FormPlazo, "24")
	v.Set(FormFecha, "2025-03-01")
	return v
}

func TestParseCreditForm(t *testing.T) {
	f, err := ParseCreditForm(validForm())
	require.NoError(t, err)
	assert.Equal(t, CreditFields{
		Cliente:           "Ana",
		Monto:             1500.50,
		TasaInteres:       12.5,
		Plazo:             24,
		FechaOtorgamiento: "2025-03-01",
	}, f)
}

func TestParseCreditFormRejectsIncomplete(t *testing.T) {
	cases := map[string]func(url.Values){
		"missing cliente":          func(v url.Values) { v.Del(FormCliente) },
		"blank cliente":            func(v url.Values) { v.Set(FormCliente, "   ") },
		"missing monto":            func(v url.Values) { v.Del(FormMonto) },
		"nan monto":                func(v url.Values) { v.Set(FormMonto, "NaN") },
		"text monto":               func(v url.Values) { v.Set(FormMonto, "abc") },
		"missing interes":          func(v url.Values) { v.Del(FormTasa) },
		"text interes":             func(v url.Values) { v.Set(FormTasa, "x") },
		"missing plazo":            func(v url.Values) { v.Del(FormPlazo) },
		"decimal plazo":            func(v url.Values) { v.Set(FormPlazo, "1.5") },
		"plazo with zero fraction": func(v url.Values) { v.Set(FormPlazo, "12.0") },
		"plazo with suffix":        func(v url.Values) { v.Set(FormPlazo, "12 meses") },
		"impossible fecha":         func(v url.Values) { v.Set(FormFecha, "2025-02-30") },
		"missing fecha":            func(v url.Values) { v.Del(FormFecha) },
		"malformed fecha":          func(v url.Values) { v.Set(FormFecha, "01/03/2025") },
		"infinite interes":         func(v url.Values) { v.Set(FormTasa, "Inf") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			v := validForm()
			mutate(v)
			_, err := ParseCreditForm(v)
			assert.ErrorIs(t, err, ErrIncompleteForm)
			assert.Equal(t, FormValidationMessage, err.Error())
		})
	}
}

func TestCreditFieldsValidate(t *testing.T) {
	good := CreditFields{Cliente: "Ana", Monto: 10, TasaInteres: 5, Plazo: 12, FechaOtorgamiento: "2025-01-31"}
	require.NoError(t, good.Validate())

	bad := []CreditFields{
		{Cliente: "", Monto: 10, TasaInteres: 5, Plazo: 12, FechaOtorgamiento: "2025-01-31"},
		{Cliente: "Ana", Monto: 0, TasaInteres: 5, Plazo: 12, FechaOtorgamiento: "2025-01-31"},
		{Cliente: "Ana", Monto: 10, TasaInteres: -1, Plazo: 12, FechaOtorgamiento: "2025-01-31"},
		{Cliente: "Ana", Monto: 10, TasaInteres: 5, Plazo: 0, FechaOtorgamiento: "2025-01-31"},
		{Cliente: "Ana", Monto: 10, TasaInteres: 5, Plazo: 12, FechaOtorgamiento: "2025-02-30"},
	}
	for i, f := range bad {
		assert.Error(t, f.Validate(), "case %d", i)
	}
}

func TestFormValuesRoundTripThroughGate(t *testing.T) {
	f := CreditFields{Cliente: "Luis", Monto: 999.99, TasaInteres: 3.25, Plazo: 6, FechaOtorgamiento: "2024-12-01"}
	got, err := ParseCreditForm(f.FormValues())
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestCreditIDJSON(t *testing.T) {
	var c Credit
	require.NoError(t, json.Unmarshal([]byte(`{"id": 7, "cliente": "Ana", "monto": 10.5}`), &c))
	assert.Equal(t, CreditID("7"), c.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "abc-1"}`), &c))
	assert.Equal(t, CreditID("abc-1"), c.ID)

	out, err := json.Marshal(Credit{ID: "42"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":42`)

	out, err = json.Marshal(Credit{ID: "abc-1"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":"abc-1"`)
}

func TestParseCreditID(t *testing.T) {
	id, err := ParseCreditID(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, CreditID("12"), id)

	for _, bad := range []string{"", "  ", "1/2", "a?b"} {
		_, err := ParseCreditID(bad)
		assert.ErrorIs(t, err, ErrInvalidID, bad)
	}
}

func TestFindCredit(t *testing.T) {
	list := []Credit{{ID: "1"}, {ID: "2", CreditFields: CreditFields{Cliente: "B"}}}
	c, ok := FindCredit(list, "2")
	assert.True(t, ok)
	assert.Equal(t, "B", c.Cliente)
	_, ok = FindCredit(list, "3")
	assert.False(t, ok)
}
