package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/url"

	"creditos/internal/charts"
	"creditos/internal/core"
)

type (
	// formView drives the credit_form template. Editing is the Edit mode: an id is tracked
	// and the cancel control is shown.
	formView struct {
		ID      core.CreditID
		Editing bool
		Token   string
		Values  url.Values
	}

	pageView struct {
		Form formView
		Rows []core.Credit
	}
)

func blankForm(token string) formView {
	return formView{Token: token, Values: url.Values{}}
}

func editForm(c core.Credit, token string) formView {
	return formView{ID: c.ID, Editing: true, Token: token, Values: c.FormValues()}
}

// chartJSON is safe inside a script element: json.Marshal escapes <, > and &.
func chartJSON(set charts.Set) (template.JS, error) {
	b, err := json.Marshal(set)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatMonto": core.FormatMonto,
		"formatTasa":  core.FormatTasa,
	}
}

func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
