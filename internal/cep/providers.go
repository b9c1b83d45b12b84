package cep

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Address is the common shape every provider response is adapted into.
type Address struct {
	Street   string `json:"street"`
	District string `json:"district"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// errProviderNotFound signals that the provider answered but does not know
// the code. It feeds the not-found tally instead of the diagnostics list.
var errProviderNotFound = errors.New("postal code not found")

// Provider describes one external lookup service: a templated GET endpoint
// and an adapter from its JSON payload to the common Address shape. Providers
// are tried strictly in the order they appear in the list.
type Provider struct {
	Name     string
	Endpoint string // URL template with %s for the 8-digit code
	Parse    func([]byte) (Address, error)
}

// DefaultProviders is the fixed priority-ordered provider list.
var DefaultProviders = []Provider{
	{Name: "BrasilAPI", Endpoint: "https://brasilapi.com.br/api/cep/v1/%s", Parse: parseBrasilAPI},
	{Name: "OpenCEP", Endpoint: "https://opencep.com/v1/%s", Parse: parseOpenCEP},
	{Name: "Postmon", Endpoint: "https://api.postmon.com.br/v1/cep/%s", Parse: parsePostmon},
	{Name: "BrasilAberto", Endpoint: "https://api.brasilaberto.com/v1/zipcode/%s", Parse: parseBrasilAberto},
	{Name: "ViaCEP", Endpoint: "https://viacep.com.br/ws/%s/json/", Parse: parseViaCEP},
}

func parseBrasilAPI(body []byte) (Address, error) {
	var r struct {
		Street       string `json:"street"`
		Neighborhood string `json:"neighborhood"`
		City         string `json:"city"`
		State        string `json:"state"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return Address{}, fmt.Errorf("decoding response: %w", err)
	}
	return Address{Street: r.Street, District: r.Neighborhood, City: r.City, State: r.State}, nil
}

func parseOpenCEP(body []byte) (Address, error) {
	return parseViaCEP(body)
}

func parsePostmon(body []byte) (Address, error) {
	var r struct {
		Logradouro string `json:"logradouro"`
		Bairro     string `json:"bairro"`
		Cidade     string `json:"cidade"`
		Estado     string `json:"estado"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return Address{}, fmt.Errorf("decoding response: %w", err)
	}
	return Address{Street: r.Logradouro, District: r.Bairro, City: r.Cidade, State: r.Estado}, nil
}

func parseBrasilAberto(body []byte) (Address, error) {
	var r struct {
		Result struct {
			Street         string `json:"street"`
			District       string `json:"district"`
			City           string `json:"city"`
			StateShortname string `json:"stateShortname"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return Address{}, fmt.Errorf("decoding response: %w", err)
	}
	return Address{
		Street:   r.Result.Street,
		District: r.Result.District,
		City:     r.Result.City,
		State:    r.Result.StateShortname,
	}, nil
}

// parseViaCEP also serves OpenCEP, which mirrors the ViaCEP payload. Both
// signal an unknown code with an "erro" flag in an otherwise 200 response;
// depending on the API version the flag is a bool or the string "true".
func parseViaCEP(body []byte) (Address, error) {
	var r struct {
		Logradouro string `json:"logradouro"`
		Bairro     string `json:"bairro"`
		Localidade string `json:"localidade"`
		UF         string `json:"uf"`
		Erro       any    `json:"erro"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return Address{}, fmt.Errorf("decoding response: %w", err)
	}
	if truthy(r.Erro) {
		return Address{}, errProviderNotFound
	}
	return Address{Street: r.Logradouro, District: r.Bairro, City: r.Localidade, State: r.UF}, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
