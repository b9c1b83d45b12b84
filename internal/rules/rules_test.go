package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectPostalCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare 8 digits", input: "01310100", want: "01310-100"},
		{name: "already formatted", input: "01310-100", want: "01310-100"},
		{name: "7 digits zero padded", input: "1234567", want: "01234-567"},
		{name: "1 digit zero padded", input: "7", want: "00000-007"},
		{name: "digits with noise", input: " 01.310-100 ", want: "01310-100"},
		{name: "too many digits unchanged", input: "123456789", want: "123456789"},
		{name: "no digits unchanged", input: "abc", want: "abc"},
		{name: "empty unchanged", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CorrectPostalCode(tt.input))
		})
	}
}

func TestCorrectPostalCodeIdempotent(t *testing.T) {
	inputs := []string{"01310100", "1234567", "01310-100", "123456789", "xyz"}
	for _, in := range inputs {
		once := CorrectPostalCode(in)
		assert.Equal(t, once, CorrectPostalCode(once), "input %q", in)
	}
}

func TestCorrectDocument(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "cpf 11 digits", input: "12345678901", want: "123.456.789-01"},
		{name: "cnpj 14 digits", input: "11222333000181", want: "11.222.333/0001-81"},
		{name: "cpf with punctuation", input: "123.456.789-01", want: "123.456.789-01"},
		{name: "wrong length unchanged", input: "12345", want: "12345"},
		{name: "empty unchanged", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CorrectDocument(tt.input))
		})
	}
}

func TestCorrectPhone(t *testing.T) {
	assert.Equal(t, "11987654321", CorrectPhone("(11) 98765-4321"))
	assert.Equal(t, "1133334444", CorrectPhone("11 3333-4444"))
	assert.Equal(t, "", CorrectPhone("n/a"))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		delim rune
		want  string
	}{
		{name: "trim", input: "  Rua A  ", delim: ';', want: "Rua A"},
		{name: "collapse whitespace", input: "Rua\t\tdas  Flores", delim: ';', want: "Rua das Flores"},
		{name: "strip quotes", input: `Rua "B"`, delim: ';', want: "Rua B"},
		{name: "strip delimiter", input: "Rua;C", delim: ';', want: "RuaC"},
		{name: "comma delimiter kept under semicolon", input: "Rua, 10", delim: ';', want: "Rua, 10"},
		{name: "comma delimiter stripped", input: "Rua, 10", delim: ',', want: "Rua 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input, tt.delim))
		})
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		field string
		value string
		valid bool
	}{
		{field: "POSTAL_CODE", value: "01310-100", valid: true},
		{field: "POSTAL_CODE", value: "01310100", valid: false},
		{field: "PHONE", value: "11987654321", valid: true},
		{field: "PHONE", value: "987654321", valid: false},
		{field: "DOCUMENT", value: "123.456.789-01", valid: true},
		{field: "DOCUMENT", value: "12345678901", valid: true},
		{field: "DOCUMENT", value: "11.222.333/0001-81", valid: true},
		{field: "DOCUMENT", value: "123456", valid: false},
		{field: "EMAIL", value: "user@example.com", valid: true},
		{field: "EMAIL", value: "not-an-email", valid: false},
		{field: "NAME", value: "Maria", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			rule, ok := ForField(tt.field)
			require.True(t, ok)
			require.NotNil(t, rule.Validate)
			assert.Equal(t, tt.valid, rule.Validate(tt.value))
		})
	}
}

func TestNameLengthValidator(t *testing.T) {
	rule, ok := ForField("NAME")
	require.True(t, ok)

	long := make([]rune, 101)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, rule.Validate(string(long)))
	assert.True(t, rule.Validate(string(long[:100])))
}

func TestFieldsWithoutRules(t *testing.T) {
	_, ok := ForField("COMPANY")
	assert.False(t, ok)

	// NAME and EMAIL validate but have no correction function.
	for _, f := range []string{"NAME", "EMAIL"} {
		rule, ok := ForField(f)
		require.True(t, ok)
		assert.Nil(t, rule.Correct)
	}
}
