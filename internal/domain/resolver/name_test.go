package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameResolver_IdentifyColumn(t *testing.T) {
	rows := [][]string{
		{"01/05/2024", "DOC 123", "PIX RECEBIDO JOAO DA SILVA", "100,00"},
		{"02/05/2024", "DOC 124", "TED MARIA SOUZA", "50,00"},
		{"03/05/2024", "DOC 125", "DEPOSITO", "10,00"},
	}

	r := NewNameResolver()
	assert.Equal(t, 2, r.IdentifyColumn(rows, 0, 3))
	assert.Equal(t, 1, r.IdentifyColumn(rows, 0, 2, 3))
	assert.Equal(t, -1, r.IdentifyColumn([][]string{{"1", "2"}}))
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"collapses whitespace", "  JOAO   DA  SILVA ", "JOAO DA SILVA"},
		{"drops long digit runs", "PIX RECEBIDO 0012345678 JOAO", "PIX RECEBIDO JOAO"},
		{"drops masked cpf", "PIX JOAO ***.123.456-** SILVA", "PIX JOAO SILVA"},
		{"drops cnpj", "TED 12.345.678/0001-90 IGREJA", "TED IGREJA"},
		{"drops dangling separators", "JOAO - 1234567", "JOAO"},
		{"keeps short numbers", "LOJA 12", "LOJA 12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.raw))
		})
	}
}
