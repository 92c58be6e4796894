package appeal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juristec/caseintel/internal/model"
)

func TestExtractCandidates_NumberNearSynonym(t *testing.T) {
	d := testDetector(t, &mockFetcher{})
	text := "Interposto agravo de instrumento nº 2000123-45.2023.8.26.0000 contra a decisão"

	got := d.ExtractCandidates(text, "movement-complement", originNumber)
	require.Len(t, got, 1)
	assert.Equal(t, "20001234520238260000", got[0].Number)
	assert.Equal(t, "2000123-45.2023.8.26.0000", got[0].RawNumber)
	assert.Equal(t, "movement-complement", got[0].Provenance)
	assert.Contains(t, got[0].Snippet, "agravo")
}

func TestExtractCandidates_AccentAndCaseInsensitive(t *testing.T) {
	d := testDetector(t, &mockFetcher{})
	text := "AGRAVO DE INSTRUMENTO distribuído sob nº 2000123-45.2023.8.26.0000"
	assert.Len(t, d.ExtractCandidates(text, "t", originNumber), 1)
}

func TestExtractCandidates_NumberWithoutSynonymIgnored(t *testing.T) {
	d := testDetector(t, &mockFetcher{})
	text := "Guia de custas relativa ao processo 2000123-45.2023.8.26.0000 paga"
	assert.Empty(t, d.ExtractCandidates(text, "t", originNumber))
}

func TestExtractCandidates_SynonymOutsideWindowIgnored(t *testing.T) {
	d := testDetector(t, &mockFetcher{})
	// Push the synonym more than window_runes away from the number.
	padding := strings.Repeat("x", d.rules.Appeal.WindowRunes+50)
	text := "agravo de instrumento " + padding + " 2000123-45.2023.8.26.0000"
	assert.Empty(t, d.ExtractCandidates(text, "t", originNumber))
}

func TestExtractCandidates_OwnNumberSkipped(t *testing.T) {
	d := testDetector(t, &mockFetcher{})
	text := "agravo de instrumento nos autos 0001234-56.2023.8.26.0100"
	assert.Empty(t, d.ExtractCandidates(text, "t", originNumber))
}

func TestExtractFromCase_DiscoveryOrder(t *testing.T) {
	d := testDetector(t, &mockFetcher{})
	c := &model.Case{
		Number: originNumber,
		Movements: []model.Movement{
			{Complement: "agravo de instrumento nº 2000123-45.2023.8.26.0000"},
			{Complement: "sem números aqui"},
		},
		Documents: []model.DocumentMetadata{
			{ID: "d1", Description: "Cópia do agravo 9876543-21.2019.1.23.4567"},
		},
	}

	got := d.ExtractFromCase(c)
	require.Len(t, got, 2)
	assert.Equal(t, "20001234520238260000", got[0].Number)
	assert.Equal(t, "movement-complement", got[0].Provenance)
	assert.Equal(t, "98765432120191234567", got[1].Number)
	assert.Equal(t, "document-description", got[1].Provenance)
}
