package mni

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryEnvelope_CaseQuery(t *testing.T) {
	creds := Credentials{Consumer: "juristec", Password: "s3cret"}
	env := string(queryEnvelope(creds, "00012345620238260100", nil))

	assert.Contains(t, env, "<ser:consultarProcesso>")
	assert.Contains(t, env, "<tip:idConsultante>juristec</tip:idConsultante>")
	assert.Contains(t, env, "<tip:senhaConsultante>s3cret</tip:senhaConsultante>")
	assert.Contains(t, env, "<tip:numeroProcesso>00012345620238260100</tip:numeroProcesso>")
	assert.Contains(t, env, "<tip:incluirDocumentos>true</tip:incluirDocumentos>")
	assert.NotContains(t, env, "<tip:documento>")
}

func TestQueryEnvelope_DocumentBatch(t *testing.T) {
	env := string(queryEnvelope(Credentials{}, "00012345620238260100", []string{"d1", "d2", "d3"}))

	// A batch is the same operation with repeated documento elements.
	assert.Contains(t, env, "<tip:incluirDocumentos>true</tip:incluirDocumentos>")
	assert.Equal(t, 3, strings.Count(env, "<tip:documento>"))
	assert.Contains(t, env, "<tip:documento>d2</tip:documento>")
}

func TestQueryEnvelope_EscapesCredentials(t *testing.T) {
	env := string(queryEnvelope(Credentials{Consumer: "a<b&c", Password: `p"q`}, "00012345620238260100", nil))

	assert.Contains(t, env, "a&lt;b&amp;c")
	assert.NotContains(t, env, "a<b")
}
