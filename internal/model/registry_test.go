// Copyright 2026 fanjia1024
// Tests for the backend registry

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-inference/internal/model/vision"
)

func TestLookup_NotRegistered(t *testing.T) {
	_, err := DefaultRegistry().Lookup("unknown-model")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Contains(t, err.Error(), "unknown-model")
}

func TestLookup_Catalog(t *testing.T) {
	for _, id := range []string{"docmatix", "phi-vision", "gemini"} {
		d, err := DefaultRegistry().Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, d.ID)
	}
}

func TestCatalog_FieldsSatisfiableByImageAndPrompt(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	for _, d := range DefaultRegistry().Backends() {
		require.NoError(t, d.Validate(), d.ID)

		call, err := d.Marshal(vision.Request{BackendID: d.ID, Image: png, Prompt: "describe"})
		require.NoError(t, err, d.ID)
		require.Len(t, call.Params, len(d.Fields), d.ID)
		for i, p := range call.Params {
			assert.Equal(t, d.Fields[i].Name, p.Name)
			assert.NotNil(t, p.Value, "%s.%s unresolved", d.ID, p.Name)
		}
	}
}

func TestCatalog_Contracts(t *testing.T) {
	phi, err := DefaultRegistry().Lookup("phi-vision")
	require.NoError(t, err)
	assert.Equal(t, "/run_example", phi.Endpoint)
	assert.Equal(t, vision.Field{Name: "model_id", Source: vision.FromLiteral, Value: "microsoft/Phi-3.5-vision-instruct"}, phi.Fields[2])

	doc, err := DefaultRegistry().Lookup("docmatix")
	require.NoError(t, err)
	assert.Equal(t, "/process_image", doc.Endpoint)
	assert.Len(t, doc.Fields, 2)

	gem, err := DefaultRegistry().Lookup("gemini")
	require.NoError(t, err)
	assert.Equal(t, vision.TransportGemini, gem.Transport)
	assert.Equal(t, GeminiCredential, gem.Credential)
}

func TestNewRegistry_RejectsDuplicatesAndUnresolvedFields(t *testing.T) {
	d := catalog[0]
	_, err := NewRegistry(d, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")

	broken := catalog[1]
	broken.Fields = []vision.Field{
		{Name: "image", Source: vision.FromImage},
		{Name: "text_input", Source: vision.FromPrompt},
		{Name: "model_id", Source: vision.FromLiteral},
	}
	_, err = NewRegistry(broken)
	assert.ErrorIs(t, err, vision.ErrUnresolvedField)
}

func TestBackends_PreservesOrder(t *testing.T) {
	var ids []string
	for _, d := range DefaultRegistry().Backends() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"docmatix", "phi-vision", "gemini"}, ids)
}
