package cloudinary

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/benjamins-shop/storefront-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.CloudinaryConfig{})
	require.Error(t, err)

	client, err := NewClient(config.CloudinaryConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
	})
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestSignParamsSortsAndAppendsSecret(t *testing.T) {
	params := map[string]string{
		"timestamp": "1700000000",
		"folder":    "products",
	}

	expected := sha1.Sum([]byte("folder=products&timestamp=1700000000" + "s3cr3t"))
	assert.Equal(t, hex.EncodeToString(expected[:]), signParams(params, "s3cr3t"))
}

func TestSignParamsSkipsEmptyValues(t *testing.T) {
	params := map[string]string{
		"timestamp":      "1700000000",
		"folder":         "",
		"transformation": "c_limit,w_800,h_600/q_auto/f_webp",
	}

	expected := sha1.Sum([]byte("timestamp=1700000000&transformation=c_limit,w_800,h_600/q_auto/f_webp" + "x"))
	assert.Equal(t, hex.EncodeToString(expected[:]), signParams(params, "x"))
}
