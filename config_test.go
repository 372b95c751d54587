package sensibohkbridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/unified"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "shkb.json")
	require.NoError(t, os.WriteFile(fn, []byte(body), 0o600))
	return fn
}

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "80899303", conf.Pin)
	assert.Equal(t, 45*time.Second, conf.MinGap())
	assert.Equal(t, StoreFile, conf.Store)
	assert.Equal(t, unified.DefaultCarbonDioxideAlertThreshold, conf.CarbonDioxideAlertThreshold)
}

func TestLoadConfig(t *testing.T) {
	fn := writeConfig(t, `{
		"apiKey": "secret",
		"enableRepeatClimateReactAction": true,
		"repeatClimateReactActionMinGap": 30,
		"modesToExclude": ["dry", "Fan"],
		"store": "redis",
		"carbonDioxideAlertThreshold": 0
	}`)

	conf, err := LoadConfig(fn)
	require.NoError(t, err)
	assert.Equal(t, "secret", conf.APIKey)
	assert.True(t, conf.EnableRepeatClimateReactAction)
	assert.Equal(t, 30*time.Second, conf.MinGap())
	assert.Equal(t, []string{"DRY", "FAN"}, conf.ModesToExclude)
	assert.True(t, conf.excludesMode("fan"))
	assert.False(t, conf.excludesMode("COOL"))
	assert.Equal(t, StoreRedis, conf.Store)
	assert.Equal(t, unified.DefaultCarbonDioxideAlertThreshold, conf.CarbonDioxideAlertThreshold)

	assert.Equal(t, "********", conf.redacted().APIKey)
	assert.Equal(t, "secret", conf.APIKey)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"apiKey": `))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `{"repeatClimateReactActionMinGap": 85}`))
	assert.ErrorIs(t, err, ErrBadConfig)

	_, err = LoadConfig(writeConfig(t, `{"repeatClimateReactActionMinGap": -1}`))
	assert.ErrorIs(t, err, ErrBadConfig)

	_, err = LoadConfig(writeConfig(t, `{"store": "s3"}`))
	assert.ErrorIs(t, err, ErrBadConfig)
}
